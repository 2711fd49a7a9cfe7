// Package result assembles normalized masks into the serializable run
// result and writes it to a sink.
//
// A Result has two JSON shapes. On success:
//
//	{
//	  "success": true,
//	  "image_path": "screen.png",
//	  "image_dimensions": {"width": 100, "height": 80},
//	  "masks": [...],
//	  "total_masks": 1
//	}
//
// On failure:
//
//	{
//	  "success": false,
//	  "error": "image file not found: screen.png",
//	  "message": "Check that the image path exists and is readable."
//	}
package result

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/ironsheep/mask-regions/internal/fault"
	"github.com/ironsheep/mask-regions/internal/regions"
)

// Dimensions is the decoded image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the outcome of one segmentation run.
type Result struct {
	Success bool

	// Success fields.
	ImagePath       string
	ImageDimensions Dimensions
	Masks           []regions.NormalizedMask
	TotalMasks      int

	// Failure fields.
	Error   string
	Message string
}

type successJSON struct {
	Success         bool                     `json:"success"`
	ImagePath       string                   `json:"image_path"`
	ImageDimensions Dimensions               `json:"image_dimensions"`
	Masks           []regions.NormalizedMask `json:"masks"`
	TotalMasks      int                      `json:"total_masks"`
}

type failureJSON struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Assemble builds a success result. TotalMasks is always len(masks).
func Assemble(imagePath string, dims Dimensions, masks []regions.NormalizedMask) *Result {
	if masks == nil {
		masks = []regions.NormalizedMask{}
	}
	return &Result{
		Success:         true,
		ImagePath:       imagePath,
		ImageDimensions: dims,
		Masks:           masks,
		TotalMasks:      len(masks),
	}
}

// Failure builds a failure result from err. The message is the remediation
// hint of err's fault kind.
func Failure(err error) *Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	msg := err.Error()
	if msg == "" {
		msg = fault.KindOf(err).String()
	}
	return &Result{
		Success: false,
		Error:   msg,
		Message: fault.KindOf(err).Hint(),
	}
}

// WithImagePath returns a copy of r reporting path as its image path.
func (r *Result) WithImagePath(path string) *Result {
	c := *r
	c.ImagePath = path
	return &c
}

// MarshalJSON emits the success or failure shape depending on r.Success.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureJSON{
			Success: false,
			Error:   r.Error,
			Message: r.Message,
		})
	}

	masks := r.Masks
	if masks == nil {
		masks = []regions.NormalizedMask{}
	}
	return json.Marshal(successJSON{
		Success:         true,
		ImagePath:       r.ImagePath,
		ImageDimensions: r.ImageDimensions,
		Masks:           masks,
		TotalMasks:      len(masks),
	})
}

// UnmarshalJSON accepts either shape.
func (r *Result) UnmarshalJSON(data []byte) error {
	var probe struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if !probe.Success {
		var f failureJSON
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*r = Result{Error: f.Error, Message: f.Message}
		return nil
	}

	var s successJSON
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Masks == nil {
		s.Masks = []regions.NormalizedMask{}
	}
	*r = Result{
		Success:         true,
		ImagePath:       s.ImagePath,
		ImageDimensions: s.ImageDimensions,
		Masks:           s.Masks,
		TotalMasks:      len(s.Masks),
	}
	return nil
}

// Write encodes r as indented JSON followed by a newline.
func Write(w io.Writer, r *Result) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// Read decodes one result from rd.
func Read(rd io.Reader) (*Result, error) {
	var r Result
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
