// Package fault classifies the errors that can abort a segmentation run.
//
// Every error surfaced to a caller is wrapped in an *Error carrying a Kind.
// The kind selects the remediation hint shown next to the error text in a
// failure result.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies a class of run failure.
type Kind int

const (
	// Unknown is any failure that was not classified at its origin.
	Unknown Kind = iota

	// MissingDependency means a collaborator or runtime is not available.
	MissingDependency

	// ImageNotFound means the input image path does not exist.
	ImageNotFound

	// ImageDecodeFailure means the input exists but could not be decoded.
	ImageDecodeFailure

	// ModelArtifactNotFound means no model checkpoint was found in any
	// configured search location.
	ModelArtifactNotFound

	// MaskExtractionFailure means a raw mask had an unexpected shape or type.
	MaskExtractionFailure

	// SourceFailure means the mask source failed for another reason.
	SourceFailure
)

var kindNames = map[Kind]string{
	Unknown:               "Unknown",
	MissingDependency:     "MissingDependency",
	ImageNotFound:         "ImageNotFound",
	ImageDecodeFailure:    "ImageDecodeFailure",
	ModelArtifactNotFound: "ModelArtifactNotFound",
	MaskExtractionFailure: "MaskExtractionFailure",
	SourceFailure:         "SourceFailure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Hint returns a short remediation message for the kind.
func (k Kind) Hint() string {
	switch k {
	case MissingDependency:
		return "Install the missing runtime or dependency and retry."
	case ImageNotFound:
		return "Check that the image path exists and is readable."
	case ImageDecodeFailure:
		return "Supply a PNG, JPEG, GIF, BMP, TIFF or WebP image."
	case ModelArtifactNotFound:
		return "Download the model checkpoint or pass -checkpoint with its path."
	case MaskExtractionFailure:
		return "The mask source produced malformed masks; check its version and output format."
	case SourceFailure:
		return "The mask source failed; see the error for details."
	default:
		return "Please verify dependencies and checkpoint files."
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "load image".
	Op string
	// Path is the file involved, if any.
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf returns an *Error of the given kind with a formatted cause.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
