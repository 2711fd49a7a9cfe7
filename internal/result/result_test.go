package result

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/ironsheep/mask-regions/internal/fault"
	"github.com/ironsheep/mask-regions/internal/geometry"
	"github.com/ironsheep/mask-regions/internal/regions"
)

func sampleMasks() []regions.NormalizedMask {
	return []regions.NormalizedMask{
		{
			ID:             0,
			BBox:           geometry.Box{X: 10, Y: 10, Width: 40, Height: 20},
			Area:           800,
			Segmentation:   []geometry.Polygon{{10, 10, 10, 29, 49, 29, 49, 10}},
			StabilityScore: 0.96,
			PredictedIOU:   0.9,
		},
		{
			ID:           1,
			BBox:         geometry.Box{X: 0, Y: 0, Width: 1, Height: 1},
			Area:         1,
			Segmentation: []geometry.Polygon{},
		},
	}
}

func TestAssemble_TotalMasks(t *testing.T) {
	r := Assemble("img.png", Dimensions{Width: 100, Height: 80}, sampleMasks())

	if !r.Success {
		t.Error("Assemble should produce a success result")
	}
	if r.TotalMasks != len(r.Masks) {
		t.Errorf("TotalMasks: got %d, want %d", r.TotalMasks, len(r.Masks))
	}

	empty := Assemble("img.png", Dimensions{Width: 1, Height: 1}, nil)
	if empty.Masks == nil || empty.TotalMasks != 0 {
		t.Errorf("empty result: masks=%v total=%d", empty.Masks, empty.TotalMasks)
	}
}

func TestMarshal_SuccessShape(t *testing.T) {
	r := Assemble("img.png", Dimensions{Width: 100, Height: 80}, nil)

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, key := range []string{"success", "image_path", "image_dimensions", "masks", "total_masks"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %q in %s", key, b)
		}
	}
	for _, key := range []string{"error", "message"} {
		if _, ok := fields[key]; ok {
			t.Errorf("unexpected field %q in success result", key)
		}
	}
	if string(fields["masks"]) != "[]" {
		t.Errorf("masks: got %s, want []", fields["masks"])
	}
}

func TestMarshal_TotalMasksRecomputed(t *testing.T) {
	r := Assemble("img.png", Dimensions{Width: 100, Height: 80}, sampleMasks())
	r.TotalMasks = 99

	b, _ := json.Marshal(r)
	if !strings.Contains(string(b), `"total_masks":2`) {
		t.Errorf("total_masks should follow len(masks): %s", b)
	}
}

func TestMarshal_MaskFields(t *testing.T) {
	r := Assemble("img.png", Dimensions{Width: 100, Height: 80}, sampleMasks())
	b, _ := json.Marshal(r)

	var decoded struct {
		Masks []map[string]json.RawMessage `json:"masks"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, key := range []string{"id", "bbox", "area", "segmentation", "stability_score", "predicted_iou"} {
		if _, ok := decoded.Masks[0][key]; !ok {
			t.Errorf("mask missing field %q", key)
		}
	}
	if got := string(decoded.Masks[0]["bbox"]); got != `{"x":10,"y":10,"width":40,"height":20}` {
		t.Errorf("bbox: got %s", got)
	}
	if got := string(decoded.Masks[0]["segmentation"]); got != `[[10,10,10,29,49,29,49,10]]` {
		t.Errorf("segmentation: got %s", got)
	}
	if got := string(decoded.Masks[1]["segmentation"]); got != `[]` {
		t.Errorf("empty segmentation: got %s", got)
	}
}

func TestFailure_Shape(t *testing.T) {
	err := &fault.Error{Kind: fault.ImageNotFound, Op: "image file not found:", Path: "/nope.png"}
	r := Failure(err)

	if r.Success {
		t.Error("Failure should not be successful")
	}
	if !strings.Contains(r.Error, "/nope.png") {
		t.Errorf("Error should contain the path: %q", r.Error)
	}
	if r.Message != fault.ImageNotFound.Hint() {
		t.Errorf("Message: got %q", r.Message)
	}

	b, _ := json.Marshal(r)
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(b, &fields)
	if len(fields) != 3 {
		t.Errorf("failure result should have exactly 3 fields, got %s", b)
	}
	if _, ok := fields["masks"]; ok {
		t.Error("failure result must not carry masks")
	}
}

func TestFailure_NilError(t *testing.T) {
	r := Failure(nil)
	if r.Error == "" || r.Message == "" {
		t.Errorf("failure fields should be non-empty: %+v", r)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []*Result{
		Assemble("shots/screen.png", Dimensions{Width: 100, Height: 80}, sampleMasks()),
		Assemble("empty.png", Dimensions{Width: 3, Height: 4}, nil),
		Failure(fault.Errorf(fault.ModelArtifactNotFound, "checkpoint not found")),
	}

	for _, want := range cases {
		var buf bytes.Buffer
		if err := Write(&buf, want); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, want)
		}
	}
}

func TestWrite_Indented(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Assemble("a.png", Dimensions{Width: 1, Height: 1}, nil)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "{\n  \"success\": true") {
		t.Errorf("unexpected layout:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("output should end with a newline")
	}
}

func TestWithImagePath(t *testing.T) {
	r := Assemble("a.png", Dimensions{Width: 1, Height: 1}, nil)
	c := r.WithImagePath("b.png")
	if c.ImagePath != "b.png" || r.ImagePath != "a.png" {
		t.Errorf("WithImagePath should copy: original %q, copy %q", r.ImagePath, c.ImagePath)
	}
}
