package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/mask-regions/internal/imaging"
	"github.com/ironsheep/mask-regions/internal/pipeline"
	"github.com/ironsheep/mask-regions/internal/result"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "segment_image", "crop_region").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// A segment_image run that fails still produces content (the failure-shaped
// result) with "isError" set. Other tool errors return a JSON-RPC error
// response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	out, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	content := map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": mustMarshalJSON(out),
			},
		},
	}
	if r, ok := out.(*result.Result); ok && !r.Success {
		content["isError"] = true
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  content,
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "segment_image":
		return s.handleSegmentImage(ctx, args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "render_regions":
		return s.handleRenderRegions(ctx, args)
	case "crop_region":
		return s.handleCropRegion(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// segment runs the pipeline for the named source.
func (s *Server) segment(ctx context.Context, path, checkpoint, source string) (*result.Result, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	p, err := s.factory.Get(source)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, pipeline.Request{ImagePath: path, Checkpoint: checkpoint}), nil
}

// segmentOrFail is segment for tools that need a successful result.
func (s *Server) segmentOrFail(ctx context.Context, path, source string) (*result.Result, error) {
	res, err := s.segment(ctx, path, "", source)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("segmentation failed: %s (%s)", res.Error, res.Message)
	}
	return res, nil
}

// === Segmentation Handlers ===

type segmentImageArgs struct {
	Path       string `json:"path"`
	Checkpoint string `json:"checkpoint"`
	Source     string `json:"source"`
}

func (s *Server) handleSegmentImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a segmentImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.segment(ctx, a.Path, a.Checkpoint, a.Source)
}

// === Basic Image Information Handlers ===

type imageDimensionsArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageDimensionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Region Rendering Handlers ===

type renderRegionsArgs struct {
	Path       string `json:"path"`
	Output     string `json:"output"`
	ShowLabels *bool  `json:"show_labels"`
	Source     string `json:"source"`
}

type savedOverlay struct {
	Output  string `json:"output"`
	Regions int    `json:"regions"`
}

func (s *Server) handleRenderRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a renderRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := imaging.OverlayOptions{ShowLabels: true}
	if a.ShowLabels != nil {
		opts.ShowLabels = *a.ShowLabels
	}

	res, err := s.segmentOrFail(ctx, a.Path, a.Source)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	if a.Output != "" {
		if err := imaging.SaveOverlay(a.Output, img, res.Masks, opts); err != nil {
			return nil, err
		}
		return &savedOverlay{Output: a.Output, Regions: len(res.Masks)}, nil
	}
	return imaging.RenderOverlay(img, res.Masks, opts)
}

type cropRegionArgs struct {
	Path   string  `json:"path"`
	MaskID *int    `json:"mask_id"`
	Scale  float64 `json:"scale"`
	Source string  `json:"source"`
}

func (s *Server) handleCropRegion(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cropRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MaskID == nil {
		return nil, errors.New("mask_id is required")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	res, err := s.segmentOrFail(ctx, a.Path, a.Source)
	if err != nil {
		return nil, err
	}
	id := *a.MaskID
	if id < 0 || id >= len(res.Masks) {
		return nil, fmt.Errorf("mask_id %d out of range (image has %d regions)", id, len(res.Masks))
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropRegion(img, res.Masks[id].BBox, a.Scale)
}
