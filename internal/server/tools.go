package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var sourceProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"sam", "mock", "threshold"},
	"description": "Mask source to run. Defaults to the configured source",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Segmentation
		{
			Name:        "segment_image",
			Description: "Segment an image into regions. Returns each region's bounding box, pixel area, outline polygons and quality scores, ordered and numbered from 0.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"checkpoint": map[string]interface{}{
						"type":        "string",
						"description": "Optional model checkpoint path, tried before the configured search list",
					},
					"source": sourceProperty,
				},
				"required": []string{"path"},
			},
		},

		// Basic Image Information
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Region Rendering
		{
			Name:        "render_regions",
			Description: "Segment an image and draw every region's outline and id over it. Returns base64 PNG, or writes the overlay to 'output' when given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the overlay to; format follows the extension",
					},
					"show_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw region ids at each bounding box. Default true",
						"default":     true,
					},
					"source": sourceProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "crop_region",
			Description: "Crop the bounding box of one segmented region and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"mask_id": map[string]interface{}{
						"type":        "integer",
						"description": "Region id from segment_image",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
					"source": sourceProperty,
				},
				"required": []string{"path", "mask_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
