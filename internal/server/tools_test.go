package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"segment_image",
		"image_dimensions",
		"render_regions",
		"crop_region",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("InputSchema required should be []string")
			}
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required property %s is not defined", r)
				}
			}
			if _, ok := props["path"]; !ok {
				t.Error("every tool takes a path")
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	want := map[string][]string{
		"segment_image":    {"path"},
		"image_dimensions": {"path"},
		"render_regions":   {"path"},
		"crop_region":      {"path", "mask_id"},
	}

	for _, tool := range GetToolDefinitions() {
		got := tool.InputSchema["required"].([]string)
		if len(got) != len(want[tool.Name]) {
			t.Errorf("%s required: got %v, want %v", tool.Name, got, want[tool.Name])
			continue
		}
		for i := range got {
			if got[i] != want[tool.Name][i] {
				t.Errorf("%s required: got %v, want %v", tool.Name, got, want[tool.Name])
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be []Tool")
	}
	if len(tools) != 4 {
		t.Errorf("tool count: got %d, want 4", len(tools))
	}
}
