// Package server implements the MCP (Model Context Protocol) server for image
// segmentation.
//
// This package provides a JSON-RPC 2.0 server that exposes the mask-regions
// pipeline through the MCP protocol, so MCP-compatible clients can segment
// screenshots and inspect the resulting regions.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - segment_image: Run segmentation and return the full result
//   - image_dimensions: Get width and height
//   - render_regions: Draw region outlines and ids over the image
//   - crop_region: Extract one region's bounding box as PNG
//
// segment_image always answers with a result document. A failed run is
// reported as its failure-shaped result with "isError": true rather than
// as a JSON-RPC error.
//
// # Caching
//
// Decoded images are cached by path for the lifetime of the process.
// Segmentation results are cached by image content and source settings, so
// render_regions and crop_region after segment_image do not run the source
// again.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
package server
