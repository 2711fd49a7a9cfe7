// Package imaging loads images for the segmentation pipeline and renders
// region results back onto them.
//
// Decoding goes through github.com/disintegration/imaging with EXIF
// auto-orientation, so reported dimensions match what a viewer shows. PNG,
// JPEG, GIF, BMP, TIFF and WebP inputs are supported. Load failures carry a
// fault kind (ImageNotFound or ImageDecodeFailure) so the pipeline can
// classify them without inspecting messages.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// Region boxes and polygons use the same space as the decoded image.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Decoded images are never
// mutated; overlay and crop functions always work on copies.
//
// # Rendering
//
// DrawRegions outlines every polygon of every mask in a per-id color taken
// from an HCL palette and can label each region with its id. RenderOverlay
// returns the result as base64 PNG for protocol responses; SaveOverlay writes
// it to disk. CropRegion extracts the pixels under one region's box.
package imaging
