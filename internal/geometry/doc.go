// Package geometry derives bounding boxes, pixel areas and polygon outlines
// from binary pixel masks.
//
// A Mask is a row-major boolean grid. Extract computes everything the rest
// of the module needs from one grid in a single call:
//
//   - Bounding box: the tight axis-aligned box over all foreground cells.
//   - Area: the number of foreground cells (not the box area).
//   - Contours: one closed polygon per 8-connected foreground component.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Cells outside the grid are treated as background.
//
// # Contour Order
//
// Components are reported in the order their first pixel is met by a
// top-to-bottom, left-to-right raster scan. Each outline starts at that
// pixel and runs counter-clockwise on screen (down the left edge first).
// Only the outer boundary of a component is traced; holes are not reported.
//
// Straight runs are compressed to their end points, so an axis-aligned
// rectangle yields exactly four points. Outlines with fewer than three
// points after compression (single pixels, straight lines) are dropped.
//
// For identical input every function in this package returns identical
// output.
package geometry
