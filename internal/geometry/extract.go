package geometry

// Box is an axis-aligned bounding box in pixel coordinates.
// (X, Y) is the top-left foreground cell; Width and Height count cells.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

func (p Point) add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Polygon is a closed outline flattened as [x0, y0, x1, y1, ...].
// The last point connects back to the first.
type Polygon []int

// Len returns the number of points in the polygon.
func (p Polygon) Len() int {
	return len(p) / 2
}

// Point returns the i-th vertex.
func (p Polygon) Point(i int) Point {
	return Point{X: p[2*i], Y: p[2*i+1]}
}

// MinPolygonPoints is the smallest number of vertices an outline must keep
// after compression to be reported.
const MinPolygonPoints = 3

// Geometry is everything derived from one mask grid.
type Geometry struct {
	// Box is the tight bounding box. Zero when Area is zero.
	Box Box

	// Area is the number of foreground cells.
	Area int

	// Contours holds one outline per connected component, in raster order of
	// each component's first pixel. Never nil.
	Contours []Polygon
}

// Empty reports whether the mask had no foreground cells.
func (g Geometry) Empty() bool {
	return g.Area == 0
}

// Extract computes the bounding box, area and contours of m.
func Extract(m *Mask) Geometry {
	box, ok := BoundingBox(m)
	if !ok {
		return Geometry{Contours: []Polygon{}}
	}
	return Geometry{
		Box:      box,
		Area:     Area(m),
		Contours: Contours(m),
	}
}

// BoundingBox returns the tight box over all foreground cells.
// ok is false when the mask has no foreground.
func BoundingBox(m *Mask) (box Box, ok bool) {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1

	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if !v {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}

	if maxX < 0 {
		return Box{}, false
	}
	return Box{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}, true
}

// Area counts the foreground cells of m.
func Area(m *Mask) int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Component describes one 8-connected foreground region.
type Component struct {
	// Start is the first pixel of the component met by a raster scan.
	// Its west neighbour is always background.
	Start Point

	// Pixels is the number of cells in the component.
	Pixels int
}

// Components labels the 8-connected foreground regions of m.
//
// The returned slice is ordered by Start in raster order. labels holds, for
// each cell in row-major order, the 1-based index of its component, or 0
// for background.
func Components(m *Mask) (comps []Component, labels []int32) {
	labels = make([]int32, len(m.Pix))
	comps = make([]Component, 0)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if !m.Pix[i] || labels[i] != 0 {
				continue
			}
			label := int32(len(comps) + 1)
			n := floodFill(m, labels, x, y, label)
			comps = append(comps, Component{Start: Point{X: x, Y: y}, Pixels: n})
		}
	}
	return comps, labels
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions. Writes label into every reached cell and returns the
// number of cells labelled. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(m *Mask, labels []int32, startX, startY int, label int32) int {
	stack := []Point{{X: startX, Y: startY}}
	count := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !m.At(p.X, p.Y) {
			continue
		}
		i := p.Y*m.Width + p.X
		if labels[i] != 0 {
			continue
		}

		labels[i] = label
		count++

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return count
}

// Contours returns the compressed outer outline of every connected component
// of m, dropping outlines with fewer than MinPolygonPoints vertices.
// The result is never nil.
func Contours(m *Mask) []Polygon {
	comps, _ := Components(m)
	polygons := make([]Polygon, 0, len(comps))

	for _, c := range comps {
		poly := compress(traceBorder(m, c.Start))
		if poly.Len() < MinPolygonPoints {
			continue
		}
		polygons = append(polygons, poly)
	}
	return polygons
}
