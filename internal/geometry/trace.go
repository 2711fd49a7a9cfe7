package geometry

// chain holds the eight neighbour offsets indexed by chain code.
// Code 0 points east and codes increase counter-clockwise on screen
// (1 is north-east, 2 is north, with y growing downward).
var chain = [8]Point{
	{X: 1, Y: 0},
	{X: 1, Y: -1},
	{X: 0, Y: -1},
	{X: -1, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 0, Y: 1},
	{X: 1, Y: 1},
}

const west = 4

// traceBorder follows the outer border of the component whose raster-first
// pixel is start, returning every boundary pixel in traversal order.
//
// # Algorithm
//
// This is the outer-border case of Suzuki-Abe border following:
//
//  1. The west neighbour of start is background. Search start's neighbours
//     clockwise from west for the first foreground pixel p1. If there is
//     none the component is a single pixel.
//  2. From the current pixel, search counter-clockwise starting one step
//     past the pixel we arrived from. The first foreground pixel found is
//     the next boundary pixel.
//  3. Stop when the walk is about to return to start from p1, which is the
//     state the walk began in.
//
// Pixels where the border pinches (one-pixel bridges) are reported once per
// visit, so the perimeter can repeat coordinates.
func traceBorder(m *Mask, start Point) []Point {
	first := -1
	for i := 1; i <= 8; i++ {
		d := (west - i + 8) % 8
		p := start.add(chain[d])
		if m.At(p.X, p.Y) {
			first = d
			break
		}
	}
	if first < 0 {
		return []Point{start}
	}

	p1 := start.add(chain[first])
	cur := start
	back := first
	points := make([]Point, 0, 64)

	for {
		next, dir := cur, back
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			q := cur.add(chain[d])
			if m.At(q.X, q.Y) {
				next, dir = q, d
				break
			}
		}

		points = append(points, cur)
		if next == start && cur == p1 {
			break
		}
		back = (dir + 4) % 8
		cur = next
	}
	return points
}

// compress drops every boundary pixel that lies on a straight run, keeping
// only the points where the walking direction changes. The outline is
// treated as closed, so the first point is kept only if it is a corner.
func compress(points []Point) Polygon {
	n := len(points)
	poly := make(Polygon, 0, 8)

	for k, p := range points {
		prev := points[(k-1+n)%n]
		next := points[(k+1)%n]
		if p.sub(prev) == next.sub(p) {
			continue
		}
		poly = append(poly, p.X, p.Y)
	}
	return poly
}
