// Package geom holds the screen-space geometry shared by the overlay engine:
// points, rects, the activation edges and the edge-snap rule.
//
// All coordinates are logical pixels with the origin at the top-left corner
// of the screen.
package geom

import "math"

// Point is a screen coordinate.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Len returns the euclidean length of p treated as a vector.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Size is a width/height pair.
type Size struct {
	W, H float64
}

// Empty reports whether s has no area.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// RectAt returns a rect with top-left at p and size s.
func RectAt(p Point, s Size) Rect { return Rect{X: p.X, Y: p.Y, W: s.W, H: s.H} }

// Min returns the top-left corner.
func (r Rect) Min() Point { return Point{r.X, r.Y} }

// Max returns the bottom-right corner.
func (r Rect) Max() Point { return Point{r.X + r.W, r.Y + r.H} }

// Center returns the centroid of r.
func (r Rect) Center() Point { return Point{r.X + r.W/2, r.Y + r.H/2} }

// Contains reports whether p lies inside r. The right and bottom borders are
// exclusive so adjacent rects never both claim a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Edge identifies a screen edge used for action activation.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeLeft
	EdgeRight
	EdgeTop
	EdgeBottom
)

var edgeNames = [...]string{"none", "left", "right", "top", "bottom"}

func (e Edge) String() string {
	if e < 0 || int(e) >= len(edgeNames) {
		return "unknown"
	}
	return edgeNames[e]
}

// Vertical reports whether the edge runs top to bottom.
func (e Edge) Vertical() bool { return e == EdgeLeft || e == EdgeRight }

// Distances returns the distance from p to the left, right, top and bottom
// screen edges, in that order. p is clamped into the screen first so a
// pointer outside the screen reports zero towards the edge it crossed.
func Distances(p Point, screen Size) [4]float64 {
	x := clamp(p.X, 0, screen.W)
	y := clamp(p.Y, 0, screen.H)
	return [4]float64{x, screen.W - x, y, screen.H - y}
}

// DetectEdge returns the nearest edge whose distance to p is strictly below
// threshold, and that distance. Exact ties resolve left, right, top, bottom.
// It returns EdgeNone when no edge is close enough.
func DetectEdge(p Point, screen Size, threshold float64) (Edge, float64) {
	if threshold <= 0 || screen.Empty() {
		return EdgeNone, 0
	}
	best, bestDist := EdgeNone, math.Inf(1)
	for i, d := range Distances(p, screen) {
		if d < threshold && d < bestDist {
			best, bestDist = Edge(i+1), d
		}
	}
	if best == EdgeNone {
		return EdgeNone, 0
	}
	return best, bestDist
}

// Intensity maps a distance inside the activation band to [0,1]; it reaches 1
// at the edge itself and 0 at the threshold.
func Intensity(distance, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return clamp(1-distance/threshold, 0, 1)
}

// Snap moves r flush against its nearest screen edge and clamps it inside
// the screen on the other axis. Snapping an already snapped rect is a no-op.
func Snap(r Rect, screen Size) Rect {
	if screen.Empty() {
		return r
	}
	maxX := math.Max(screen.W-r.W, 0)
	maxY := math.Max(screen.H-r.H, 0)
	out := r
	out.X = clamp(r.X, 0, maxX)
	out.Y = clamp(r.Y, 0, maxY)

	c := out.Center()
	edge, _ := DetectEdge(c, screen, math.Inf(1))
	switch edge {
	case EdgeLeft:
		out.X = 0
	case EdgeRight:
		out.X = maxX
	case EdgeTop:
		out.Y = 0
	case EdgeBottom:
		out.Y = maxY
	}
	return out
}

// Clamp keeps r fully on screen without snapping it to an edge.
func Clamp(r Rect, screen Size) Rect {
	r.X = clamp(r.X, 0, math.Max(screen.W-r.W, 0))
	r.Y = clamp(r.Y, 0, math.Max(screen.H-r.H, 0))
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
