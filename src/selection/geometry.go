package selection

import "math"

// Point is a position in logical UI coordinates.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Size is a width/height pair. It is used for both the logical UI size and
// the raw pixel size of the captured image.
type Size struct {
	Width  float64
	Height float64
}

// Rect is an axis-aligned rectangle with Min as its top-left corner.
type Rect struct {
	Min Point
	Max Point
}

// RectFromPoints returns the normalized rectangle spanned by two corners,
// whatever direction the user dragged in.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// PixelRect is a region of the captured image in raw pixels.
type PixelRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the region has no area.
func (r PixelRect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }
