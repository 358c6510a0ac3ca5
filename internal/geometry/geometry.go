// Package geometry holds the coordinate types shared by the mask engine and
// the draft state machine.
//
// Points are normalized to [0,1] relative to the media they annotate. Pixel
// positions use image.Point and are only produced through explicit scaling.
package geometry

import (
	"image"
	"math"
)

// SnapDistance is the distance, in displayed pixels, within which a new
// polygon vertex is replaced by the polygon's first vertex.
const SnapDistance = 10

// Point is a normalized coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is a normalized offset.
type Vec struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Scale converts between two raster spaces.
type Scale struct {
	SX float64
	SY float64
}

// Dimensions is the pixel size of a raster.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the pixel count.
func (d Dimensions) Area() int { return d.Width * d.Height }

// Empty reports whether either side is zero or negative.
func (d Dimensions) Empty() bool { return d.Width <= 0 || d.Height <= 0 }

// ScaleTo returns the scale that maps d onto other.
func (d Dimensions) ScaleTo(other Dimensions) Scale {
	return Scale{
		SX: float64(other.Width) / float64(d.Width),
		SY: float64(other.Height) / float64(d.Height),
	}
}

// Pixel converts a normalized point into a pixel position, rounding half away
// from zero.
func (d Dimensions) Pixel(p Point) image.Point {
	return image.Pt(int(math.Round(p.X*float64(d.Width))), int(math.Round(p.Y*float64(d.Height))))
}

// Apply scales a pixel position, rounding to the nearest pixel.
func (s Scale) Apply(p image.Point) image.Point {
	return image.Pt(int(math.Round(float64(p.X)*s.SX)), int(math.Round(float64(p.Y)*s.SY)))
}

// Distance2 returns the squared distance between two points. When dims is
// non-nil the deltas are measured in its pixels.
func Distance2(a, b Point, dims *Dimensions) float64 {
	w, h := 1.0, 1.0
	if dims != nil {
		w, h = float64(dims.Width), float64(dims.Height)
	}
	dx := (a.X - b.X) * w
	dy := (a.Y - b.Y) * h
	return dx*dx + dy*dy
}

// Snap returns the first point of points when cursor lies within
// SnapDistance displayed pixels of it, otherwise cursor unchanged.
func Snap(cursor Point, points []Point, view Dimensions) Point {
	if len(points) == 0 {
		return cursor
	}
	start := points[0]
	if math.Sqrt(Distance2(start, cursor, &view)) > SnapDistance {
		return cursor
	}
	return start
}

// IsClosed reports whether candidate coincides with the first point.
func IsClosed(candidate Point, points []Point) bool {
	if len(points) == 0 {
		return false
	}
	return candidate == points[0]
}

// SortCorners returns the top-left and bottom-right corners of the box
// spanned by a and b.
func SortCorners(a, b Point) (Point, Point) {
	return Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
}

// Bounds returns the extent of points.
func Bounds(points []Point) (min, max Point) {
	if len(points) == 0 {
		return
	}
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return
}
