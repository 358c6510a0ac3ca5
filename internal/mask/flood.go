package mask

import (
	"fmt"
	"image"
	"math"

	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/logging"
)

// MaxIterations bounds the number of nodes a single fill dequeues.
const MaxIterations = 1_000_000

// directions are visited in this order; the index doubles as the bit used
// in the per-cell direction set.
var directions = [...]image.Point{
	{X: 0, Y: -1}, // north
	{X: -1, Y: 0}, // west
	{X: 0, Y: 1},  // south
	{X: 1, Y: 0},  // east
}

// FillOptions controls a single Fill call.
type FillOptions struct {
	// Threshold is the colour distance tolerance. Negative disables growth.
	Threshold int
	// Radius is the half extent of the seed block in normalized units.
	Radius geometry.Vec
	// Previous is merged into the result and never modified.
	Previous *Bitmap
	// Inverse erases the seed block from Previous instead of growing.
	Inverse bool
	// Pool supplies the result buffer. Nil allocates.
	Pool *Pool
}

type floodNode struct {
	pt  image.Point
	hsv [3]byte
}

// Fill grows a mask from seed over img. The result is always a newly
// allocated bitmap.
func Fill(seed geometry.Point, img *colorspace.Image, opts FillOptions) (*Bitmap, error) {
	if opts.Previous != nil && opts.Previous.Len() != img.Width*img.Height {
		return nil, fmt.Errorf("mask %dx%d (%d cells) and canvas %dx%d: %w",
			opts.Previous.Width, opts.Previous.Height, opts.Previous.Len(),
			img.Width, img.Height, ErrIncompatibleDimensions)
	}
	if opts.Inverse && opts.Previous != nil {
		out := opts.Pool.Get(opts.Previous.Dimensions)
		copy(out.Values, opts.Previous.Values)
		Unfill(seed, out, opts.Radius)
		return out, nil
	}

	dims := img.Dimensions()
	if opts.Previous != nil {
		dims = opts.Previous.Dimensions
	}
	out := opts.Pool.Get(dims)
	if dims.Empty() || img.Dimensions().Empty() {
		return out, nil
	}
	BlockFill(out, Kernel(seed, opts.Radius, dims), Matched)

	limit := MaxIterations
	if opts.Threshold < 0 || !img.Available() {
		limit = 0
	}
	if limit > 0 {
		f := &flood{
			img:        img,
			out:        out,
			seen:       newDirectionSet(out.Len()),
			scale:      img.Dimensions().ScaleTo(dims),
			threshold2: opts.Threshold * opts.Threshold,
		}
		f.run(edgeCells(Kernel(seed, opts.Radius, img.Dimensions())), limit)
		f.markVisited()
	}

	if opts.Previous != nil {
		for i, v := range opts.Previous.Values {
			if NodeStatus(v) == Matched {
				out.Values[i] = byte(Matched)
			}
		}
	}

	if img.Available() {
		k := image.Pt(
			int(math.Round(opts.Radius.DX*float64(dims.Width))),
			int(math.Round(opts.Radius.DY*float64(dims.Height))),
		)
		if k.X > 0 && k.Y > 0 {
			Dilate(out, k)
		}
	}
	return out, nil
}

type flood struct {
	img        *colorspace.Image
	out        *Bitmap
	seen       directionSet
	scale      geometry.Scale
	threshold2 int
}

func (f *flood) run(targets []image.Point, limit int) {
	queue := make([]floodNode, 0, len(targets))
	for _, pt := range targets {
		if hsv, ok := f.img.At(pt.X, pt.Y); ok {
			queue = append(queue, floodNode{pt: pt, hsv: hsv})
		}
	}
	head, count := 0, 0
	for head < len(queue) && count < limit {
		node := queue[head]
		head++
		for di, d := range directions {
			pt := node.pt.Add(d)
			hsv, ok := f.img.At(pt.X, pt.Y)
			if !ok {
				continue
			}
			i := f.maskIndex(pt)
			if NodeStatus(f.out.Values[i]) == Matched || f.seen.has(i, di) {
				continue
			}
			f.seen.mark(i, di)
			if similar(node.hsv, hsv, f.threshold2) {
				f.out.Values[i] = byte(Matched)
				queue = append(queue, floodNode{pt: pt, hsv: hsv})
			}
		}
		count++
	}
	if count >= limit && head < len(queue) {
		logging.Warn("flood fill stopped after %d iterations with %d nodes queued", count, len(queue)-head)
	}
}

// maskIndex converts an image-space pixel to a mask cell index.
func (f *flood) maskIndex(pt image.Point) int {
	m := f.scale.Apply(pt)
	m.X = clamp(m.X, 0, f.out.Width-1)
	m.Y = clamp(m.Y, 0, f.out.Height-1)
	return m.Y*f.out.Width + m.X
}

func (f *flood) markVisited() {
	for i := range f.out.Values {
		if f.seen.any(i) && NodeStatus(f.out.Values[i]) != Matched {
			f.out.Values[i] = byte(Visited)
		}
	}
}

// similar reports whether two HSV triples lie within threshold2. Hue wraps
// at 255 and its delta is doubled.
func similar(a, b [3]byte, threshold2 int) bool {
	return Distance2(a, b) <= threshold2
}

// Distance2 is the squared colour distance used by Fill.
func Distance2(a, b [3]byte) int {
	dh := abs(int(b[0]) - int(a[0]))
	dh = min(dh, 255-dh) * 2
	ds := abs(int(b[1]) - int(a[1]))
	dv := abs(int(b[2]) - int(a[2]))
	return dh*dh + ds*ds + dv*dv
}

// Kernel returns the seed block for a point and radius in the pixel space of
// d. The block is clipped to the raster and is never empty.
func Kernel(p geometry.Point, r geometry.Vec, d geometry.Dimensions) image.Rectangle {
	x := clamp(int(math.Round((p.X-r.DX)*float64(d.Width))), 0, d.Width-1)
	y := clamp(int(math.Round((p.Y-r.DY)*float64(d.Height))), 0, d.Height-1)
	kx := int(math.Round((2*r.DX + math.Min(0, p.X-r.DX)) * float64(d.Width)))
	ky := int(math.Round((2*r.DY + math.Min(0, p.Y-r.DY)) * float64(d.Height)))
	kx = clamp(kx, 1, d.Width-x)
	ky = clamp(ky, 1, d.Height-y)
	return image.Rect(x, y, x+kx, y+ky)
}

// edgeCells lists the cells on the inside border of r in row-major order.
func edgeCells(r image.Rectangle) []image.Point {
	var out []image.Point
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if y == r.Min.Y || y == r.Max.Y-1 || x == r.Min.X || x == r.Max.X-1 {
				out = append(out, image.Pt(x, y))
			}
		}
	}
	return out
}

// BlockFill writes s into every cell of r that lies inside b.
func BlockFill(b *Bitmap, r image.Rectangle, s NodeStatus) {
	r = r.Intersect(image.Rect(0, 0, b.Width, b.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := y * b.Width
		fill(b.Values[row+r.Min.X:row+r.Max.X], s)
	}
}

// Unfill clears the seed block around p in place.
func Unfill(p geometry.Point, b *Bitmap, radius geometry.Vec) {
	if b.Dimensions.Empty() {
		return
	}
	BlockFill(b, Kernel(p, radius, b.Dimensions), Unknown)
}

// Dilate fills every k sized block whose four corners are matched. It scans
// rows top to bottom and skips past each block it fills.
func Dilate(b *Bitmap, k image.Point) {
	if k.X <= 0 || k.Y <= 0 {
		return
	}
	matched := func(x, y int) bool {
		return x < b.Width && y < b.Height && NodeStatus(b.Values[y*b.Width+x]) == Matched
	}
	for row := 0; row <= b.Height-k.Y; row++ {
		col := 0
		for col <= b.Width-k.X {
			if matched(col, row) && matched(col+k.X, row) &&
				matched(col+k.X, row+k.Y) && matched(col, row+k.Y) {
				BlockFill(b, image.Rect(col, row, col+k.X, row+k.Y), Matched)
				col += k.X
			} else {
				col++
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
