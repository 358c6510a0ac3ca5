// Package render draws labeled regions over a frame for previews.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"sort"
	"strings"

	"github.com/example/regionkit/internal/draft"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/theme"
)

// Options configures Overlay.
type Options struct {
	Theme     *theme.Theme
	Thickness int
	Captions  bool
	// Visited shades cells a flood fill examined without matching in the
	// active mask.
	Visited bool
}

// DefaultOptions returns options using the built-in theme.
func DefaultOptions() Options {
	return Options{Theme: theme.Default(), Thickness: 2, Captions: true, Visited: true}
}

// Overlay returns a copy of frame with the committed regions and the active
// region of s drawn on top. A nil frame yields a transparent canvas sized
// from the label dimensions or the first mask.
func Overlay(frame image.Image, s draft.State, opts Options) *image.RGBA {
	if opts.Theme == nil {
		opts.Theme = theme.Default()
	}
	if opts.Thickness <= 0 {
		opts.Thickness = 1
	}
	dst := canvasFor(frame, s)
	size := geometry.Dimensions{Width: dst.Bounds().Dx(), Height: dst.Bounds().Dy()}
	if size.Empty() {
		return dst
	}
	th := opts.Theme

	activeIdx := -1
	activeMode := s.Drawing.Mode
	if s.Drawing.Active != nil {
		activeIdx = s.Drawing.Active.Index()
	}
	skip := func(m draft.Mode, i int) bool { return activeIdx >= 0 && activeMode == m && activeIdx == i }

	for i, m := range s.Labels.Masks {
		if skip(draft.Masks, i) {
			continue
		}
		fillMask(dst, m.Map, th.Mask, color.RGBA{})
	}
	for i, b := range s.Labels.Boxes {
		if skip(draft.Boxes, i) {
			continue
		}
		strokeBox(dst, size, b, th.Box, opts.Thickness)
	}
	for i, p := range s.Labels.Polygons {
		if skip(draft.Polygons, i) {
			continue
		}
		strokePolygon(dst, size, p.Points, th.Polygon, opts.Thickness, true)
	}

	switch a := s.Drawing.Active.(type) {
	case *draft.ActiveBox:
		strokeBox(dst, size, a.Region, th.Active, opts.Thickness)
	case *draft.ActivePolygon:
		strokePolygon(dst, size, a.Region.Points, th.Active, opts.Thickness, false)
		for _, p := range a.Region.Points {
			drawHandle(dst, size.Pixel(p), th.Vertex, opts.Thickness)
		}
	case *draft.ActiveMask:
		visited := color.RGBA{}
		if opts.Visited {
			visited = th.Visited
		}
		fillMask(dst, a.Region.Map, th.Active, visited)
	}

	if opts.Captions {
		drawCaptions(dst, size, s, th)
	}
	return dst
}

// MaskImage returns b as a grayscale image with one pixel per cell.
func MaskImage(b *mask.Bitmap) *image.Gray {
	if b == nil {
		return image.NewGray(image.Rectangle{})
	}
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Values)
	return img
}

func canvasFor(frame image.Image, s draft.State) *image.RGBA {
	if frame != nil {
		b := frame.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)
		return dst
	}
	var size geometry.Dimensions
	switch {
	case s.Labels.Dimensions != nil:
		size = *s.Labels.Dimensions
	case s.Canvas != nil:
		size = s.Canvas.Dimensions()
	default:
		if maps := s.Bitmaps(); len(maps) > 0 {
			size = maps[0].Dimensions
		}
	}
	if size.Empty() {
		return image.NewRGBA(image.Rectangle{})
	}
	return image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
}

func strokeBox(dst *image.RGBA, size geometry.Dimensions, b labels.Box, col color.Color, thick int) {
	b = b.Sorted()
	pt2 := b.PT1
	if b.PT2 != nil {
		pt2 = *b.PT2
	}
	p1 := size.Pixel(b.PT1)
	p2 := size.Pixel(pt2)
	drawRect(dst, image.Rectangle{Min: p1, Max: p2.Add(image.Pt(1, 1))}, col, thick)
}

func strokePolygon(dst *image.RGBA, size geometry.Dimensions, pts []geometry.Point, col color.Color, thick int, closed bool) {
	if len(pts) == 0 {
		return
	}
	prev := size.Pixel(pts[0])
	setThickPixel(dst, prev.X, prev.Y, thick, col)
	for _, p := range pts[1:] {
		cur := size.Pixel(p)
		drawLine(dst, prev.X, prev.Y, cur.X, cur.Y, col, thick)
		prev = cur
	}
	if closed && len(pts) > 2 {
		first := size.Pixel(pts[0])
		drawLine(dst, prev.X, prev.Y, first.X, first.Y, col, thick)
	}
}

// fillMask composites matched cells in matched and visited cells in visited,
// scaling the bitmap to dst. A zero colour skips that status.
func fillMask(dst *image.RGBA, b *mask.Bitmap, matched, visited color.RGBA) {
	if b == nil || b.Empty() {
		return
	}
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	matchedSrc := image.NewUniform(matched)
	visitedSrc := image.NewUniform(visited)
	for y := 0; y < h; y++ {
		my := y * b.Height / h
		for x := 0; x < w; x++ {
			mx := x * b.Width / w
			var src *image.Uniform
			switch mask.NodeStatus(b.Values[my*b.Width+mx]) {
			case mask.Matched:
				if matched.A == 0 {
					continue
				}
				src = matchedSrc
			case mask.Visited:
				if visited.A == 0 {
					continue
				}
				src = visitedSrc
			default:
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			draw.Draw(dst, r, src, image.Point{}, draw.Over)
		}
	}
}

func drawCaptions(dst *image.RGBA, size geometry.Dimensions, s draft.State, th *theme.Theme) {
	for _, b := range s.Labels.Boxes {
		drawCaption(dst, size.Pixel(b.Sorted().PT1), caption(b.Labels), th.Caption, th.CaptionBackground)
	}
	for _, p := range s.Labels.Polygons {
		if len(p.Points) == 0 {
			continue
		}
		topLeft, _ := geometry.Bounds(p.Points)
		drawCaption(dst, size.Pixel(topLeft), caption(p.Labels), th.Caption, th.CaptionBackground)
	}
}

// caption renders label data as "name=a,b name2=c" with sorted names.
func caption(d labels.LabelData) string {
	names := make([]string, 0, len(d))
	for name, values := range d {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(d[name], ","))
	}
	return strings.Join(parts, " ")
}
