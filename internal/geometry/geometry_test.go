package geometry

import (
	"image"
	"testing"
)

func TestSnapWithinDistance(t *testing.T) {
	view := Dimensions{Width: 100, Height: 100}
	points := []Point{{X: 0.5, Y: 0.5}, {X: 0.8, Y: 0.5}}

	got := Snap(Point{X: 0.55, Y: 0.52}, points, view)
	if got != points[0] {
		t.Fatalf("expected snap to %v, got %v", points[0], got)
	}

	far := Point{X: 0.7, Y: 0.7}
	if got := Snap(far, points, view); got != far {
		t.Fatalf("expected %v unchanged, got %v", far, got)
	}
}

func TestSnapUsesDisplayedPixels(t *testing.T) {
	points := []Point{{X: 0, Y: 0}}
	cursor := Point{X: 0.05, Y: 0}

	if got := Snap(cursor, points, Dimensions{Width: 100, Height: 100}); got != points[0] {
		t.Fatalf("5px away should snap, got %v", got)
	}
	if got := Snap(cursor, points, Dimensions{Width: 1000, Height: 1000}); got != cursor {
		t.Fatalf("50px away should not snap, got %v", got)
	}
}

func TestSnapEmpty(t *testing.T) {
	p := Point{X: 0.1, Y: 0.2}
	if got := Snap(p, nil, Dimensions{Width: 10, Height: 10}); got != p {
		t.Fatalf("got %v", got)
	}
	if IsClosed(p, nil) {
		t.Fatal("empty polygon cannot be closed")
	}
}

func TestSortCornersAllQuadrants(t *testing.T) {
	want1, want2 := Point{X: 0.2, Y: 0.3}, Point{X: 0.6, Y: 0.7}
	pairs := [][2]Point{
		{{X: 0.2, Y: 0.3}, {X: 0.6, Y: 0.7}},
		{{X: 0.6, Y: 0.7}, {X: 0.2, Y: 0.3}},
		{{X: 0.6, Y: 0.3}, {X: 0.2, Y: 0.7}},
		{{X: 0.2, Y: 0.7}, {X: 0.6, Y: 0.3}},
	}
	for _, p := range pairs {
		a, b := SortCorners(p[0], p[1])
		if a != want1 || b != want2 {
			t.Fatalf("SortCorners(%v, %v) = %v, %v", p[0], p[1], a, b)
		}
	}
}

func TestPixelAndScale(t *testing.T) {
	d := Dimensions{Width: 5, Height: 5}
	if got := d.Pixel(Point{X: 0.2, Y: 0.2}); got != image.Pt(1, 1) {
		t.Fatalf("got %v", got)
	}
	s := Dimensions{Width: 10, Height: 10}.ScaleTo(Dimensions{Width: 20, Height: 5})
	if got := s.Apply(image.Pt(3, 4)); got != image.Pt(6, 2) {
		t.Fatalf("got %v", got)
	}
}
