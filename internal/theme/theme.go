// Package theme defines the palettes used to draw regions over a frame.
package theme

import (
	"image/color"
)

// Theme is the overlay palette. Alpha is honoured when regions are
// composited over the frame.
type Theme struct {
	Name string

	// Committed regions
	Box     color.RGBA
	Polygon color.RGBA
	Mask    color.RGBA

	// The region being drawn or edited
	Active color.RGBA
	// Cells a flood fill examined without matching
	Visited color.RGBA
	// Polygon vertex handles
	Vertex color.RGBA

	// Region captions
	Caption           color.RGBA
	CaptionBackground color.RGBA
}

// Default returns the built-in palette.
func Default() *Theme {
	return &Theme{
		Name:              "Default",
		Box:               color.RGBA{0, 200, 83, 255},
		Polygon:           color.RGBA{41, 121, 255, 255},
		Mask:              color.RGBA{255, 0, 0, 127},
		Active:            color.RGBA{0, 0, 255, 127},
		Visited:           color.RGBA{255, 255, 0, 127},
		Vertex:            color.RGBA{255, 255, 255, 255},
		Caption:           color.RGBA{255, 255, 255, 255},
		CaptionBackground: color.RGBA{0, 0, 0, 160},
	}
}
