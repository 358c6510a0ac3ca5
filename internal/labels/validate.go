package labels

import (
	"errors"
	"fmt"

	"github.com/example/regionkit/internal/geometry"
)

// ErrInvalid reports a label tree that cannot be persisted.
var ErrInvalid = errors.New("invalid labels")

// Validate checks coordinate ranges, box completeness and the RLE sum
// invariant of every mask.
func Validate(l Labels) error {
	for i, b := range l.Boxes {
		if b.PT2 == nil {
			return fmt.Errorf("box %d has no second corner: %w", i, ErrInvalid)
		}
		if err := checkPoints(b.PT1, *b.PT2); err != nil {
			return fmt.Errorf("box %d: %w", i, err)
		}
	}
	for i, p := range l.Polygons {
		if len(p.Points) == 0 {
			return fmt.Errorf("polygon %d has no points: %w", i, ErrInvalid)
		}
		if err := checkPoints(p.Points...); err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
	}
	for i, m := range l.Masks {
		if err := m.Map.Validate(); err != nil {
			return fmt.Errorf("mask %d: %w: %w", i, ErrInvalid, err)
		}
	}
	if l.Dimensions != nil && (l.Dimensions.Width < 0 || l.Dimensions.Height < 0) {
		return fmt.Errorf("dimensions %dx%d: %w", l.Dimensions.Width, l.Dimensions.Height, ErrInvalid)
	}
	return nil
}

func checkPoints(points ...geometry.Point) error {
	for _, p := range points {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return fmt.Errorf("point (%g, %g) outside [0,1]: %w", p.X, p.Y, ErrInvalid)
		}
	}
	return nil
}
