// Package mask implements the segmentation bitmap, its run-length codec and
// the HSV flood fill that grows masks from a seed point.
package mask

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/regionkit/internal/geometry"
)

// NodeStatus is the value stored for each bitmap cell.
type NodeStatus byte

const (
	Unknown NodeStatus = 0
	Visited NodeStatus = 127
	Matched NodeStatus = 255
)

func (s NodeStatus) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Visited:
		return "visited"
	case Matched:
		return "matched"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

var (
	// ErrIncompatibleDimensions reports a mask whose size does not match the
	// raster it is combined with.
	ErrIncompatibleDimensions = errors.New("incompatible dimensions")
	// ErrMalformedRLE reports run-length counts that do not cover the
	// declared dimensions exactly.
	ErrMalformedRLE = errors.New("malformed rle")
)

// MaxCells bounds the cell count of any bitmap built from external data.
const MaxCells = 1 << 28

// fits reports whether d is non-negative and its area neither overflows nor
// exceeds MaxCells.
func fits(d geometry.Dimensions) bool {
	if d.Width < 0 || d.Height < 0 {
		return false
	}
	return d.Height == 0 || d.Width <= MaxCells/d.Height
}

// Bitmap is a one byte per pixel mask in row-major order.
type Bitmap struct {
	geometry.Dimensions
	Values []byte
}

// New allocates an empty bitmap. Dimensions above MaxCells yield an empty
// bitmap.
func New(d geometry.Dimensions) *Bitmap {
	if d.Empty() || !fits(d) {
		return &Bitmap{Dimensions: d}
	}
	return &Bitmap{Dimensions: d, Values: make([]byte, d.Area())}
}

// FromValues wraps values after checking that they cover d.
func FromValues(d geometry.Dimensions, values []byte) (*Bitmap, error) {
	if !fits(d) || len(values) != d.Area() {
		return nil, fmt.Errorf("%d values for %dx%d bitmap: %w", len(values), d.Width, d.Height, ErrIncompatibleDimensions)
	}
	return &Bitmap{Dimensions: d, Values: values}, nil
}

// Len returns the number of cells.
func (b *Bitmap) Len() int { return len(b.Values) }

// Status returns the value at pixel (x, y), or Unknown out of bounds.
func (b *Bitmap) Status(x, y int) NodeStatus {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return Unknown
	}
	return NodeStatus(b.Values[y*b.Width+x])
}

// At returns the value under a normalized point.
func (b *Bitmap) At(p geometry.Point) NodeStatus {
	x := int(math.Round(p.X * float64(b.Width)))
	y := int(math.Round(p.Y * float64(b.Height)))
	return b.Status(x, y)
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	out := &Bitmap{Dimensions: b.Dimensions}
	if b.Values != nil {
		out.Values = append([]byte(nil), b.Values...)
	}
	return out
}

// Equal compares dimensions and contents.
func (b *Bitmap) Equal(other *Bitmap) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.Dimensions != other.Dimensions || len(b.Values) != len(other.Values) {
		return false
	}
	for i, v := range b.Values {
		if other.Values[i] != v {
			return false
		}
	}
	return true
}

// MatchedCount returns the number of matched cells.
func (b *Bitmap) MatchedCount() int {
	n := 0
	for _, v := range b.Values {
		if NodeStatus(v) == Matched {
			n++
		}
	}
	return n
}

// FindByPoint returns the index of the last bitmap in maps that is matched
// under p, or -1 when none is.
func FindByPoint(p geometry.Point, maps []*Bitmap) int {
	for i := len(maps) - 1; i >= 0; i-- {
		if maps[i] != nil && maps[i].At(p) == Matched {
			return i
		}
	}
	return -1
}
