package mask

import (
	"fmt"

	"github.com/example/regionkit/internal/geometry"
)

// RLEMap is the run-length form of a bitmap. Even-indexed counts are matched
// runs and odd-indexed counts are unmatched runs; the first run may be empty.
type RLEMap struct {
	Dimensions geometry.Dimensions `json:"dimensions"`
	Counts     []int               `json:"counts"`
}

// ToRLE encodes b. Every value other than Matched is written as unmatched.
func ToRLE(b *Bitmap) RLEMap {
	counts := []int{0}
	for _, v := range b.Values {
		matched := NodeStatus(v) == Matched
		if ((len(counts)-1)%2 == 0) == matched {
			counts[len(counts)-1]++
		} else {
			counts = append(counts, 1)
		}
	}
	return RLEMap{Dimensions: b.Dimensions, Counts: counts}
}

// FromRLE expands r into a fresh bitmap.
func FromRLE(r RLEMap) (*Bitmap, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := New(r.Dimensions)
	pos := 0
	for i, c := range r.Counts {
		if i%2 == 0 {
			fill(out.Values[pos:pos+c], Matched)
		}
		pos += c
	}
	return out, nil
}

// Validate checks the sum invariant without expanding the map.
func (r RLEMap) Validate() error {
	if !fits(r.Dimensions) {
		return fmt.Errorf("dimensions %dx%d: %w", r.Dimensions.Width, r.Dimensions.Height, ErrMalformedRLE)
	}
	want := r.Dimensions.Area()
	got := 0
	for i, c := range r.Counts {
		if c < 0 {
			return fmt.Errorf("negative run %d at index %d: %w", c, i, ErrMalformedRLE)
		}
		if c > want-got {
			return fmt.Errorf("run %d at index %d overruns %dx%d: %w",
				c, i, r.Dimensions.Width, r.Dimensions.Height, ErrMalformedRLE)
		}
		got += c
	}
	if got != want {
		return fmt.Errorf("runs cover %d pixels, %dx%d needs %d: %w",
			got, r.Dimensions.Width, r.Dimensions.Height, want, ErrMalformedRLE)
	}
	return nil
}

func fill(values []byte, s NodeStatus) {
	for i := range values {
		values[i] = byte(s)
	}
}
