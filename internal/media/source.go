// Package media loads the frame a labeling target is drawn over.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/logging"
)

// ErrPixelAccess marks a frame whose size is known but whose pixels cannot
// be read. Masks can still be drawn by hand on such a frame.
var ErrPixelAccess = errors.New("frame pixels are not readable")

// Source provides a single frame.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
}

// PixelAccessError carries the frame size alongside ErrPixelAccess.
type PixelAccessError struct {
	Dimensions geometry.Dimensions
	Err        error
}

func (e *PixelAccessError) Error() string {
	return fmt.Sprintf("%dx%d frame: %v: %v", e.Dimensions.Width, e.Dimensions.Height, ErrPixelAccess, e.Err)
}

func (e *PixelAccessError) Unwrap() []error { return []error{ErrPixelAccess, e.Err} }

// Loaded is a frame ready for drawing.
type Loaded struct {
	// Image is nil when the pixels could not be read.
	Image  image.Image
	Canvas *colorspace.Image
	// Natural is the full-resolution frame size, probed when the pixels
	// could not be read.
	Natural geometry.Dimensions
}

// Dimensions returns the full-resolution frame size.
func (l Loaded) Dimensions() geometry.Dimensions {
	switch {
	case !l.Natural.Empty():
		return l.Natural
	case l.Image != nil:
		b := l.Image.Bounds()
		return geometry.Dimensions{Width: b.Dx(), Height: b.Dy()}
	case l.Canvas != nil:
		return l.Canvas.Dimensions()
	}
	return geometry.Dimensions{}
}

// Load reads a frame from src and converts it to an HSV canvas no larger
// than maxSize on either side. A pixel access failure yields a canvas
// without pixels instead of an error.
func Load(ctx context.Context, src Source, maxSize int) (Loaded, error) {
	img, err := src.Frame(ctx)
	if err != nil {
		var pae *PixelAccessError
		if errors.As(err, &pae) {
			logging.Warn("frame pixels unavailable, flood fill disabled: %v", err)
			w, h := colorspace.ScaledSize(pae.Dimensions.Width, pae.Dimensions.Height, maxSize)
			return Loaded{Canvas: colorspace.Unavailable(w, h), Natural: pae.Dimensions}, nil
		}
		return Loaded{}, err
	}
	if img.Bounds().Empty() {
		return Loaded{}, fmt.Errorf("load frame: empty image")
	}
	b := img.Bounds()
	return Loaded{
		Image:   img,
		Canvas:  colorspace.FromImage(img, maxSize),
		Natural: geometry.Dimensions{Width: b.Dx(), Height: b.Dy()},
	}, nil
}
