// Package colorspace converts RGBA frames into the quantized HSV buffers the
// flood fill compares against.
package colorspace

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/example/regionkit/internal/geometry"
)

// Channels is the number of bytes per pixel in an HSV buffer.
const Channels = 3

// ErrBufferSize reports an RGBA buffer whose length does not match its
// declared dimensions.
var ErrBufferSize = errors.New("buffer size does not match dimensions")

// Image is an HSV raster. HSV is nil when the source pixels could not be
// read, in which case flood fill is unavailable for the frame.
type Image struct {
	Width  int
	Height int
	HSV    []byte
}

// Available reports whether the image carries pixel data.
func (img *Image) Available() bool {
	return img != nil && img.HSV != nil
}

// Dimensions returns the raster size.
func (img *Image) Dimensions() geometry.Dimensions {
	return geometry.Dimensions{Width: img.Width, Height: img.Height}
}

// At returns the HSV triple at (x, y). ok is false when the image has no
// pixel data or the position is out of bounds.
func (img *Image) At(x, y int) (hsv [3]byte, ok bool) {
	if !img.Available() || x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return hsv, false
	}
	i := (y*img.Width + x) * Channels
	copy(hsv[:], img.HSV[i:i+Channels])
	return hsv, true
}

// WithoutPixels returns a copy of img that shares its dimensions but has no
// pixel data. Manual painting uses it to bypass colour matching.
func (img *Image) WithoutPixels() *Image {
	return &Image{Width: img.Width, Height: img.Height}
}

// Unavailable returns an image that records dimensions only.
func Unavailable(width, height int) *Image {
	return &Image{Width: width, Height: height}
}

// FromRGBA converts a packed RGBA buffer (4 bytes per pixel) into HSV. Alpha
// is ignored.
func FromRGBA(pix []byte, width, height int) (*Image, error) {
	if width < 0 || height < 0 || len(pix) != width*height*4 {
		return nil, fmt.Errorf("rgba %dx%d with %d bytes: %w", width, height, len(pix), ErrBufferSize)
	}
	out := &Image{Width: width, Height: height, HSV: make([]byte, width*height*Channels)}
	for i, j := 0, 0; i < len(pix); i, j = i+4, j+Channels {
		out.HSV[j], out.HSV[j+1], out.HSV[j+2] = ToHSV(pix[i], pix[i+1], pix[i+2])
	}
	return out, nil
}

// FromImage scales img so that its longer side equals maxSize and converts it
// to HSV. A non-positive maxSize keeps the natural size.
func FromImage(img image.Image, maxSize int) *Image {
	b := img.Bounds()
	width, height := ScaledSize(b.Dx(), b.Dy(), maxSize)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == b.Dx() && height == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}
	out, _ := FromRGBA(dst.Pix, width, height)
	return out
}

// ScaledSize returns the size a width x height frame is resampled to so that
// its longer side equals maxSize.
func ScaledSize(width, height, maxSize int) (int, int) {
	longest := width
	if height > longest {
		longest = height
	}
	if maxSize <= 0 || longest == 0 {
		return width, height
	}
	scale := float64(maxSize) / float64(longest)
	return int(math.Round(scale * float64(width))), int(math.Round(scale * float64(height)))
}

// ToHSV converts one pixel. Each channel is scaled to [0,255], rounded half
// up and capped at 255. Flood thresholds are tuned against this exact
// quantization.
func ToHSV(r, g, b uint8) (h, s, v uint8) {
	ri, gi, bi := int(r), int(g), int(b)
	max := ri
	if gi > max {
		max = gi
	}
	if bi > max {
		max = bi
	}
	min := ri
	if gi < min {
		min = gi
	}
	if bi < min {
		min = bi
	}
	d := max - min
	var sf float64
	if max != 0 {
		sf = float64(d) / float64(max)
	}
	vf := float64(max) / 255
	scale := float64(6 * d)

	var hf float64
	switch max {
	case min:
		hf = 0
	case ri:
		wrap := 0
		if gi < bi {
			wrap = 6
		}
		hf = float64(gi-bi+d*wrap) / scale
	case gi:
		hf = float64(bi-ri+d*2) / scale
	default:
		hf = float64(ri-gi+d*4) / scale
	}
	return quantize(hf), quantize(sf), quantize(vf)
}

func quantize(f float64) uint8 {
	q := math.Floor(f*255 + 0.5)
	if q > 255 {
		q = 255
	}
	return uint8(q)
}
