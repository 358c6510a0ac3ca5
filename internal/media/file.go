package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/example/regionkit/internal/geometry"
)

// FileSource reads a still image from disk.
type FileSource struct {
	Path string
}

// Frame decodes the file. A file whose header decodes but whose pixel data
// does not returns a *PixelAccessError.
func (s FileSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err == nil {
		return img, nil
	}
	if _, serr := f.Seek(0, 0); serr != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	cfg, _, cerr := image.DecodeConfig(f)
	if cerr != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return nil, &PixelAccessError{
		Dimensions: geometry.Dimensions{Width: cfg.Width, Height: cfg.Height},
		Err:        err,
	}
}
