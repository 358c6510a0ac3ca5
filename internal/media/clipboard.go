package media

import (
	"context"
	"fmt"
	"image"

	"github.com/example/regionkit/internal/clipboard"
)

var readClipboardImage = clipboard.ReadImage

// ClipboardSource reads the image currently on the system clipboard.
type ClipboardSource struct{}

func (ClipboardSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := readClipboardImage()
	if err != nil {
		return nil, fmt.Errorf("clipboard frame: %w", err)
	}
	return img, nil
}
