// Package clipboard moves frames and exported labels through the system
// clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
)

var (
	// ErrUnavailable means the clipboard cannot be used in this process.
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrEmpty means the clipboard holds no data of the requested format.
	ErrEmpty = errors.New("clipboard empty")
)

func encodeImage(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode clipboard image: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode clipboard image: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("read image: %w", ErrEmpty)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode clipboard image: %w", err)
	}
	return img, nil
}
