package colorspace

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestToHSV(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    [3]uint8
	}{
		{0, 0, 0, [3]uint8{0, 0, 0}},
		{255, 0, 0, [3]uint8{0, 255, 255}},
		{0, 255, 0, [3]uint8{85, 255, 255}},
		{0, 0, 255, [3]uint8{170, 255, 255}},
		{128, 128, 128, [3]uint8{0, 0, 128}},
		{255, 0, 128, [3]uint8{234, 255, 255}},
		{255, 255, 255, [3]uint8{0, 0, 255}},
	}
	for _, c := range cases {
		h, s, v := ToHSV(c.r, c.g, c.b)
		if got := [3]uint8{h, s, v}; got != c.want {
			t.Errorf("ToHSV(%d,%d,%d) = %v, want %v", c.r, c.g, c.b, got, c.want)
		}
	}
}

func TestFromRGBARejectsBadLength(t *testing.T) {
	_, err := FromRGBA(make([]byte, 7), 1, 2)
	if !errors.Is(err, ErrBufferSize) {
		t.Fatalf("expected ErrBufferSize, got %v", err)
	}
}

func TestFromRGBAIgnoresAlpha(t *testing.T) {
	img, err := FromRGBA([]byte{255, 0, 0, 0, 0, 255, 0, 255}, 2, 1)
	if err != nil {
		t.Fatalf("FromRGBA: %v", err)
	}
	if !img.Available() {
		t.Fatal("expected pixel data")
	}
	want := []byte{0, 255, 255, 85, 255, 255}
	for i := range want {
		if img.HSV[i] != want[i] {
			t.Fatalf("hsv[%d] = %d, want %d", i, img.HSV[i], want[i])
		}
	}
	if hsv, ok := img.At(1, 0); !ok || hsv != [3]byte{85, 255, 255} {
		t.Fatalf("At(1,0) = %v %v", hsv, ok)
	}
	if _, ok := img.At(2, 0); ok {
		t.Fatal("expected out of bounds")
	}
}

func TestFromImageScalesLongestSide(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			src.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	img := FromImage(src, 4)
	if img.Width != 4 || img.Height != 2 {
		t.Fatalf("got %dx%d", img.Width, img.Height)
	}
	for i := 0; i < len(img.HSV); i += Channels {
		if img.HSV[i] != 170 {
			t.Fatalf("unexpected hue %d at %d", img.HSV[i], i/Channels)
		}
	}

	natural := FromImage(src, 0)
	if natural.Width != 10 || natural.Height != 5 {
		t.Fatalf("natural size changed: %dx%d", natural.Width, natural.Height)
	}
}

func TestUnavailable(t *testing.T) {
	img := Unavailable(3, 4)
	if img.Available() {
		t.Fatal("expected unavailable image")
	}
	if d := img.Dimensions(); d.Width != 3 || d.Height != 4 {
		t.Fatalf("dimensions %+v", d)
	}
	if _, ok := img.At(0, 0); ok {
		t.Fatal("At should fail without pixels")
	}
}
