package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/regionkit/internal/clipboard"
	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/media"
	"github.com/example/regionkit/internal/notify"
	"github.com/example/regionkit/internal/store"
)

type testRoot struct {
	*root
	out, errOut *bytes.Buffer
	dir         string
}

func newTestRoot(t *testing.T) *testRoot {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("REGIONKIT_THEME", "")
	r := newRoot()
	r.notifier = notify.New(notify.DefaultPreferences())
	tr := &testRoot{root: r, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, dir: dir}
	r.stdout = tr.out
	r.stderr = tr.errOut
	r.stdin = strings.NewReader("")
	return tr
}

func (tr *testRoot) run(t *testing.T, args ...string) error {
	t.Helper()
	full := append([]string{"-store", filepath.Join(tr.dir, "labels.db")}, args...)
	return tr.Run(full)
}

// writeSplitPNG writes a w x h image whose left half is red and right half
// blue.
func writeSplitPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUsageErrorRendersTemplate(t *testing.T) {
	tr := newTestRoot(t)
	err := tr.Run(nil)
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UsageError, got %v", err)
	}
	help := uerr.Error()
	for _, want := range []string{"Usage: regionkit", "session", "-theme"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestFillAndDecode(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 4, 4)
	rlePath := filepath.Join(tr.dir, "mask.json")
	overlay := filepath.Join(tr.dir, "overlay.png")

	if err := tr.run(t, "fill", "-image", img, "-x", "0", "-y", "0", "-threshold", "10", "-radius", "0", "-out", rlePath, "-overlay", overlay); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !strings.Contains(tr.errOut.String(), "matched 8 of 16") {
		t.Fatalf("stderr %q", tr.errOut.String())
	}
	data, err := os.ReadFile(rlePath)
	if err != nil {
		t.Fatal(err)
	}
	var rle mask.RLEMap
	if err := json.Unmarshal(data, &rle); err != nil {
		t.Fatal(err)
	}
	b, err := mask.FromRLE(rle)
	if err != nil {
		t.Fatalf("FromRLE: %v", err)
	}
	if b.Status(1, 3) != mask.Matched || b.Status(2, 0) == mask.Matched {
		t.Fatalf("values %v", b.Values)
	}
	if _, err := os.Stat(overlay); err != nil {
		t.Fatalf("overlay not written: %v", err)
	}

	out := filepath.Join(tr.dir, "mask.png")
	tr2 := newTestRoot(t)
	if err := tr2.run(t, "decode", "-in", rlePath, "-out", out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if y := color.GrayModel.Convert(decoded.At(0, 0)).(color.Gray).Y; y != 255 {
		t.Fatalf("pixel (0,0) = %d", y)
	}
	if y := color.GrayModel.Convert(decoded.At(3, 0)).(color.Gray).Y; y == 255 {
		t.Fatalf("pixel (3,0) should not be matched")
	}
}

func TestFillRejectsSeedOutsideImage(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 4, 4)
	err := tr.run(t, "fill", "-image", img, "-x", "9", "-y", "0")
	if err == nil || !strings.Contains(err.Error(), "outside 4x4") {
		t.Fatalf("expected bounds error, got %v", err)
	}
}

func TestShortcuts(t *testing.T) {
	tr := newTestRoot(t)
	path := filepath.Join(tr.dir, "labels.json")
	cfg := `{"regions":[{"name":"animal","options":[{"name":"cat"},{"name":"dog"}]}]}`
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tr.run(t, "shortcuts", "-config", path); err != nil {
		t.Fatalf("shortcuts: %v", err)
	}
	got := tr.out.String()
	for _, want := range []string{"region\tanimal\tcat\tc\n", "region\tanimal\tdog\td\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestSessionDrawsAndSaves(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 10, 10)
	exportPath := filepath.Join(tr.dir, "export.json")
	renderPath := filepath.Join(tr.dir, "render.png")

	err := tr.run(t, "session", "-image", img, "-target", "frame-1",
		"-e", "mode boxes",
		"-e", "click 6 6",
		"-e", "click 2 2",
		"-e", "label active class cat",
		"-e", "finish",
		"-e", "mode masks",
		"-e", "click 1 1",
		"-e", "finish",
		"-e", "label image scene split",
		"-e", "status",
		"-e", "save",
		"-e", "export "+exportPath,
		"-e", "render "+renderPath,
	)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	status := tr.out.String()
	if !strings.Contains(status, "boxes=1") || !strings.Contains(status, "masks=1") {
		t.Fatalf("status %q", status)
	}

	db, err := store.Open(filepath.Join(tr.dir, "labels.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rec, err := db.Load(context.Background(), "frame-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l := rec.Labels
	if len(l.Boxes) != 1 || l.Boxes[0].PT1.X != 0.2 || l.Boxes[0].PT2.X != 0.6 {
		t.Fatalf("boxes %+v", l.Boxes)
	}
	if l.Boxes[0].Labels["class"][0] != "cat" || l.Image["scene"][0] != "split" {
		t.Fatalf("labels %+v %+v", l.Boxes[0].Labels, l.Image)
	}
	if len(l.Masks) != 1 {
		t.Fatalf("masks %+v", l.Masks)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("export missing: %v", err)
	}
	if _, err := os.Stat(renderPath); err != nil {
		t.Fatalf("render missing: %v", err)
	}
}

func TestSessionResumesFromStore(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 10, 10)
	if err := tr.run(t, "session", "-image", img, "-target", "f",
		"-e", "click 1 1", "-e", "click 3 3", "-e", "finish", "-e", "save"); err != nil {
		t.Fatalf("first session: %v", err)
	}
	tr2 := newTestRoot(t)
	tr2.dir = tr.dir
	if err := tr2.run(t, "session", "-image", img, "-target", "f", "-e", "status"); err != nil {
		t.Fatalf("second session: %v", err)
	}
	if !strings.Contains(tr2.out.String(), "boxes=1") || !strings.Contains(tr2.out.String(), "dirty=false") {
		t.Fatalf("status %q", tr2.out.String())
	}
}

func TestSessionUndoAndErrors(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 10, 10)
	if err := tr.run(t, "session", "-image", img, "-e", "undo"); err == nil {
		t.Fatal("expected undo on fresh session to fail")
	}

	tr = newTestRoot(t)
	err := tr.run(t, "session", "-image", img, "-e", "click 1 1", "-e", "undo", "-e", "status")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if !strings.Contains(tr.out.String(), "idle") {
		t.Fatalf("expected idle after undo, got %q", tr.out.String())
	}
}

func TestSessionInteractiveErrorsBecomeToasts(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 10, 10)
	tr.stdin = strings.NewReader("undo\nclick 1 1\nstatus\nexit\n")
	if err := tr.run(t, "session", "-image", img); err != nil {
		t.Fatalf("session: %v", err)
	}
	if !strings.Contains(tr.errOut.String(), "nothing to undo") {
		t.Fatalf("stderr %q", tr.errOut.String())
	}
	if !strings.Contains(tr.out.String(), "editing box -1") {
		t.Fatalf("draft lost after error: %q", tr.out.String())
	}
	toasts := tr.notifier.Toasts()
	if len(toasts) != 1 || toasts[0].Event != notify.EventError || toasts[0].Message != "nothing to undo" {
		t.Fatalf("toasts %+v", toasts)
	}

	tr.out.Reset()
	tr.stdin = strings.NewReader("toasts\ndismiss " + toasts[0].ID + "\nexit\n")
	if err := tr.run(t, "session", "-image", img); err != nil {
		t.Fatalf("session: %v", err)
	}
	if !strings.Contains(tr.out.String(), toasts[0].ID) {
		t.Fatalf("toasts listing %q", tr.out.String())
	}
	if left := tr.notifier.Toasts(); len(left) != 0 {
		t.Fatalf("toast not dismissed: %+v", left)
	}
}

func TestSessionUsesProbedSizeWithoutPixels(t *testing.T) {
	orig := loadFrame
	t.Cleanup(func() { loadFrame = orig })
	loadFrame = func(context.Context, media.Source, int) (media.Loaded, error) {
		return media.Loaded{
			Canvas:  colorspace.Unavailable(4, 2),
			Natural: geometry.Dimensions{Width: 10, Height: 5},
		}, nil
	}

	tr := newTestRoot(t)
	if err := tr.run(t, "session", "-image", "tainted.png",
		"-e", "click 5 2", "-e", "click 8 4", "-e", "finish", "-e", "export"); err != nil {
		t.Fatalf("session: %v", err)
	}
	var l labels.Labels
	if err := json.Unmarshal(tr.out.Bytes(), &l); err != nil {
		t.Fatalf("export %q: %v", tr.out.String(), err)
	}
	if l.Dimensions == nil || *l.Dimensions != (geometry.Dimensions{Width: 10, Height: 5}) {
		t.Fatalf("dimensions %+v", l.Dimensions)
	}
	if len(l.Boxes) != 1 || l.Boxes[0].PT1 != (geometry.Point{X: 0.5, Y: 0.4}) {
		t.Fatalf("boxes %+v", l.Boxes)
	}
}

func TestSessionKeyTogglesShortcut(t *testing.T) {
	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 10, 10)
	cfgPath := filepath.Join(tr.dir, "labels.json")
	cfg := `{"image":[{"name":"scene","multiple":true,"options":[{"name":"indoor"},{"name":"outdoor"}]}]}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tr.run(t, "session", "-image", img, "-label-config", cfgPath,
		"-e", "key i", "-e", "key o", "-e", "export"); err != nil {
		t.Fatalf("session: %v", err)
	}
	if !strings.Contains(tr.out.String(), `"indoor"`) || !strings.Contains(tr.out.String(), `"outdoor"`) {
		t.Fatalf("export %s", tr.out.String())
	}
}

func TestSessionCopy(t *testing.T) {
	orig := writeClipboardImage
	t.Cleanup(func() { writeClipboardImage = orig })
	var copied image.Image
	writeClipboardImage = func(img image.Image) error {
		copied = img
		return nil
	}

	tr := newTestRoot(t)
	img := writeSplitPNG(t, tr.dir, 10, 10)
	if err := tr.run(t, "session", "-image", img, "-e", "copy"); err != nil {
		t.Fatalf("session: %v", err)
	}
	if copied == nil || copied.Bounds().Dx() != 10 {
		t.Fatalf("copied %v", copied)
	}
	toasts := tr.notifier.Toasts()
	if len(toasts) != 1 || toasts[0].Event != notify.EventCopy {
		t.Fatalf("toasts %+v", toasts)
	}

	writeClipboardImage = func(image.Image) error { return clipboard.ErrUnavailable }
	tr = newTestRoot(t)
	if err := tr.run(t, "session", "-image", img, "-e", "copy"); !errors.Is(err, clipboard.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseSessionRequiresOneSource(t *testing.T) {
	tr := newTestRoot(t)
	if _, err := parseSessionCmd([]string{}, tr.subcommand("session")); err == nil {
		t.Fatal("expected error without a source")
	}
	if _, err := parseSessionCmd([]string{"-image", "a.png", "-from-clipboard"}, tr.subcommand("session")); err == nil {
		t.Fatal("expected error with two sources")
	}
	cmd, err := parseSessionCmd([]string{"-video", "clip.mp4", "-at", "2.5"}, tr.subcommand("session"))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.target != "clip.mp4@2.5" {
		t.Fatalf("target %q", cmd.target)
	}
}

func TestConfigPrintAndStoreList(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.run(t, "config", "print"); err != nil {
		t.Fatalf("config print: %v", err)
	}
	if !strings.Contains(tr.out.String(), "[draw]") {
		t.Fatalf("config output %q", tr.out.String())
	}

	tr.out.Reset()
	db, err := store.Open(filepath.Join(tr.dir, "labels.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Save(context.Background(), "x.png", labels.Labels{}); err != nil {
		t.Fatal(err)
	}
	db.Close()
	if err := tr.run(t, "store", "list"); err != nil {
		t.Fatalf("store list: %v", err)
	}
	if !strings.HasPrefix(tr.out.String(), "x.png\t") {
		t.Fatalf("store list %q", tr.out.String())
	}
}
