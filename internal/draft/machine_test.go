package draft

import (
	"errors"
	"strings"
	"testing"

	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/notify"
)

var view = Env{View: geometry.Dimensions{Width: 100, Height: 100}}

func pt(x, y float64) Pointer {
	return Pointer{Point: geometry.Point{X: x, Y: y}, Target: -1}
}

func mustClick(t *testing.T, s State, ev Pointer, env Env) State {
	t.Helper()
	next, err := s.Click(ev, env)
	if err != nil {
		t.Fatalf("Click(%+v): %v", ev, err)
	}
	return next
}

func uniformCanvas(w, h int) *colorspace.Image {
	return &colorspace.Image{Width: w, Height: h, HSV: make([]byte, w*h*colorspace.Channels)}
}

type countingToaster struct{ events []notify.Event }

func (c *countingToaster) Push(e notify.Event, _ string) string {
	c.events = append(c.events, e)
	return "id"
}

func TestBoxNormalizedInEveryQuadrant(t *testing.T) {
	want1 := geometry.Point{X: 0.2, Y: 0.3}
	want2 := geometry.Point{X: 0.8, Y: 0.7}
	pairs := [][2]Pointer{
		{pt(0.2, 0.3), pt(0.8, 0.7)},
		{pt(0.8, 0.7), pt(0.2, 0.3)},
		{pt(0.8, 0.3), pt(0.2, 0.7)},
		{pt(0.2, 0.7), pt(0.8, 0.3)},
	}
	for _, p := range pairs {
		s := New(labels.Draft{}, Drawing{Mode: Boxes}, nil)
		s = mustClick(t, s, p[0], view)
		s = mustClick(t, s, p[1], view)
		a := s.Drawing.Active.(*ActiveBox)
		if a.Region.PT1 != p[0].Point {
			t.Fatalf("box normalized before commit: %+v", a.Region)
		}
		s = s.Finish(true)
		if len(s.Labels.Boxes) != 1 {
			t.Fatalf("boxes %d", len(s.Labels.Boxes))
		}
		b := s.Labels.Boxes[0]
		if b.PT1 != want1 || *b.PT2 != want2 {
			t.Fatalf("drag %v -> %v committed %v %v", p[0].Point, p[1].Point, b.PT1, *b.PT2)
		}
	}
}

func TestBoxNearestCornerMoves(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Boxes}, nil)
	s = mustClick(t, s, pt(0.1, 0.1), view)
	s = mustClick(t, s, pt(0.9, 0.9), view)
	s = mustClick(t, s, pt(0.2, 0.2), view)
	a := s.Drawing.Active.(*ActiveBox)
	if a.Region.PT1 != (geometry.Point{X: 0.2, Y: 0.2}) || *a.Region.PT2 != (geometry.Point{X: 0.9, Y: 0.9}) {
		t.Fatalf("after near pt1: %+v %+v", a.Region.PT1, *a.Region.PT2)
	}
	s = mustClick(t, s, pt(0.8, 0.7), view)
	a = s.Drawing.Active.(*ActiveBox)
	if *a.Region.PT2 != (geometry.Point{X: 0.8, Y: 0.7}) {
		t.Fatalf("after near pt2: %+v", *a.Region.PT2)
	}
}

func TestSelectAndDeselectBox(t *testing.T) {
	pt2 := geometry.Point{X: 0.5, Y: 0.5}
	committed := labels.Box{PT1: geometry.Point{X: 0.1, Y: 0.1}, PT2: &pt2, Region: labels.Region{Labels: labels.LabelData{"kind": {"car"}}}}
	s := New(labels.Draft{Boxes: []labels.Box{committed}}, Drawing{Mode: Boxes}, nil)

	ev := pt(0.3, 0.3)
	ev.Target = 0
	s = mustClick(t, s, ev, view)
	a, ok := s.Drawing.Active.(*ActiveBox)
	if !ok || a.Idx != 0 || a.Region.PT1 != committed.PT1 {
		t.Fatalf("select: %+v", s.Drawing.Active)
	}
	s = mustClick(t, s, ev, view)
	if s.Drawing.Active != nil {
		t.Fatal("second click on the selected box should deselect it")
	}
	if len(s.Labels.Boxes) != 1 || s.Labels.Boxes[0].PT1 != committed.PT1 || s.Labels.Boxes[0].Labels["kind"][0] != "car" {
		t.Fatalf("box changed: %+v", s.Labels.Boxes)
	}
	if !s.Dirty {
		t.Fatal("expected dirty")
	}
}

func TestPolygonSnapToClose(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Polygons}, nil)
	s = mustClick(t, s, pt(0.1, 0.1), view)
	s = mustClick(t, s, pt(0.5, 0.1), view)
	s = mustClick(t, s, pt(0.3, 0.3), view)
	if strings.HasSuffix(s.Summary(), "closed") {
		t.Fatalf("open ring reported closed: %s", s.Summary())
	}
	s = mustClick(t, s, pt(0.15, 0.15), view)
	if !strings.HasSuffix(s.Summary(), "editing polygon -1 closed") {
		t.Fatalf("summary %q", s.Summary())
	}
	points := s.Drawing.Active.(*ActivePolygon).Region.Points
	if len(points) != 4 {
		t.Fatalf("points %v", points)
	}
	if points[2] != (geometry.Point{X: 0.3, Y: 0.3}) {
		t.Fatalf("far click snapped: %v", points[2])
	}
	if points[3] != points[0] {
		t.Fatalf("near click not snapped: %v", points[3])
	}
	s = s.Finish(true)
	if len(s.Labels.Polygons) != 1 || s.Drawing.Active != nil {
		t.Fatalf("polygon not committed: %+v", s.Labels.Polygons)
	}
}

func TestClickDoesNotModifyReceiver(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Polygons}, nil)
	s = mustClick(t, s, pt(0.1, 0.1), view)
	before := len(s.Drawing.Active.(*ActivePolygon).Region.Points)
	_ = mustClick(t, s, pt(0.4, 0.4), view)
	if got := len(s.Drawing.Active.(*ActivePolygon).Region.Points); got != before {
		t.Fatalf("receiver gained points: %d", got)
	}
}

func TestFinishDeleteRemovesEditedRegion(t *testing.T) {
	d := labels.Draft{Polygons: []labels.Polygon{
		{Points: []geometry.Point{{X: 0.1, Y: 0.1}}},
		{Points: []geometry.Point{{X: 0.2, Y: 0.2}}},
	}}
	s := New(d, Drawing{Mode: Polygons}, nil)
	ev := pt(0.2, 0.2)
	ev.Target = 1
	s = mustClick(t, s, ev, view)
	s = s.Finish(false)
	if len(s.Labels.Polygons) != 1 || s.Labels.Polygons[0].Points[0].X != 0.1 {
		t.Fatalf("polygons %+v", s.Labels.Polygons)
	}
	if idle := s.Finish(true); len(idle.Labels.Polygons) != 1 {
		t.Fatal("finish while idle changed labels")
	}
}

func TestMaskRequiresCanvas(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Masks}, nil)
	next, err := s.Click(pt(0.5, 0.5), view)
	if !errors.Is(err, ErrNoCanvas) {
		t.Fatalf("expected ErrNoCanvas, got %v", err)
	}
	if next.Drawing.Active != nil || next.Dirty {
		t.Fatal("failed click changed state")
	}
}

func TestMaskCreateSelectAndAlt(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Masks, Flood: true}, uniformCanvas(4, 4))
	s = mustClick(t, s, pt(0.5, 0.5), Env{})
	a := s.Drawing.Active.(*ActiveMask)
	if a.Idx != -1 || a.Region.Map.MatchedCount() != 16 {
		t.Fatalf("new mask %+v", a.Region.Map)
	}
	s = s.Finish(true)
	if len(s.Labels.Masks) != 1 {
		t.Fatalf("masks %d", len(s.Labels.Masks))
	}

	selected := mustClick(t, s, pt(0.5, 0.5), Env{})
	if a := selected.Drawing.Active.(*ActiveMask); a.Idx != 0 || a.Region.Map != s.Labels.Masks[0].Map {
		t.Fatalf("expected selection of mask 0, got %+v", a)
	}

	alt := pt(0.5, 0.5)
	alt.Alt = true
	forced := mustClick(t, s, alt, Env{})
	if a := forced.Drawing.Active.(*ActiveMask); a.Idx != -1 {
		t.Fatalf("alt click should start a new mask, got idx %d", a.Idx)
	}
}

func TestMaskManualPaintAndErase(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Masks, Radius: 1}, uniformCanvas(4, 4))
	env := Env{View: geometry.Dimensions{Width: 4, Height: 4}}
	s = mustClick(t, s, pt(0.5, 0.5), env)
	first := s.Drawing.Active.(*ActiveMask).Region.Map
	if first.MatchedCount() != 4 {
		t.Fatalf("manual paint matched %d cells: %v", first.MatchedCount(), first.Values)
	}
	erase := pt(0.5, 0.5)
	erase.Alt = true
	s = mustClick(t, s, erase, env)
	second := s.Drawing.Active.(*ActiveMask).Region.Map
	if second.MatchedCount() != 0 {
		t.Fatalf("erase left %d cells", second.MatchedCount())
	}
	if first.MatchedCount() != 4 {
		t.Fatal("erase modified the earlier bitmap")
	}
}

func TestFloodUnavailableToastsOnce(t *testing.T) {
	toaster := &countingToaster{}
	env := Env{Toaster: toaster}
	s := New(labels.Draft{}, Drawing{Mode: Masks, Flood: true, Threshold: 30}, colorspace.Unavailable(4, 4))
	s = mustClick(t, s, pt(0.5, 0.5), env)
	s = mustClick(t, s, pt(0.25, 0.25), env)
	if len(toaster.events) != 1 || toaster.events[0] != notify.EventFloodUnavailable {
		t.Fatalf("toasts %v", toaster.events)
	}
	if got := s.Drawing.Active.(*ActiveMask).Region.Map.MatchedCount(); got != 2 {
		t.Fatalf("manual fallback matched %d cells", got)
	}
}

func TestMaskDimensionMismatch(t *testing.T) {
	small := mask.New(geometry.Dimensions{Width: 2, Height: 2})
	s := New(labels.Draft{}, Drawing{Mode: Masks}, uniformCanvas(4, 4))
	s.Drawing.Active = &ActiveMask{Idx: -1, Region: labels.DraftMask{Map: small}}
	_, err := s.Click(pt(0.5, 0.5), view)
	if !errors.Is(err, mask.ErrIncompatibleDimensions) {
		t.Fatalf("expected ErrIncompatibleDimensions, got %v", err)
	}
}

func TestLabelPanelTransitions(t *testing.T) {
	cfg := labels.LabelConfig{Name: "quality", Options: []labels.Option{{Name: "good"}, {Name: "bad"}}}
	s := New(labels.Draft{}, Drawing{Mode: Boxes}, nil)
	s = s.ToggleImageLabel(cfg, "good")
	s = s.ToggleImageLabel(cfg, "bad")
	if got := s.Labels.Image["quality"]; len(got) != 1 || got[0] != "bad" {
		t.Fatalf("image labels %v", got)
	}
	if idle := s.SetActiveLabels("kind", []string{"car"}); idle.Drawing.Active != nil {
		t.Fatal("SetActiveLabels created a region")
	}
	s = mustClick(t, s, pt(0.1, 0.1), view)
	s = s.ToggleActiveLabel(labels.LabelConfig{Name: "kind", Multiple: true}, "car")
	if got := s.Drawing.Active.(*ActiveBox).Region.Labels["kind"]; len(got) != 1 || got[0] != "car" {
		t.Fatalf("active labels %v", got)
	}
	s = s.SetMode(Polygons)
	if s.Drawing.Active != nil || s.Drawing.Mode != Polygons {
		t.Fatal("SetMode should drop the active region")
	}
}

func TestExportEncodesCommittedRegions(t *testing.T) {
	s := New(labels.Draft{}, Drawing{Mode: Masks, Flood: true}, uniformCanvas(2, 2))
	s = mustClick(t, s, pt(0, 0), Env{})
	s = s.Finish(true)
	s = s.SetMode(Boxes)
	s = mustClick(t, s, pt(0.9, 0.9), view)
	s = mustClick(t, s, pt(0.1, 0.1), view)
	s = s.Finish(true)

	dims := geometry.Dimensions{Width: 2, Height: 2}
	out := s.Export(&dims)
	if len(out.Masks) != 1 || out.Masks[0].Map.Counts[0] != 4 {
		t.Fatalf("masks %+v", out.Masks)
	}
	if out.Boxes[0].PT1.X != 0.1 || out.Boxes[0].PT2.X != 0.9 {
		t.Fatalf("boxes %+v", out.Boxes)
	}
	if err := labels.Validate(out); err != nil {
		t.Fatalf("exported labels invalid: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Boxes, Polygons, Masks} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("lasso"); err == nil {
		t.Fatal("expected error")
	}
}
