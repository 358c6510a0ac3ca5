package draft

import (
	"errors"
	"slices"

	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/logging"
	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/notify"
)

// ErrNoCanvas is returned when a mask click arrives before a frame has been
// converted for painting.
var ErrNoCanvas = errors.New("no canvas available for mask drawing")

// Pointer is a click in normalized media coordinates.
type Pointer struct {
	geometry.Point
	// Alt erases in mask mode and forces a new region in polygon and mask
	// mode.
	Alt bool
	// Target is the committed box or polygon under the cursor, or -1.
	Target int
}

// Env carries the collaborators a click may need.
type Env struct {
	// View is the displayed media size in pixels. Mask radius and polygon
	// snapping are measured in it.
	View    geometry.Dimensions
	Toaster notify.Toaster
	Pool    *mask.Pool
}

// Click applies one pointer press. s is never modified; on error the
// returned state is s.
func (s State) Click(ev Pointer, env Env) (State, error) {
	next := s.Clone()
	if a := next.Drawing.Active; a != nil && a.Index() >= 0 && ev.Target == a.Index() {
		next.writeBack()
		next.Dirty = true
		return next, nil
	}
	var err error
	switch next.Drawing.Mode {
	case Boxes:
		next.clickBox(ev, env)
	case Polygons:
		next.clickPolygon(ev, env)
	case Masks:
		err = next.clickMask(ev, env)
	}
	if err != nil {
		return s, err
	}
	next.Dirty = true
	return next, nil
}

func (s *State) clickBox(ev Pointer, env Env) {
	switch a := s.Drawing.Active.(type) {
	case *ActiveBox:
		if a.Region.PT2 == nil {
			pt := ev.Point
			a.Region.PT2 = &pt
			return
		}
		view := s.view(env)
		if geometry.Distance2(a.Region.PT1, ev.Point, view) < geometry.Distance2(*a.Region.PT2, ev.Point, view) {
			a.Region.PT1 = ev.Point
		} else {
			pt := ev.Point
			a.Region.PT2 = &pt
		}
	default:
		if ev.Target >= 0 && ev.Target < len(s.Labels.Boxes) {
			s.Drawing.Active = &ActiveBox{Idx: ev.Target, Region: s.Labels.Boxes[ev.Target].Clone()}
			return
		}
		s.Drawing.Active = &ActiveBox{Idx: -1, Region: labels.Box{PT1: ev.Point, Region: newRegion()}}
	}
}

func (s *State) clickPolygon(ev Pointer, env Env) {
	switch a := s.Drawing.Active.(type) {
	case *ActivePolygon:
		pt := ev.Point
		if view := s.view(env); view != nil {
			pt = geometry.Snap(ev.Point, a.Region.Points, *view)
		}
		a.Region.Points = append(a.Region.Points, pt)
	default:
		if !ev.Alt && ev.Target >= 0 && ev.Target < len(s.Labels.Polygons) {
			s.Drawing.Active = &ActivePolygon{Idx: ev.Target, Region: s.Labels.Polygons[ev.Target].Clone()}
			return
		}
		s.Drawing.Active = &ActivePolygon{Idx: -1, Region: labels.Polygon{Points: []geometry.Point{ev.Point}, Region: newRegion()}}
	}
}

func (s *State) clickMask(ev Pointer, env Env) error {
	if s.Canvas == nil {
		return ErrNoCanvas
	}
	img := s.Canvas
	if s.Drawing.Flood && !img.Available() && !s.FloodWarned {
		s.FloodWarned = true
		logging.Warn("flood fill unavailable: frame pixels cannot be read")
		if env.Toaster != nil {
			env.Toaster.Push(notify.EventFloodUnavailable, "this frame")
		}
	}
	if !s.Drawing.Flood {
		img = img.WithoutPixels()
	}
	opts := mask.FillOptions{
		Threshold: s.Drawing.Threshold,
		Radius:    s.radius(env),
		Inverse:   ev.Alt,
		Pool:      env.Pool,
	}

	if a, ok := s.Drawing.Active.(*ActiveMask); ok {
		opts.Previous = a.Region.Map
		bmp, err := mask.Fill(ev.Point, img, opts)
		if err != nil {
			return err
		}
		a.Region.Map = bmp
		return nil
	}

	if !ev.Alt {
		maps := make([]*mask.Bitmap, len(s.Labels.Masks))
		for i, m := range s.Labels.Masks {
			maps[i] = m.Map
		}
		if idx := mask.FindByPoint(ev.Point, maps); idx >= 0 {
			s.Drawing.Active = &ActiveMask{Idx: idx, Region: s.Labels.Masks[idx].Clone()}
			return nil
		}
	}
	bmp, err := mask.Fill(ev.Point, img, opts)
	if err != nil {
		return err
	}
	s.Drawing.Active = &ActiveMask{Idx: -1, Region: labels.DraftMask{Map: bmp, Region: newRegion()}}
	return nil
}

// radius converts the brush radius from view pixels to normalized units.
func (s *State) radius(env Env) geometry.Vec {
	view := s.view(env)
	if view == nil || s.Drawing.Radius <= 0 {
		return geometry.Vec{}
	}
	return geometry.Vec{DX: s.Drawing.Radius / float64(view.Width), DY: s.Drawing.Radius / float64(view.Height)}
}

// view returns the display size used for pixel distances, falling back to
// the canvas and then the label dimensions.
func (s *State) view(env Env) *geometry.Dimensions {
	candidates := []geometry.Dimensions{env.View}
	if s.Canvas != nil {
		candidates = append(candidates, s.Canvas.Dimensions())
	}
	if s.Labels.Dimensions != nil {
		candidates = append(candidates, *s.Labels.Dimensions)
	}
	for _, d := range candidates {
		if !d.Empty() {
			return &d
		}
	}
	return nil
}

// writeBack returns an edited region to its slot unchanged and goes idle.
func (s *State) writeBack() {
	switch a := s.Drawing.Active.(type) {
	case *ActiveBox:
		s.Labels.Boxes = commit(s.Labels.Boxes, a.Region, a.Idx, true)
	case *ActivePolygon:
		s.Labels.Polygons = commit(s.Labels.Polygons, a.Region, a.Idx, true)
	case *ActiveMask:
		s.Labels.Masks = commit(s.Labels.Masks, a.Region, a.Idx, true)
	}
	s.Drawing.Active = nil
}

// Finish ends the active region. save commits it at its original index or
// appends it; otherwise an edited region is deleted and a new one dropped.
// Boxes are normalized on commit. Finish is a no-op when idle.
func (s State) Finish(save bool) State {
	if s.Drawing.Active == nil {
		return s
	}
	next := s.Clone()
	switch a := next.Drawing.Active.(type) {
	case *ActiveBox:
		region := a.Region
		if save {
			region = region.Sorted()
		}
		next.Labels.Boxes = commit(next.Labels.Boxes, region, a.Idx, save)
	case *ActivePolygon:
		next.Labels.Polygons = commit(next.Labels.Polygons, a.Region, a.Idx, save)
	case *ActiveMask:
		next.Labels.Masks = commit(next.Labels.Masks, a.Region, a.Idx, save)
	}
	next.Drawing.Active = nil
	next.Dirty = true
	return next
}

// Deselect goes idle, returning an edited region to its slot and dropping a
// new one.
func (s State) Deselect() State {
	if s.Drawing.Active == nil {
		return s
	}
	next := s.Clone()
	if next.Drawing.Active.Index() >= 0 {
		next.writeBack()
	}
	next.Drawing.Active = nil
	next.Dirty = true
	return next
}

// SetMode switches the drawing mode, discarding any active region.
func (s State) SetMode(m Mode) State {
	next := s.Clone()
	if next.Drawing.Active != nil {
		next.Drawing.Active = nil
		next.Dirty = true
	}
	next.Drawing.Mode = m
	return next
}

// SetFlood enables or disables colour matching for mask clicks.
func (s State) SetFlood(on bool) State {
	next := s.Clone()
	next.Drawing.Flood = on
	return next
}

// SetRadius sets the brush radius in view pixels.
func (s State) SetRadius(r float64) State {
	next := s.Clone()
	next.Drawing.Radius = max(r, 0)
	return next
}

// SetThreshold sets the flood colour tolerance.
func (s State) SetThreshold(t int) State {
	next := s.Clone()
	next.Drawing.Threshold = t
	return next
}

// SetCanvas replaces the frame masks are painted against.
func (s State) SetCanvas(img *colorspace.Image) State {
	next := s.Clone()
	next.Canvas = img
	next.FloodWarned = false
	return next
}

// SetImageLabels replaces the image level selection for name.
func (s State) SetImageLabels(name string, values []string) State {
	next := s.Clone()
	next.Labels.Image[name] = slices.Clone(values)
	next.Dirty = true
	return next
}

// SetActiveLabels replaces the selection for name on the active region. It
// is a no-op when idle.
func (s State) SetActiveLabels(name string, values []string) State {
	if s.Drawing.Active == nil {
		return s
	}
	next := s.Clone()
	r := next.Drawing.Active.region()
	if r.Labels == nil {
		r.Labels = labels.LabelData{}
	}
	r.Labels[name] = slices.Clone(values)
	next.Dirty = true
	return next
}

// ToggleImageLabel applies a click on value in the image level panel.
func (s State) ToggleImageLabel(cfg labels.LabelConfig, value string) State {
	current := s.Labels.Image[cfg.Name]
	return s.SetImageLabels(cfg.Name, labels.ToggleSelection(value, current, cfg.Multiple, cfg.Required))
}

// ToggleActiveLabel applies a click on value in the region panel.
func (s State) ToggleActiveLabel(cfg labels.LabelConfig, value string) State {
	if s.Drawing.Active == nil {
		return s
	}
	current := s.Drawing.Active.region().Labels[cfg.Name]
	return s.SetActiveLabels(cfg.Name, labels.ToggleSelection(value, current, cfg.Multiple, cfg.Required))
}

func newRegion() labels.Region {
	return labels.Region{Labels: labels.LabelData{}}
}

// commit writes item into items at idx when save is set, removes idx
// otherwise, and appends new items. items is not modified.
func commit[T any](items []T, item T, idx int, save bool) []T {
	out := slices.Clone(items)
	inRange := idx >= 0 && idx < len(out)
	switch {
	case inRange && save:
		out[idx] = item
	case inRange:
		out = slices.Delete(out, idx, idx+1)
	case save:
		out = append(out, item)
	}
	return out
}
