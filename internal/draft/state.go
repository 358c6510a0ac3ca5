// Package draft holds the in-progress annotation state and the transitions
// that drawing input applies to it.
package draft

import (
	"fmt"
	"strings"

	"github.com/example/regionkit/internal/colorspace"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/mask"
)

// Mode selects the kind of region new clicks create.
type Mode int

const (
	Boxes Mode = iota
	Polygons
	Masks
)

var modeNames = [...]string{Boxes: "boxes", Polygons: "polygons", Masks: "masks"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return Boxes, fmt.Errorf("unknown drawing mode %q", s)
}

// Active is the region being drawn or edited. It is implemented by
// *ActiveBox, *ActivePolygon and *ActiveMask only.
type Active interface {
	// Index is the position of the edited region in the committed list, or
	// -1 for a new region.
	Index() int
	clone() Active
	region() *labels.Region
}

// ActiveBox is a box being drawn or edited.
type ActiveBox struct {
	Idx    int
	Region labels.Box
}

// ActivePolygon is a polygon being drawn or edited.
type ActivePolygon struct {
	Idx    int
	Region labels.Polygon
}

// ActiveMask is a mask being painted or edited.
type ActiveMask struct {
	Idx    int
	Region labels.DraftMask
}

func (a *ActiveBox) Index() int     { return a.Idx }
func (a *ActivePolygon) Index() int { return a.Idx }
func (a *ActiveMask) Index() int    { return a.Idx }

func (a *ActiveBox) clone() Active     { return &ActiveBox{Idx: a.Idx, Region: a.Region.Clone()} }
func (a *ActivePolygon) clone() Active { return &ActivePolygon{Idx: a.Idx, Region: a.Region.Clone()} }
func (a *ActiveMask) clone() Active    { return &ActiveMask{Idx: a.Idx, Region: a.Region.Clone()} }

func (a *ActiveBox) region() *labels.Region     { return &a.Region.Region }
func (a *ActivePolygon) region() *labels.Region { return &a.Region.Region }
func (a *ActiveMask) region() *labels.Region    { return &a.Region.Region }

// Drawing holds the tool settings and the active region.
type Drawing struct {
	Mode      Mode
	Active    Active
	Flood     bool
	Radius    float64
	Threshold int
}

// State is the complete draft for one labeling target.
type State struct {
	Labels  labels.Draft
	Dirty   bool
	Drawing Drawing
	// Canvas is the HSV frame masks are painted against. Nil disables mask
	// drawing.
	Canvas *colorspace.Image
	// FloodWarned records that the unavailable flood toast was shown.
	FloodWarned bool
}

// New returns a clean state for d.
func New(d labels.Draft, drawing Drawing, canvas *colorspace.Image) State {
	drawing.Active = nil
	if d.Image == nil {
		d.Image = labels.LabelData{}
	}
	return State{Labels: d, Drawing: drawing, Canvas: canvas}
}

// Clone copies s. Label data is deep copied and mask bitmaps are shared.
func (s State) Clone() State {
	out := s
	out.Labels = s.Labels.Clone()
	if s.Drawing.Active != nil {
		out.Drawing.Active = s.Drawing.Active.clone()
	}
	return out
}

// Bitmaps returns every mask bitmap s references, including the active one.
func (s State) Bitmaps() []*mask.Bitmap {
	out := s.Labels.Bitmaps()
	if a, ok := s.Drawing.Active.(*ActiveMask); ok && a.Region.Map != nil {
		out = append(out, a.Region.Map)
	}
	return out
}

// Export encodes the committed regions. The active region is not included.
func (s State) Export(dims *geometry.Dimensions) labels.Labels {
	return labels.FromDraft(s.Labels, dims)
}

// Summary is a one line description used by the CLI.
func (s State) Summary() string {
	active := "idle"
	if a := s.Drawing.Active; a != nil {
		kind := strings.TrimPrefix(fmt.Sprintf("%T", a), "*draft.Active")
		active = fmt.Sprintf("editing %s %d", strings.ToLower(kind), a.Index())
		if p, ok := a.(*ActivePolygon); ok {
			if pts := p.Region.Points; len(pts) > 2 && geometry.IsClosed(pts[len(pts)-1], pts[:len(pts)-1]) {
				active += " closed"
			}
		}
	}
	return fmt.Sprintf("mode=%s flood=%t radius=%g threshold=%d boxes=%d polygons=%d masks=%d dirty=%t %s",
		s.Drawing.Mode, s.Drawing.Flood, s.Drawing.Radius, s.Drawing.Threshold,
		len(s.Labels.Boxes), len(s.Labels.Polygons), len(s.Labels.Masks), s.Dirty, active)
}
