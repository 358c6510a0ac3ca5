// Package labels defines the persisted label tree, its in-memory draft form
// and the label configuration helpers used by the labeling panel.
package labels

import (
	"fmt"
	"slices"

	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/mask"
)

// LabelData maps a label config name to its selected option names.
type LabelData map[string][]string

// Clone deep copies d. A nil map stays nil.
func (d LabelData) Clone() LabelData {
	if d == nil {
		return nil
	}
	out := make(LabelData, len(d))
	for k, v := range d {
		out[k] = slices.Clone(v)
	}
	return out
}

// Region holds the fields shared by every region label.
type Region struct {
	Labels   LabelData         `json:"labels"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Readonly bool              `json:"readonly,omitempty"`
}

func (r Region) clone() Region {
	out := Region{Labels: r.Labels.Clone(), Readonly: r.Readonly}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Box is an axis-aligned box. PT2 is nil while the box is being drawn.
type Box struct {
	PT1 geometry.Point  `json:"pt1"`
	PT2 *geometry.Point `json:"pt2,omitempty"`
	Region
}

// Clone deep copies b.
func (b Box) Clone() Box {
	out := Box{PT1: b.PT1, Region: b.Region.clone()}
	if b.PT2 != nil {
		pt2 := *b.PT2
		out.PT2 = &pt2
	}
	return out
}

// Sorted returns b with PT1 at the top-left and PT2 at the bottom-right. A
// missing PT2 collapses onto PT1.
func (b Box) Sorted() Box {
	out := b.Clone()
	pt2 := b.PT1
	if b.PT2 != nil {
		pt2 = *b.PT2
	}
	pt1, pt2 := geometry.SortCorners(b.PT1, pt2)
	out.PT1, out.PT2 = pt1, &pt2
	return out
}

// Polygon is a closed or open ring of normalized points.
type Polygon struct {
	Points []geometry.Point `json:"points"`
	Region
}

// Clone deep copies p.
func (p Polygon) Clone() Polygon {
	return Polygon{Points: slices.Clone(p.Points), Region: p.Region.clone()}
}

// Mask is the persisted form of a mask region.
type Mask struct {
	Map mask.RLEMap `json:"map"`
	Region
}

// DraftMask is a mask region being edited. Map is shared, not copied, by
// Clone so that history entries can be tracked by bitmap identity.
type DraftMask struct {
	Map *mask.Bitmap
	Region
}

// Clone copies the label data of m and shares its bitmap.
func (m DraftMask) Clone() DraftMask {
	return DraftMask{Map: m.Map, Region: m.Region.clone()}
}

// Labels is the persisted label tree.
type Labels struct {
	Image      LabelData            `json:"image,omitempty"`
	Boxes      []Box                `json:"boxes,omitempty"`
	Polygons   []Polygon            `json:"polygons,omitempty"`
	Masks      []Mask               `json:"masks,omitempty"`
	Dimensions *geometry.Dimensions `json:"dimensions,omitempty"`
}

// Draft is the editable form of Labels.
type Draft struct {
	Image      LabelData
	Boxes      []Box
	Polygons   []Polygon
	Masks      []DraftMask
	Dimensions *geometry.Dimensions
}

// Clone deep copies d except for mask bitmaps, which are shared. Nil and
// empty lists are preserved as they are.
func (d Draft) Clone() Draft {
	out := Draft{Image: d.Image.Clone()}
	if out.Image == nil {
		out.Image = LabelData{}
	}
	if d.Boxes != nil {
		out.Boxes = make([]Box, 0, len(d.Boxes))
	}
	if d.Polygons != nil {
		out.Polygons = make([]Polygon, 0, len(d.Polygons))
	}
	if d.Masks != nil {
		out.Masks = make([]DraftMask, 0, len(d.Masks))
	}
	for _, b := range d.Boxes {
		out.Boxes = append(out.Boxes, b.Clone())
	}
	for _, p := range d.Polygons {
		out.Polygons = append(out.Polygons, p.Clone())
	}
	for _, m := range d.Masks {
		out.Masks = append(out.Masks, m.Clone())
	}
	if d.Dimensions != nil {
		dims := *d.Dimensions
		out.Dimensions = &dims
	}
	return out
}

// Bitmaps returns the mask bitmaps referenced by d.
func (d Draft) Bitmaps() []*mask.Bitmap {
	out := make([]*mask.Bitmap, 0, len(d.Masks))
	for _, m := range d.Masks {
		if m.Map != nil {
			out = append(out, m.Map)
		}
	}
	return out
}

// ToDraft decodes l into an editable draft.
func ToDraft(l Labels) (Draft, error) {
	d := Draft{
		Image:    l.Image.Clone(),
		Boxes:    make([]Box, 0, len(l.Boxes)),
		Polygons: make([]Polygon, 0, len(l.Polygons)),
		Masks:    make([]DraftMask, 0, len(l.Masks)),
	}
	if d.Image == nil {
		d.Image = LabelData{}
	}
	for _, b := range l.Boxes {
		d.Boxes = append(d.Boxes, b.Clone())
	}
	for _, p := range l.Polygons {
		d.Polygons = append(d.Polygons, p.Clone())
	}
	for i, m := range l.Masks {
		bmp, err := mask.FromRLE(m.Map)
		if err != nil {
			return Draft{}, fmt.Errorf("mask %d: %w", i, err)
		}
		d.Masks = append(d.Masks, DraftMask{Map: bmp, Region: m.Region.clone()})
	}
	if l.Dimensions != nil {
		dims := *l.Dimensions
		d.Dimensions = &dims
	}
	return d, nil
}

// FromDraft encodes d for persistence. Boxes are normalized and masks are
// run-length encoded. dims, when non-nil, replaces d.Dimensions.
func FromDraft(d Draft, dims *geometry.Dimensions) Labels {
	l := Labels{Image: d.Image.Clone()}
	for _, b := range d.Boxes {
		l.Boxes = append(l.Boxes, b.Sorted())
	}
	for _, p := range d.Polygons {
		l.Polygons = append(l.Polygons, p.Clone())
	}
	for _, m := range d.Masks {
		if m.Map == nil {
			continue
		}
		l.Masks = append(l.Masks, Mask{Map: mask.ToRLE(m.Map), Region: m.Region.clone()})
	}
	if dims == nil {
		dims = d.Dimensions
	}
	if dims != nil {
		cp := *dims
		l.Dimensions = &cp
	}
	return l
}
