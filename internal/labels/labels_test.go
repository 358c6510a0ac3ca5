package labels

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/mask"
)

const wire = `{
  "image": {"quality": ["good"]},
  "boxes": [{"pt1": {"x": 0.6, "y": 0.7}, "pt2": {"x": 0.1, "y": 0.2}, "labels": {"kind": ["car"]}}],
  "polygons": [{"points": [{"x": 0.1, "y": 0.1}, {"x": 0.5, "y": 0.1}, {"x": 0.1, "y": 0.1}], "labels": {}, "readonly": true}],
  "masks": [{"map": {"dimensions": {"width": 2, "height": 2}, "counts": [1, 2, 1]}, "labels": {}, "metadata": {"source": "fill"}}],
  "dimensions": {"width": 640, "height": 480}
}`

func TestWireRoundTrip(t *testing.T) {
	var l Labels
	if err := json.Unmarshal([]byte(wire), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := Validate(l); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d, err := ToDraft(l)
	if err != nil {
		t.Fatalf("ToDraft: %v", err)
	}
	if got := d.Masks[0].Map.Values; !reflect.DeepEqual(got, []byte{255, 0, 0, 255}) {
		t.Fatalf("mask values %v", got)
	}
	if !d.Polygons[0].Readonly || d.Masks[0].Metadata["source"] != "fill" {
		t.Fatalf("region fields lost: %+v", d)
	}

	back := FromDraft(d, nil)
	if back.Boxes[0].PT1 != (geometry.Point{X: 0.1, Y: 0.2}) || *back.Boxes[0].PT2 != (geometry.Point{X: 0.6, Y: 0.7}) {
		t.Fatalf("box not normalized: %+v", back.Boxes[0])
	}
	if !reflect.DeepEqual(back.Masks[0].Map.Counts, []int{1, 2, 1}) {
		t.Fatalf("counts %v", back.Masks[0].Map.Counts)
	}
	if back.Dimensions == nil || back.Dimensions.Width != 640 {
		t.Fatalf("dimensions %+v", back.Dimensions)
	}
	raw, err := json.Marshal(back)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"pt1"`, `"pt2"`, `"points"`, `"map"`, `"counts"`, `"labels"`, `"metadata"`, `"readonly"`, `"dimensions"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("encoded labels missing %s: %s", key, raw)
		}
	}
}

func TestToDraftMalformedMask(t *testing.T) {
	l := Labels{Masks: []Mask{{Map: mask.RLEMap{Dimensions: geometry.Dimensions{Width: 2, Height: 2}, Counts: []int{3}}}}}
	if _, err := ToDraft(l); !errors.Is(err, mask.ErrMalformedRLE) {
		t.Fatalf("expected ErrMalformedRLE, got %v", err)
	}
	if err := Validate(l); !errors.Is(err, mask.ErrMalformedRLE) {
		t.Fatalf("Validate: expected ErrMalformedRLE, got %v", err)
	}

	huge := Labels{Masks: []Mask{{Map: mask.RLEMap{Dimensions: geometry.Dimensions{Width: 1 << 32, Height: 1 << 32}}}}}
	if err := Validate(huge); !errors.Is(err, mask.ErrMalformedRLE) {
		t.Fatalf("Validate oversize: expected ErrMalformedRLE, got %v", err)
	}
	if _, err := ToDraft(huge); !errors.Is(err, mask.ErrMalformedRLE) {
		t.Fatalf("ToDraft oversize: expected ErrMalformedRLE, got %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	pt2 := geometry.Point{X: 1.5, Y: 0.5}
	err := Validate(Labels{Boxes: []Box{{PT1: geometry.Point{}, PT2: &pt2}}})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := Validate(Labels{Boxes: []Box{{}}}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("open box accepted: %v", err)
	}
}

func TestDraftCloneSharesBitmaps(t *testing.T) {
	bmp := mask.New(geometry.Dimensions{Width: 1, Height: 1})
	d := Draft{
		Image: LabelData{"a": {"x"}},
		Masks: []DraftMask{{Map: bmp, Region: Region{Labels: LabelData{"k": {"v"}}}}},
		Boxes: []Box{{PT1: geometry.Point{X: 0.1}}},
	}
	c := d.Clone()
	if c.Masks[0].Map != bmp {
		t.Fatal("bitmap should be shared")
	}
	c.Masks[0].Labels["k"][0] = "changed"
	c.Image["a"] = nil
	c.Boxes[0].PT1.X = 0.9
	if d.Masks[0].Labels["k"][0] != "v" || d.Image["a"][0] != "x" || d.Boxes[0].PT1.X != 0.1 {
		t.Fatal("clone shares label data")
	}
}

func TestSortedCollapsesOpenBox(t *testing.T) {
	b := Box{PT1: geometry.Point{X: 0.3, Y: 0.4}}.Sorted()
	if b.PT2 == nil || *b.PT2 != b.PT1 {
		t.Fatalf("sorted open box %+v", b)
	}
}
