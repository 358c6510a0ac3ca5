package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/example/regionkit/internal/draft"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/media"
	"github.com/example/regionkit/internal/render"
)

// fillCmd grows one mask from a seed pixel and prints its RLE encoding.
type fillCmd struct {
	image     string
	x, y      int
	threshold int
	radius    float64
	maxSize   int
	output    string
	overlay   string
	*root
	fs *flag.FlagSet
}

func (f *fillCmd) FlagSet() *flag.FlagSet {
	return f.fs
}

func parseFillCmd(args []string, r *root) (*fillCmd, error) {
	fs := flag.NewFlagSet("fill", flag.ExitOnError)
	f := &fillCmd{root: r, fs: fs}
	fs.Usage = usageFunc(f)
	fs.StringVar(&f.image, "image", "", "input image file")
	fs.IntVar(&f.x, "x", -1, "seed x in image pixels")
	fs.IntVar(&f.y, "y", -1, "seed y in image pixels")
	fs.IntVar(&f.threshold, "threshold", r.config.Draw.Threshold, "colour distance tolerance, negative disables growth")
	fs.Float64Var(&f.radius, "radius", r.config.Draw.Radius, "seed block half size in image pixels")
	fs.IntVar(&f.maxSize, "max-size", r.config.MaxCanvasSize, "longest side of the fill canvas")
	fs.StringVar(&f.output, "out", "", "write the RLE mask to this file instead of stdout")
	fs.StringVar(&f.overlay, "overlay", "", "write a PNG preview of the mask over the image")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.image == "" || f.x < 0 || f.y < 0 {
		return nil, &UsageError{of: f}
	}
	return f, nil
}

func (f *fillCmd) Run() error {
	loaded, err := media.Load(context.Background(), media.FileSource{Path: f.image}, f.maxSize)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", f.image, err)
	}
	dims := loaded.Dimensions()
	if f.x >= dims.Width || f.y >= dims.Height {
		return fmt.Errorf("seed (%d, %d) outside %dx%d image", f.x, f.y, dims.Width, dims.Height)
	}
	seed := geometry.Point{
		X: float64(f.x) / float64(dims.Width),
		Y: float64(f.y) / float64(dims.Height),
	}
	b, err := mask.Fill(seed, loaded.Canvas, mask.FillOptions{
		Threshold: f.threshold,
		Radius: geometry.Vec{
			DX: f.radius / float64(dims.Width),
			DY: f.radius / float64(dims.Height),
		},
	})
	if err != nil {
		return fmt.Errorf("flood fill: %w", err)
	}
	if !loaded.Canvas.Available() {
		fmt.Fprintln(f.stderr, "warning: image pixels unavailable, only the seed block was filled")
	}
	fmt.Fprintf(f.stderr, "matched %d of %d cells\n", b.MatchedCount(), b.Len())

	if f.overlay != "" {
		state := draft.State{Labels: labels.Draft{Masks: []labels.DraftMask{{Map: b}}}}
		opts := render.DefaultOptions()
		opts.Theme = f.activeTheme
		if err := writePNG(f.overlay, render.Overlay(loaded.Image, state, opts)); err != nil {
			return err
		}
	}
	return writeJSON(f.stdout, f.output, mask.ToRLE(b))
}
