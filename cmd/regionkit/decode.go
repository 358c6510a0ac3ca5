package main

import (
	"flag"
	"fmt"

	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/render"
)

// decodeCmd expands an RLE mask into a grayscale PNG.
type decodeCmd struct {
	input  string
	output string
	*root
	fs *flag.FlagSet
}

func (d *decodeCmd) FlagSet() *flag.FlagSet {
	return d.fs
}

func parseDecodeCmd(args []string, r *root) (*decodeCmd, error) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	d := &decodeCmd{root: r, fs: fs}
	fs.Usage = usageFunc(d)
	fs.StringVar(&d.input, "in", "", "RLE mask JSON file")
	fs.StringVar(&d.output, "out", "", "output PNG path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if d.input == "" || d.output == "" {
		return nil, &UsageError{of: d}
	}
	return d, nil
}

func (d *decodeCmd) Run() error {
	var rle mask.RLEMap
	if err := readJSON(d.input, &rle); err != nil {
		return err
	}
	b, err := mask.FromRLE(rle)
	if err != nil {
		return fmt.Errorf("decode %s: %w", d.input, err)
	}
	if err := writePNG(d.output, render.MaskImage(b)); err != nil {
		return err
	}
	fmt.Fprintf(d.stderr, "wrote %dx%d mask to %s\n", b.Width, b.Height, d.output)
	return nil
}
