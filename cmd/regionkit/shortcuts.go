package main

import (
	"flag"
	"fmt"

	"github.com/example/regionkit/internal/labels"
)

// shortcutsCmd prints the keyboard shortcut assigned to every label option.
type shortcutsCmd struct {
	config string
	json   bool
	*root
	fs *flag.FlagSet
}

func (s *shortcutsCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseShortcutsCmd(args []string, r *root) (*shortcutsCmd, error) {
	fs := flag.NewFlagSet("shortcuts", flag.ExitOnError)
	s := &shortcutsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(s)
	fs.StringVar(&s.config, "config", "", "label config JSON file")
	fs.BoolVar(&s.json, "json", false, "print the config with shortcuts as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if s.config == "" {
		return nil, &UsageError{of: s}
	}
	return s, nil
}

func (s *shortcutsCmd) Run() error {
	var cfg labels.Config
	if err := readJSON(s.config, &cfg); err != nil {
		return err
	}
	cfg = cfg.WithShortcuts()
	if s.json {
		return writeJSON(s.stdout, "", cfg)
	}
	list := func(scope string, configs []labels.LabelConfig) {
		for _, c := range configs {
			for _, o := range c.Options {
				key := o.Shortcut
				if key == "" {
					key = "-"
				}
				fmt.Fprintf(s.stdout, "%s\t%s\t%s\t%s\n", scope, c.Name, o.Label(), key)
			}
		}
	}
	list("image", cfg.Image)
	list("region", cfg.Regions)
	return nil
}
