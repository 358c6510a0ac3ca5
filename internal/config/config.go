// Package config reads and writes the RC-format configuration file.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/regionkit/internal/draft"
	"github.com/example/regionkit/internal/logging"
	"github.com/example/regionkit/internal/theme"
)

// Draw holds the default drawing tool settings.
type Draw struct {
	Mode      draft.Mode
	Radius    float64
	Threshold int
	Flood     bool
}

// Notify holds notification settings.
type Notify struct {
	FloodUnavailable bool
	Save             bool
	Copy             bool
}

// Store holds persistence settings.
type Store struct {
	Path string
}

// Config holds the application configuration.
type Config struct {
	Theme           string
	MaxCanvasSize   int
	HistoryLength   int
	HistoryDebounce time.Duration
	LogLevel        logging.Level
	Draw            Draw
	Notify          Notify
	Store           Store
	Themes          map[string]*theme.Theme
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		MaxCanvasSize: 512,
		HistoryLength: 10,
		LogLevel:      logging.LevelInfo,
		Draw: Draw{
			Mode:      draft.Boxes,
			Radius:    5,
			Threshold: 10,
			Flood:     true,
		},
		Notify: Notify{FloodUnavailable: true},
		Themes: make(map[string]*theme.Theme),
	}
}

// Drawing returns the initial drawing settings for a draft.
func (c *Config) Drawing() draft.Drawing {
	return draft.Drawing{
		Mode:      c.Draw.Mode,
		Flood:     c.Draw.Flood,
		Radius:    c.Draw.Radius,
		Threshold: c.Draw.Threshold,
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	fmt.Fprintf(&sb, "max_canvas_size = %d\n", c.MaxCanvasSize)
	fmt.Fprintf(&sb, "history_length = %d\n", c.HistoryLength)
	fmt.Fprintf(&sb, "history_debounce = %s\n", c.HistoryDebounce)
	fmt.Fprintf(&sb, "log_level = %s\n", c.LogLevel)
	sb.WriteString("\n")

	sb.WriteString("[draw]\n")
	fmt.Fprintf(&sb, "mode = %s\n", c.Draw.Mode)
	fmt.Fprintf(&sb, "radius = %g\n", c.Draw.Radius)
	fmt.Fprintf(&sb, "threshold = %d\n", c.Draw.Threshold)
	fmt.Fprintf(&sb, "flood = %v\n", c.Draw.Flood)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "flood_unavailable = %v\n", c.Notify.FloodUnavailable)
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	if c.Store.Path != "" {
		sb.WriteString("[store]\n")
		fmt.Fprintf(&sb, "path = %s\n", c.Store.Path)
		sb.WriteString("\n")
	}

	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)
	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range t.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", f.Name, theme.FormatColor(f.Color))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
