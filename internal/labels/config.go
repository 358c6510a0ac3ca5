package labels

import (
	"slices"
	"strings"
	"unicode"
)

// Option is one selectable value of a label config.
type Option struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Shortcut    string `json:"shortcut,omitempty"`
}

// LabelConfig describes one label field.
type LabelConfig struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Multiple    bool     `json:"multiple"`
	Freeform    bool     `json:"freeform"`
	Required    bool     `json:"required,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
	Defaults    []string `json:"defaults,omitempty"`
}

// Config groups the image level and region level label configs.
type Config struct {
	Image   []LabelConfig `json:"image,omitempty"`
	Regions []LabelConfig `json:"regions,omitempty"`
}

// Label returns the display name, falling back to the name.
func (o Option) Label() string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.Name
}

// AssignShortcuts returns a copy of configs where every option has a single
// lower-case shortcut when one is available. Explicit shortcuts are kept and
// reserved first, in list order.
func AssignShortcuts(configs []LabelConfig) []LabelConfig {
	taken := map[string]bool{}
	for _, c := range configs {
		for _, o := range c.Options {
			if o.Shortcut != "" {
				taken[o.Shortcut] = true
			}
		}
	}
	out := make([]LabelConfig, len(configs))
	for i, c := range configs {
		out[i] = c
		out[i].Defaults = slices.Clone(c.Defaults)
		if c.Options == nil {
			continue
		}
		out[i].Options = make([]Option, len(c.Options))
		for j, o := range c.Options {
			if o.Shortcut == "" {
				o.Shortcut = pickShortcut(o.Label(), taken)
			}
			out[i].Options[j] = o
		}
	}
	return out
}

func pickShortcut(name string, taken map[string]bool) string {
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			continue
		}
		s := string(r)
		if !taken[s] {
			taken[s] = true
			return s
		}
	}
	return ""
}

// ToggleSelection returns the selection after value is clicked. Multiple
// configs toggle membership; single configs replace the selection, and
// clicking the selected value clears it unless the config is required.
func ToggleSelection(value string, selected []string, multiple, required bool) []string {
	if slices.Contains(selected, value) {
		if multiple {
			return slices.DeleteFunc(slices.Clone(selected), func(v string) bool { return v == value })
		}
		if required {
			return slices.Clone(selected)
		}
		return []string{}
	}
	if multiple {
		return append(slices.Clone(selected), value)
	}
	return []string{value}
}

// Find returns the config with the given name.
func (c Config) Find(name string) (LabelConfig, bool) {
	for _, group := range [][]LabelConfig{c.Image, c.Regions} {
		for _, lc := range group {
			if lc.Name == name {
				return lc, true
			}
		}
	}
	return LabelConfig{}, false
}

// WithShortcuts assigns shortcuts across both config groups.
func (c Config) WithShortcuts() Config {
	all := AssignShortcuts(append(slices.Clone(c.Image), c.Regions...))
	return Config{Image: all[:len(c.Image)], Regions: all[len(c.Image):]}
}
