package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SnoozePreset defines one named snooze target. Exactly one form applies:
// either After (a relative duration) or Day+At (a calendar target).
type SnoozePreset struct {
	Name string `yaml:"name"`
	// After is a Go duration, e.g. "1h" or "45m"
	After string `yaml:"after,omitempty"`
	// Day is "tomorrow" or a weekday name ("monday" ... "sunday")
	Day string `yaml:"day,omitempty"`
	// At is a 24h clock time, e.g. "09:00"
	At string `yaml:"at,omitempty"`
}

// BuiltinSnoozePresets are the presets every installation carries
func BuiltinSnoozePresets() []SnoozePreset {
	return []SnoozePreset{
		{Name: "later", After: "1h"},
		{Name: "tomorrow", Day: "tomorrow", At: "09:00"},
		{Name: "next-week", Day: "monday", At: "09:00"},
		{Name: "weekend", Day: "saturday", At: "10:00"},
	}
}

// Validate checks the preset definition is well formed
func (p SnoozePreset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("snooze preset without a name")
	}
	hasAfter := strings.TrimSpace(p.After) != ""
	hasDay := strings.TrimSpace(p.Day) != ""
	if hasAfter == hasDay {
		return fmt.Errorf("snooze preset %q: exactly one of after or day/at is required", p.Name)
	}
	if hasDay && strings.TrimSpace(p.At) == "" {
		return fmt.Errorf("snooze preset %q: day requires at", p.Name)
	}
	return nil
}

// LoadSnoozePresets reads user-defined presets from a YAML file and layers
// them over the built-ins; a user preset with a built-in name replaces it.
func LoadSnoozePresets(path string) ([]SnoozePreset, error) {
	presets := BuiltinSnoozePresets()
	if strings.TrimSpace(path) == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snooze presets: %w", err)
	}

	var file struct {
		Presets []SnoozePreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snooze presets: %w", err)
	}

	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		presets = upsertPreset(presets, p)
	}
	return presets, nil
}

func upsertPreset(presets []SnoozePreset, p SnoozePreset) []SnoozePreset {
	for i, existing := range presets {
		if existing.Name == p.Name {
			presets[i] = p
			return presets
		}
	}
	return append(presets, p)
}
