package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// KeyBindings maps triage workflow actions to single-character shortcuts.
// Shortcuts are only active while a triage workflow is presenting a message;
// the input layer ignores them when focus is inside a text field.
type KeyBindings struct {
	Archive  string `json:"archive"`
	Trash    string `json:"trash"`
	Star     string `json:"star"`
	MarkRead string `json:"mark_read"`
	Snooze   string `json:"snooze"`
	Skip     string `json:"skip"`
	Quit     string `json:"quit"`
}

// TriageConfig tunes the triage queue engine
type TriageConfig struct {
	// AdvanceDelayMs is the presentation pause after a committed decision
	AdvanceDelayMs int `json:"advance_delay_ms"`
}

// Config holds all configuration for the triage engine CLI
type Config struct {
	// Database is the path to the local message database
	Database string `json:"database"`

	// SnoozePresets is the path to an optional YAML file with extra presets
	SnoozePresets string `json:"snooze_presets"`

	// Keyboard shortcuts
	Keys KeyBindings `json:"keys"`

	// Triage queue tuning
	Triage TriageConfig `json:"triage"`

	// Logging
	LogFile string `json:"log_file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: defaultPath("messages.db"),
		Keys: KeyBindings{
			Archive:  "a",
			Trash:    "d",
			Star:     "s",
			MarkRead: "r",
			Snooze:   "z",
			Skip:     "k",
			Quit:     "q",
		},
		Triage: TriageConfig{AdvanceDelayMs: 250},
	}
}

// LoadConfig loads configuration from a JSON file, filling missing fields
// with defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to a JSON file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Triage.AdvanceDelayMs <= 0 {
		c.Triage.AdvanceDelayMs = def.Triage.AdvanceDelayMs
	}
	fillKey(&c.Keys.Archive, def.Keys.Archive)
	fillKey(&c.Keys.Trash, def.Keys.Trash)
	fillKey(&c.Keys.Star, def.Keys.Star)
	fillKey(&c.Keys.MarkRead, def.Keys.MarkRead)
	fillKey(&c.Keys.Snooze, def.Keys.Snooze)
	fillKey(&c.Keys.Skip, def.Keys.Skip)
	fillKey(&c.Keys.Quit, def.Keys.Quit)
}

func fillKey(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}

// defaultPath resolves a file under the user's config directory
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "triage", name)
}
