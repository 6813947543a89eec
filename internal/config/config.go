package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the immutable startup configuration for the input server.
// It is snapshotted once at startup; nothing re-reads the file at runtime.
type Settings struct {
	// If true, the command server starts listening at boot.
	AutoStart bool `yaml:"auto_start"`

	// TCP port for the command listener (loopback only).
	Port int `yaml:"port"`

	// Simulation frame rate.
	TickRateHz int `yaml:"tick_rate_hz"`

	// Default window lengths (seconds) for move/look commands that omit "duration".
	DefaultMoveDurationS float64 `yaml:"default_move_duration_s"`
	DefaultLookDurationS float64 `yaml:"default_look_duration_s"`

	// Max walk speed applied on sprint off/on.
	NormalWalkSpeed float64 `yaml:"normal_walk_speed"`
	SprintWalkSpeed float64 `yaml:"sprint_walk_speed"`

	// Default output root for screenshots and state documents.
	SaveDir string `yaml:"save_dir"`

	// Runtime data directory (journal, index db).
	DataDir string `yaml:"data_dir"`

	Journal bool `yaml:"journal"`
	IndexDB bool `yaml:"index_db"`
}

func Defaults() Settings {
	return Settings{
		AutoStart:            true,
		Port:                 17777,
		TickRateHz:           30,
		DefaultMoveDurationS: 0.25,
		DefaultLookDurationS: 0.2,
		NormalWalkSpeed:      600,
		SprintWalkSpeed:      1000,
		SaveDir:              "./saved",
		DataDir:              "./data",
		Journal:              true,
		IndexDB:              true,
	}
}

func Load(path string) (Settings, error) {
	s := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if s.Port < 1024 || s.Port > 65535 {
		return fmt.Errorf("port out of range: %d (want 1024..65535)", s.Port)
	}
	if s.TickRateHz < 1 {
		return fmt.Errorf("tick_rate_hz must be >= 1, got %d", s.TickRateHz)
	}
	if s.DefaultMoveDurationS < 0 {
		return fmt.Errorf("default_move_duration_s must be >= 0, got %g", s.DefaultMoveDurationS)
	}
	if s.DefaultLookDurationS < 0 {
		return fmt.Errorf("default_look_duration_s must be >= 0, got %g", s.DefaultLookDurationS)
	}
	if s.NormalWalkSpeed < 0 {
		return fmt.Errorf("normal_walk_speed must be >= 0, got %g", s.NormalWalkSpeed)
	}
	if s.SprintWalkSpeed < 0 {
		return fmt.Errorf("sprint_walk_speed must be >= 0, got %g", s.SprintWalkSpeed)
	}
	return nil
}
