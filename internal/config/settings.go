package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/hohoca/brachyplan/internal/types"
	"gopkg.in/yaml.v3"
)

// Settings holds user preferences read from settings.yaml
type Settings struct {
	DwellStep      float64 `yaml:"dwellStep"`
	ViewerURL      string  `yaml:"viewerURL"`
	MetricsAddr    string  `yaml:"metricsAddr"`
	HistoryEnabled *bool   `yaml:"historyEnabled"`
	LogLevel       string  `yaml:"logLevel"`
}

// DefaultSettings returns the settings used when no file exists
func DefaultSettings() *Settings {
	enabled := true
	return &Settings{
		DwellStep:      types.DefaultDwellStep,
		HistoryEnabled: &enabled,
		LogLevel:       "info",
	}
}

// LoadSettings reads the settings file
// Falls back to defaults if the file doesn't exist
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	// Ensure reasonable defaults
	if s.DwellStep < types.MinDwellStep || math.IsNaN(s.DwellStep) || math.IsInf(s.DwellStep, 0) {
		s.DwellStep = types.DefaultDwellStep
	}
	if s.HistoryEnabled == nil {
		enabled := true
		s.HistoryEnabled = &enabled
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}

	return s, nil
}

// SaveSettings writes the settings file
func SaveSettings(s *Settings, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, FilePermissions); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// IsHistoryEnabled returns whether channel changes are recorded
func (s *Settings) IsHistoryEnabled() bool {
	return s.HistoryEnabled == nil || *s.HistoryEnabled
}
