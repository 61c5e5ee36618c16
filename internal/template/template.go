package template

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hohoca/brachyplan/internal/filter"
	"github.com/hohoca/brachyplan/internal/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Template is a saved channel layout that can be loaded into a planning session
type Template struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	DwellStep   float64       `json:"dwellStep,omitempty" yaml:"dwellStep,omitempty"`
	Channels    []ChannelSpec `json:"channels" yaml:"channels"`
}

// ChannelSpec describes one channel of a template. Sub-tube channels name their
// base channel by its 1-based position in the template (Parent) and the
// sub-tube they represent.
type ChannelSpec struct {
	Name            string    `json:"name,omitempty" yaml:"name,omitempty"`
	ChannelIndex    *int      `json:"channelIndex,omitempty" yaml:"channelIndex,omitempty"`
	SourceLength    *float64  `json:"sourceLength,omitempty" yaml:"sourceLength,omitempty"`
	Offset          float64   `json:"offset,omitempty" yaml:"offset,omitempty"`
	ActivePositions []float64 `json:"activePositions,omitempty" yaml:"activePositions,omitempty"`

	ModelID              string             `json:"modelId,omitempty" yaml:"modelId,omitempty"`
	ModelName            string             `json:"modelName,omitempty" yaml:"modelName,omitempty"`
	ModelParameters      map[string]float64 `json:"modelParameters,omitempty" yaml:"modelParameters,omitempty"`
	ProtrusionLength     *float64           `json:"protrusionLength,omitempty" yaml:"protrusionLength,omitempty"`
	CenterTubeProtrusion *float64           `json:"centerTubeProtrusion,omitempty" yaml:"centerTubeProtrusion,omitempty"`
	Pose                 *types.Pose        `json:"pose,omitempty" yaml:"pose,omitempty"`

	SelectedChannels []int `json:"selectedChannels,omitempty" yaml:"selectedChannels,omitempty"`
	Parent           int   `json:"parent,omitempty" yaml:"parent,omitempty"`
	SubTube          int   `json:"subTube,omitempty" yaml:"subTube,omitempty"`

	IsModelReconstructed bool            `json:"isModelReconstructed,omitempty" yaml:"isModelReconstructed,omitempty"`
	PreprocessingPoints  []types.Point3D `json:"preprocessingPoints,omitempty" yaml:"preprocessingPoints,omitempty"`

	Visible *bool `json:"visible,omitempty" yaml:"visible,omitempty"`
	Locked  bool  `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// IsSubTube reports whether s describes a sub-tube channel
func (s ChannelSpec) IsSubTube() bool {
	return s.Parent > 0
}

// IsVisible applies the default visibility
func (s ChannelSpec) IsVisible() bool {
	return s.Visible == nil || *s.Visible
}

// New builds a template with n default channels
func New(name string, n int, step float64) Template {
	t := Template{Name: name, DwellStep: step}
	for i := 0; i < n; i++ {
		t.Channels = append(t.Channels, ChannelSpec{Name: types.DefaultChannelName})
	}
	return t
}

// Load reads a template from a .yaml, .yml, .json or .jsonc file
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	t, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t, nil
}

// Parse decodes template data in the format named by ext
func Parse(data []byte, ext string) (*Template, error) {
	var t Template

	ext = strings.ToLower(ext)
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse YAML template: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &t); err != nil {
			return nil, fmt.Errorf("failed to parse JSON template: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported template format: %s (use .yaml, .yml, .json or .jsonc)", ext)
	}

	if err := Validate(&t); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &t, nil
}

// Validate checks the structural rules of a template
func Validate(t *Template) error {
	if t.DwellStep < 0 || math.IsNaN(t.DwellStep) || math.IsInf(t.DwellStep, 0) {
		return fmt.Errorf("dwellStep must be a positive number")
	}

	seen := make(map[[2]int]bool)
	for i, ch := range t.Channels {
		pos := i + 1
		for _, s := range ch.SelectedChannels {
			if s < 1 || s > types.MaxSubTubes {
				return fmt.Errorf("channel %d: selected sub-tube %d out of range 1-%d", pos, s, types.MaxSubTubes)
			}
		}
		if !ch.IsSubTube() {
			if ch.SubTube != 0 {
				return fmt.Errorf("channel %d: subTube requires a parent", pos)
			}
			continue
		}

		if ch.Parent == pos || ch.Parent > len(t.Channels) {
			return fmt.Errorf("channel %d: parent %d does not exist", pos, ch.Parent)
		}
		if t.Channels[ch.Parent-1].IsSubTube() {
			return fmt.Errorf("channel %d: parent %d is itself a sub-tube channel", pos, ch.Parent)
		}
		if ch.SubTube <= types.CenterSubTube || ch.SubTube > types.MaxSubTubes {
			return fmt.Errorf("channel %d: subTube must be between %d and %d", pos, types.CenterSubTube+1, types.MaxSubTubes)
		}
		key := [2]int{ch.Parent, ch.SubTube}
		if seen[key] {
			return fmt.Errorf("channel %d: duplicate sub-tube %d of channel %d", pos, ch.SubTube, ch.Parent)
		}
		seen[key] = true
	}
	return nil
}

// Save writes a template; the format follows the file extension
func Save(t *Template, path string) error {
	data, err := Marshal(t, filepath.Ext(path))
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create template directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	return nil
}

// Marshal encodes a template in the format named by ext. JSONC is written as plain JSON.
func Marshal(t *Template, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return data, nil
	case ".json", ".jsonc":
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported template format: %s (use .yaml, .yml, .json or .jsonc)", ext)
	}
}

// Query evaluates a JMESPath expression (or $(shell) command) against the template
func Query(t *Template, expr string) (string, error) {
	return filter.Apply(t, expr)
}
