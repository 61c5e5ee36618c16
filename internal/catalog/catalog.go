package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hohoca/brachyplan/internal/types"
	"github.com/sahilm/fuzzy"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a catalog
type File struct {
	Models []types.ModelInfo `json:"models" yaml:"models"`
}

// Catalog is the read-only inventory of physical applicator modules
type Catalog struct {
	mu     sync.RWMutex
	models []types.ModelInfo
	byID   map[string]int
}

// New builds a catalog from model descriptors
func New(models []types.ModelInfo) (*Catalog, error) {
	if err := validate(models); err != nil {
		return nil, err
	}

	c := &Catalog{byID: make(map[string]int, len(models))}
	for _, m := range models {
		if m.IsMultiChannel() && m.SubTubes == 0 {
			m.SubTubes = types.MaxSubTubes
		}
		c.byID[m.ID] = len(c.models)
		c.models = append(c.models, cloneInfo(m))
	}
	return c, nil
}

// Default returns the built-in inventory
func Default() *Catalog {
	c, err := New(builtinModels())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a .yaml, .yml, .json or .jsonc file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file File
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s (use .yaml, .yml, .json or .jsonc)", ext)
	}

	c, err := New(file.Models)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

// LoadOrDefault loads the catalog at path, or the built-in one when path is
// empty or does not exist
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// AvailableModels returns every model in catalog order
func (c *Catalog) AvailableModels() []types.ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.ModelInfo, len(c.models))
	for i, m := range c.models {
		out[i] = cloneInfo(m)
	}
	return out
}

// ModelInfo looks up a model by id
func (c *Catalog) ModelInfo(id string) (types.ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return types.ModelInfo{}, false
	}
	return cloneInfo(c.models[i]), true
}

// Search fuzzy-matches models by name, id and type. Results are ordered by
// match score; an empty query returns every model.
func (c *Catalog) Search(query string) []types.ModelInfo {
	models := c.AvailableModels()
	if strings.TrimSpace(query) == "" {
		return models
	}

	matches := fuzzy.FindFrom(query, searchSource(models))
	out := make([]types.ModelInfo, 0, len(matches))
	for _, match := range matches {
		out = append(out, models[match.Index])
	}
	return out
}

// Clamp bounds a parameter value to the model's range. It reports false when
// the model or parameter is unknown.
func (c *Catalog) Clamp(modelID, key string, v float64) (float64, bool) {
	info, ok := c.ModelInfo(modelID)
	if !ok {
		return v, false
	}
	r, ok := info.Parameter(key)
	if !ok {
		return v, false
	}
	return r.Clamp(v), true
}

// Defaults returns the default parameter values of a model
func (c *Catalog) Defaults(modelID string) map[string]float64 {
	info, ok := c.ModelInfo(modelID)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(info.Parameters))
	for _, p := range info.Parameters {
		out[p.Key] = p.Default
	}
	return out
}

// searchSource adapts models to fuzzy.Source
type searchSource []types.ModelInfo

func (s searchSource) String(i int) string {
	return s[i].Name + " " + s[i].ID + " " + s[i].Type
}

func (s searchSource) Len() int {
	return len(s)
}

var knownTypes = []string{
	types.ModelTypeCylinder,
	types.ModelTypeTandem,
	types.ModelTypeRing,
	types.ModelTypeOvoid,
	types.ModelTypeNeedle,
	types.ModelTypeMultiChannel,
}

func validate(models []types.ModelInfo) error {
	if len(models) == 0 {
		return fmt.Errorf("no models defined")
	}

	seen := make(map[string]bool, len(models))
	for i, m := range models {
		if m.ID == "" {
			return fmt.Errorf("model %d: id is required", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("model %s: duplicate id", m.ID)
		}
		seen[m.ID] = true

		if !slices.Contains(knownTypes, m.Type) {
			return fmt.Errorf("model %s: unknown type '%s'", m.ID, m.Type)
		}
		if m.SubTubes < 0 || m.SubTubes > types.MaxSubTubes {
			return fmt.Errorf("model %s: subTubes must be between 0 and %d", m.ID, types.MaxSubTubes)
		}
		if m.SubTubes > 0 && !m.IsMultiChannel() {
			return fmt.Errorf("model %s: only multi_channel models have sub-tubes", m.ID)
		}

		keys := make(map[string]bool, len(m.Parameters))
		for _, p := range m.Parameters {
			if p.Key == "" {
				return fmt.Errorf("model %s: parameter key is required", m.ID)
			}
			if keys[p.Key] {
				return fmt.Errorf("model %s: duplicate parameter '%s'", m.ID, p.Key)
			}
			keys[p.Key] = true
			if p.Min > p.Max {
				return fmt.Errorf("model %s: parameter '%s' has min greater than max", m.ID, p.Key)
			}
			if p.Default < p.Min || p.Default > p.Max {
				return fmt.Errorf("model %s: parameter '%s' default outside range", m.ID, p.Key)
			}
		}
	}
	return nil
}

func cloneInfo(m types.ModelInfo) types.ModelInfo {
	m.Parameters = append([]types.ParameterRange(nil), m.Parameters...)
	return m
}
