package types

// Model types known to the reconstruction workflow
const (
	ModelTypeCylinder     = "cylinder"
	ModelTypeTandem       = "tandem"
	ModelTypeRing         = "ring"
	ModelTypeOvoid        = "ovoid"
	ModelTypeNeedle       = "needle"
	ModelTypeMultiChannel = "multi_channel"
)

// Parameter keys that are mirrored onto dedicated channel fields
const (
	ParamProtrusionLength     = "protrusionLength"
	ParamCenterTubeProtrusion = "centerTubeProtrusion"
)

// ParameterRange describes one adjustable model parameter
type ParameterRange struct {
	Key     string  `json:"key" yaml:"key"`
	Label   string  `json:"label,omitempty" yaml:"label,omitempty"`
	Unit    string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step,omitempty" yaml:"step,omitempty"`
	Default float64 `json:"default" yaml:"default"`
}

// Clamp bounds v to the parameter range
func (r ParameterRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// ModelInfo describes one entry of the physical module inventory
type ModelInfo struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Type        string           `json:"type" yaml:"type"`
	SubTubes    int              `json:"subTubes,omitempty" yaml:"subTubes,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []ParameterRange `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// IsMultiChannel reports whether the model has several physical sub-tubes
func (m ModelInfo) IsMultiChannel() bool {
	return m.Type == ModelTypeMultiChannel
}

// Parameter looks up a parameter range by key
func (m ModelInfo) Parameter(key string) (ParameterRange, bool) {
	for _, p := range m.Parameters {
		if p.Key == key {
			return p, true
		}
	}
	return ParameterRange{}, false
}
