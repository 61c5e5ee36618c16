package types

import "time"

// Dwell grid bounds in millimetres. Positions run from GridStart down to GridEnd.
const (
	GridStart        = 1130.0
	GridEnd          = 109.0
	DefaultDwellStep = 2.5
	// MinDwellStep bounds the grid at roughly ten thousand positions
	MinDwellStep = 0.1
)

// Channel defaults
const (
	DefaultChannelName  = "custom"
	DefaultSourceLength = 1130.0
	DefaultOffset       = 0.0
)

// Sub-tube numbering of a multi-channel applicator. Sub-tube 1 is the centre tube.
const (
	CenterSubTube = 1
	MaxSubTubes   = 6
)

// Editable channel fields accepted by UpdateField
const (
	FieldName         = "name"
	FieldChannelIndex = "channelIndex"
	FieldDwellStep    = "dwellStep"
	FieldSourceLength = "sourceLength"
	FieldOffset       = "offset"
)

// DwellGrid is the global grid of candidate dwell positions
type DwellGrid struct {
	Step      float64   `json:"step" yaml:"step"`
	Positions []float64 `json:"positions" yaml:"positions"`
}

// Point3D is a position in patient coordinates (mm)
type Point3D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns the component-wise sum of p and q
func (p Point3D) Add(q Point3D) Point3D {
	return Point3D{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Pose is the placement of a reconstruction model in the viewing frame
type Pose struct {
	Translation Point3D `json:"translation" yaml:"translation"`
	Rotation    Point3D `json:"rotation" yaml:"rotation"` // degrees around x, y, z
}

// Channel is a single applicator catheter in the treatment plan
type Channel struct {
	ID     string `json:"id" yaml:"id"`
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`

	ChannelIndex    int  `json:"channelIndex" yaml:"channelIndex"`
	ChannelIndexSet bool `json:"channelIndexSet,omitempty" yaml:"channelIndexSet,omitempty"` // true when the user overrode the default

	DwellStep       float64   `json:"dwellStep" yaml:"dwellStep"`
	SourceLength    float64   `json:"sourceLength" yaml:"sourceLength"`
	Offset          float64   `json:"offset" yaml:"offset"`
	ActivePositions []float64 `json:"activePositions" yaml:"activePositions"` // kept in grid order (descending)

	ModelID              string             `json:"modelId,omitempty" yaml:"modelId,omitempty"`
	ModelName            string             `json:"modelName,omitempty" yaml:"modelName,omitempty"`
	ModelParameters      map[string]float64 `json:"modelParameters,omitempty" yaml:"modelParameters,omitempty"`
	ProtrusionLength     *float64           `json:"protrusionLength,omitempty" yaml:"protrusionLength,omitempty"`
	CenterTubeProtrusion *float64           `json:"centerTubeProtrusion,omitempty" yaml:"centerTubeProtrusion,omitempty"`
	Pose                 Pose               `json:"pose" yaml:"pose"`

	SelectedChannels    []int  `json:"selectedChannels,omitempty" yaml:"selectedChannels,omitempty"` // sorted ascending
	ParentChannelID     string `json:"parentChannelId,omitempty" yaml:"parentChannelId,omitempty"`
	SubTube             int    `json:"subTube,omitempty" yaml:"subTube,omitempty"`
	IsMultiChannelChild bool   `json:"isMultiChannelChild,omitempty" yaml:"isMultiChannelChild,omitempty"`

	IsModelReconstructed bool      `json:"isModelReconstructed" yaml:"isModelReconstructed"`
	PreprocessingPoints  []Point3D `json:"preprocessingPoints,omitempty" yaml:"preprocessingPoints,omitempty"`

	Visible bool `json:"visible" yaml:"visible"`
	Locked  bool `json:"locked" yaml:"locked"`
}

// Clone returns a deep copy of the channel
func (c Channel) Clone() Channel {
	out := c
	out.ActivePositions = append([]float64(nil), c.ActivePositions...)
	out.SelectedChannels = append([]int(nil), c.SelectedChannels...)
	out.PreprocessingPoints = append([]Point3D(nil), c.PreprocessingPoints...)
	if c.ModelParameters != nil {
		out.ModelParameters = make(map[string]float64, len(c.ModelParameters))
		for k, v := range c.ModelParameters {
			out.ModelParameters[k] = v
		}
	}
	if c.ProtrusionLength != nil {
		v := *c.ProtrusionLength
		out.ProtrusionLength = &v
	}
	if c.CenterTubeProtrusion != nil {
		v := *c.CenterTubeProtrusion
		out.CenterTubeProtrusion = &v
	}
	return out
}

// HasSubTube reports whether sub-tube n is in the channel's selection
func (c Channel) HasSubTube(n int) bool {
	for _, s := range c.SelectedChannels {
		if s == n {
			return true
		}
	}
	return false
}

// CenterTubeEditable reports whether the centre-tube protrusion can be edited.
// It is only meaningful while the centre tube is part of the selection.
func (c Channel) CenterTubeEditable() bool {
	return c.HasSubTube(CenterSubTube)
}

// ChannelEvent is a recorded change to the channel list
type ChannelEvent struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"sessionId"`
	ChannelID     string    `json:"channelId"`
	ChannelNumber int       `json:"channelNumber"`
	ChannelName   string    `json:"channelName"`
	Event         string    `json:"event"`
	Field         string    `json:"field,omitempty"`
	Value         string    `json:"value,omitempty"`
}

// Session holds state persisted between runs
type Session struct {
	RecentTemplates []string `json:"recentTemplates,omitempty"`
	CatalogFile     string   `json:"catalogFile,omitempty"`
	LastTemplate    string   `json:"lastTemplate,omitempty"`
}
