package channel

import (
	"context"
	"fmt"
	"slices"

	"github.com/hohoca/brachyplan/internal/template"
	"github.com/hohoca/brachyplan/internal/types"
)

// Snapshot captures the channel list as a template
func (m *Model) Snapshot(name string) template.Template {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := template.Template{Name: name, DwellStep: m.grid.Step}
	position := make(map[string]int, len(m.channels))
	for i, ch := range m.channels {
		position[ch.ID] = i + 1
	}

	for _, ch := range m.channels {
		c := ch.Clone()
		spec := template.ChannelSpec{
			Name:                 c.Name,
			Offset:               c.Offset,
			ActivePositions:      c.ActivePositions,
			ModelID:              c.ModelID,
			ModelName:            c.ModelName,
			ModelParameters:      c.ModelParameters,
			ProtrusionLength:     c.ProtrusionLength,
			CenterTubeProtrusion: c.CenterTubeProtrusion,
			SelectedChannels:     c.SelectedChannels,
			IsModelReconstructed: c.IsModelReconstructed,
			PreprocessingPoints:  c.PreprocessingPoints,
			Locked:               c.Locked,
		}
		if c.ChannelIndexSet {
			idx := c.ChannelIndex
			spec.ChannelIndex = &idx
		}
		if c.SourceLength != types.DefaultSourceLength {
			v := c.SourceLength
			spec.SourceLength = &v
		}
		if c.Pose != (types.Pose{}) {
			p := c.Pose
			spec.Pose = &p
		}
		if !c.Visible {
			hidden := false
			spec.Visible = &hidden
		}
		if c.IsMultiChannelChild {
			spec.Parent = position[c.ParentChannelID]
			spec.SubTube = c.SubTube
		}
		t.Channels = append(t.Channels, spec)
	}
	return t
}

// LoadTemplate replaces the channel list with the channels of a template after
// the user confirms. Sub-tube channels are recreated from each base channel's
// sub-tube selection and then take the values of the matching sub-tube specs.
// Active positions that are not on the template's grid are dropped.
func (m *Model) LoadTemplate(ctx context.Context, t *template.Template) (bool, error) {
	if err := template.Validate(t); err != nil {
		return false, fmt.Errorf("failed to load template: %w", err)
	}

	if n := m.Len(); n > 0 {
		confirmed, err := m.dialogs.Confirm(ctx, fmt.Sprintf("Replace %d channels with template %q?", n, t.Name))
		if err != nil {
			return false, fmt.Errorf("failed to confirm template load: %w", err)
		}
		if !confirmed {
			return false, nil
		}
	}

	m.mu.Lock()

	var events []event
	for _, ch := range m.channels {
		events = append(events, deleteEvent(ch.Clone()))
	}
	m.channels = nil
	m.byID = make(map[string]*types.Channel)
	m.children = make(map[string][]string)
	m.selectedID = ""

	step := t.DwellStep
	if !validStep(step) {
		step = m.grid.Step
	}
	m.grid = GenerateDwellGrid(step)
	events = append(events, gridEvent(types.DwellGrid{
		Step:      m.grid.Step,
		Positions: append([]float64(nil), m.grid.Positions...),
	}))

	bases := make(map[int]*types.Channel)
	for i, spec := range t.Channels {
		if spec.IsSubTube() {
			continue
		}
		ch := &types.Channel{ID: m.newID(), DwellStep: m.grid.Step}
		m.applySpecLocked(ch, spec)
		m.applyModelLocked(ch, spec)
		m.channels = append(m.channels, ch)
		m.byID[ch.ID] = ch
		bases[i+1] = ch
	}
	m.renumber()

	for _, base := range m.channels {
		if len(base.SelectedChannels) > 0 {
			// children start from the base values; specs below override them
			m.syncMultiChannelChildren(base, base.SelectedChannels)
		}
	}

	for i, spec := range t.Channels {
		if !spec.IsSubTube() {
			continue
		}
		base := bases[spec.Parent]
		var child *types.Channel
		if base != nil {
			for _, cid := range m.children[base.ID] {
				if c := m.byID[cid]; c != nil && c.SubTube == spec.SubTube {
					child = c
				}
			}
		}
		if child == nil {
			m.logger.Warn("template sub-tube channel has no selected sub-tube on its base, skipped",
				"template", t.Name, "channel", i+1, "parent", spec.Parent, "subTube", spec.SubTube)
			continue
		}
		m.applySpecLocked(child, spec)
		if spec.ModelParameters != nil {
			child.ModelParameters = m.clampParameters(child.ModelID, spec.ModelParameters)
		}
		child.IsModelReconstructed = true
		child.PreprocessingPoints = append([]types.Point3D(nil), spec.PreprocessingPoints...)
	}
	m.renumber()

	for _, ch := range m.channels {
		events = append(events, addEvent(ch.Clone()))
	}
	var selected *types.Channel
	if len(m.channels) > 0 {
		m.selectedID = m.channels[0].ID
		c := m.channels[0].Clone()
		selected = &c
	}
	events = append(events, selectEvent(selected))
	count := len(m.channels)
	m.mu.Unlock()

	m.logger.Info("template loaded", "template", t.Name, "channels", count, "step", step)
	m.emit(events...)
	return true, nil
}

// applySpecLocked copies the plain channel values of a spec
func (m *Model) applySpecLocked(ch *types.Channel, spec template.ChannelSpec) {
	if spec.Name != "" {
		ch.Name = spec.Name
	} else if ch.Name == "" {
		ch.Name = types.DefaultChannelName
	}
	if spec.ChannelIndex != nil {
		ch.ChannelIndex = *spec.ChannelIndex
		ch.ChannelIndexSet = true
	}
	if spec.SourceLength != nil {
		ch.SourceLength = *spec.SourceLength
	} else if ch.SourceLength == 0 {
		ch.SourceLength = types.DefaultSourceLength
	}
	if spec.Offset != 0 || !ch.IsMultiChannelChild {
		ch.Offset = spec.Offset
	}
	ch.DwellStep = m.grid.Step
	ch.ActivePositions = m.onGridPositions(spec.ActivePositions)
	ch.Visible = spec.IsVisible()
	ch.Locked = spec.Locked
}

// applyModelLocked assigns the model of a base channel spec
func (m *Model) applyModelLocked(ch *types.Channel, spec template.ChannelSpec) {
	if spec.ModelID == "" {
		return
	}
	info, known := m.catalog.ModelInfo(spec.ModelID)
	if !known {
		m.logger.Warn("model not found in catalog", "model", spec.ModelID)
	}

	ch.ModelID = spec.ModelID
	ch.ModelName = spec.ModelName
	if ch.ModelName == "" && known {
		ch.ModelName = info.Name
	}
	ch.ModelParameters = m.clampParameters(spec.ModelID, spec.ModelParameters)
	if v, ok := ch.ModelParameters[types.ParamProtrusionLength]; ok {
		ch.ProtrusionLength = &v
	} else if spec.ProtrusionLength != nil {
		v := *spec.ProtrusionLength
		ch.ProtrusionLength = &v
	}
	if v, ok := ch.ModelParameters[types.ParamCenterTubeProtrusion]; ok {
		ch.CenterTubeProtrusion = &v
	} else if spec.CenterTubeProtrusion != nil {
		v := *spec.CenterTubeProtrusion
		ch.CenterTubeProtrusion = &v
	}
	if spec.Pose != nil {
		ch.Pose = *spec.Pose
	}
	ch.IsModelReconstructed = spec.IsModelReconstructed
	ch.PreprocessingPoints = append([]types.Point3D(nil), spec.PreprocessingPoints...)

	if !known || !info.IsMultiChannel() {
		return
	}
	maxTubes := info.SubTubes
	if maxTubes <= 0 || maxTubes > types.MaxSubTubes {
		maxTubes = types.MaxSubTubes
	}
	var selected []int
	for _, s := range spec.SelectedChannels {
		if s >= 1 && s <= maxTubes && !slices.Contains(selected, s) {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		selected = []int{types.CenterSubTube}
	}
	slices.Sort(selected)
	ch.SelectedChannels = selected
}

// clampParameters bounds known parameters and drops keys the model does not have
func (m *Model) clampParameters(modelID string, params map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(params))
	info, known := m.catalog.ModelInfo(modelID)
	for k, v := range params {
		if !known {
			out[k] = v
			continue
		}
		r, ok := info.Parameter(k)
		if !ok {
			m.logger.Warn("unknown model parameter ignored", "model", modelID, "key", k)
			continue
		}
		out[k] = r.Clamp(v)
	}
	return out
}

// onGridPositions snaps positions onto the current grid, dropping the rest,
// and returns them deduplicated in grid order
func (m *Model) onGridPositions(positions []float64) []float64 {
	idx := make([]int, 0, len(positions))
	for _, p := range positions {
		if i := gridIndex(m.grid, p); i >= 0 && !slices.Contains(idx, i) {
			idx = append(idx, i)
		}
	}
	slices.Sort(idx)
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = m.grid.Positions[i]
	}
	return out
}
