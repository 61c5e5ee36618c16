package channel

import (
	"context"
	"fmt"

	"github.com/hohoca/brachyplan/internal/types"
)

// SetModelSelection assigns a reconstruction model to a channel. Parameters are
// cleared and the channel is no longer considered reconstructed. Selecting a
// multi-channel model starts the sub-tube selection at the centre tube; any other
// model drops the sub-tube selection and the expanded sub-tube channels.
// An empty modelID clears the model.
func (m *Model) SetModelSelection(id, modelID, modelName string) {
	info, known := m.catalog.ModelInfo(modelID)
	if modelID != "" && !known {
		m.logger.Warn("model not found in catalog", "model", modelID)
	}
	if modelName == "" && known {
		modelName = info.Name
	}
	if modelID == "" {
		modelName = ""
	}

	m.mu.Lock()
	ch, ok := m.lookupMutable(id, "set model")
	if !ok {
		m.mu.Unlock()
		return
	}
	if ch.IsMultiChannelChild {
		m.mu.Unlock()
		m.logger.Debug("model of a sub-tube channel follows its base channel", "id", id)
		return
	}

	ch.ModelID = modelID
	ch.ModelName = modelName
	ch.ModelParameters = map[string]float64{}
	ch.ProtrusionLength = nil
	ch.CenterTubeProtrusion = nil
	ch.IsModelReconstructed = false
	ch.PreprocessingPoints = nil
	ch.Pose = types.Pose{}

	var events []event
	if known && info.IsMultiChannel() {
		if len(ch.SelectedChannels) == 0 {
			ch.SelectedChannels = []int{types.CenterSubTube}
		}
		// existing sub-tube channels follow the base onto the new model
		for _, cid := range m.children[ch.ID] {
			if child, ok := m.byID[cid]; ok {
				child.ModelID = modelID
				child.ModelName = modelName
				events = append(events, changeEvent(child.Clone(), FieldModel, modelID))
			}
		}
		events = append(events, m.syncMultiChannelChildren(ch, ch.SelectedChannels)...)
	} else {
		ch.SelectedChannels = nil
		if ids := m.children[ch.ID]; len(ids) > 0 {
			for _, r := range m.removeLocked(ids) {
				events = append(events, deleteEvent(r))
			}
			delete(m.children, ch.ID)
			m.renumber()
		}
	}

	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(append([]event{changeEvent(snap, FieldModel, modelID)}, events...)...)
}

// UpdateModelParameter stores a model parameter, bounded by the catalog range.
// Changing geometry invalidates planned dwell points: the channel's active
// positions are cleared, and for a multi-channel applicator those of the base
// and every sub-tube channel as well. The dwell points are cleared even when the
// parameter itself is dropped because the channel has no model or the key is
// not one of the model's parameters. Locked channels are left alone.
func (m *Model) UpdateModelParameter(id, key string, value float64) {
	m.mu.RLock()
	modelID := ""
	if ch, ok := m.byID[id]; ok {
		modelID = ch.ModelID
	}
	m.mu.RUnlock()

	store := modelID != ""
	var info types.ModelInfo
	var known bool
	if store {
		info, known = m.catalog.ModelInfo(modelID)
	}
	switch {
	case known:
		r, ok := info.Parameter(key)
		if !ok {
			m.logger.Warn("unknown model parameter ignored", "model", modelID, "key", key)
			store = false
			break
		}
		value = r.Clamp(value)
	case store:
		m.logger.Warn("model not found in catalog, parameter stored unbounded", "model", modelID, "key", key)
	default:
		m.logger.Debug("model parameter ignored on channel without a model", "id", id, "key", key)
	}

	m.mu.Lock()
	ch, ok := m.lookupMutable(id, "update model parameter")
	if !ok || ch.ModelID != modelID {
		m.mu.Unlock()
		return
	}

	if store {
		if ch.ModelParameters == nil {
			ch.ModelParameters = map[string]float64{}
		}
		ch.ModelParameters[key] = value
		switch key {
		case types.ParamProtrusionLength:
			v := value
			ch.ProtrusionLength = &v
		case types.ParamCenterTubeProtrusion:
			v := value
			ch.CenterTubeProtrusion = &v
		}
	}

	affected := []*types.Channel{ch}
	if known && info.IsMultiChannel() {
		baseID := ch.ID
		if ch.ParentChannelID != "" {
			baseID = ch.ParentChannelID
		}
		for _, other := range m.channels {
			if other == ch {
				continue
			}
			if other.ID == baseID || other.ParentChannelID == baseID {
				affected = append(affected, other)
			}
		}
	}

	var events []event
	for _, a := range affected {
		a.ActivePositions = []float64{}
		events = append(events, dwellEvent(a.Clone()))
	}
	snap := ch.Clone()
	m.mu.Unlock()

	if store {
		events = append([]event{changeEvent(snap, FieldModelParameters, map[string]float64{key: value})}, events...)
	}
	m.emit(events...)
}

// ResetModelParameters clears a channel's model parameters after the user confirms
func (m *Model) ResetModelParameters(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	ch, ok := m.byID[id]
	var msg string
	if ok {
		msg = fmt.Sprintf("Reset model parameters of channel %d (%s)?", ch.Number, ch.Name)
		ok = !ch.Locked
	}
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}

	confirmed, err := m.dialogs.Confirm(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("failed to confirm parameter reset: %w", err)
	}
	if !confirmed {
		return false, nil
	}

	m.mu.Lock()
	ch, ok = m.lookupMutable(id, "reset model parameters")
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	ch.ModelParameters = map[string]float64{}
	ch.ProtrusionLength = nil
	ch.CenterTubeProtrusion = nil
	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(changeEvent(snap, FieldModelParameters, map[string]float64{}))
	return true, nil
}

// ConfirmPreprocessingPoints accepts the proposed registration points and marks
// the channel's model as reconstructed
func (m *Model) ConfirmPreprocessingPoints(id string, points []types.Point3D) {
	m.mu.Lock()
	ch, ok := m.lookupMutable(id, "confirm preprocessing points")
	if !ok {
		m.mu.Unlock()
		return
	}
	ch.PreprocessingPoints = append([]types.Point3D(nil), points...)
	ch.IsModelReconstructed = true
	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(
		changeEvent(snap, FieldPreprocessingPoints, snap.PreprocessingPoints),
		rebuildEvent(snap, ActionConfirm),
	)
}

// ClearPreprocessingPoints discards confirmed registration points
func (m *Model) ClearPreprocessingPoints(id string) {
	m.updatePose(id, ActionClear, func(*types.Pose) {})
}

// MoveModel translates the channel's model in the viewing frame
func (m *Model) MoveModel(id string, delta types.Point3D) {
	m.updatePose(id, ActionMove, func(p *types.Pose) {
		p.Translation = p.Translation.Add(delta)
	})
}

// RotateModel rotates the channel's model; delta holds degrees around x, y and z
func (m *Model) RotateModel(id string, delta types.Point3D) {
	m.updatePose(id, ActionRotate, func(p *types.Pose) {
		p.Rotation = p.Rotation.Add(delta)
	})
}

// updatePose applies a geometry change to the model placement. Registration
// points no longer match, so they are discarded.
func (m *Model) updatePose(id, action string, apply func(*types.Pose)) {
	m.mu.Lock()
	ch, ok := m.lookupMutable(id, action+" model")
	if !ok || ch.ModelID == "" {
		m.mu.Unlock()
		return
	}
	apply(&ch.Pose)
	ch.PreprocessingPoints = nil
	ch.IsModelReconstructed = false
	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(rebuildEvent(snap, action))
}

// RequestManualRebuild forwards the selected channel to the manual
// reconstruction workflow
func (m *Model) RequestManualRebuild(ctx context.Context) error {
	ch, ok := m.SelectedChannel()
	if !ok {
		return m.dialogs.Alert(ctx, "Select a channel first")
	}
	m.emit(func(l Listener) {
		if l.OnManualRebuild != nil {
			l.OnManualRebuild(ch)
		}
	})
	return nil
}

// RequestAutoRebuild forwards the selected channel to the automatic
// reconstruction workflow
func (m *Model) RequestAutoRebuild(ctx context.Context) error {
	ch, ok := m.SelectedChannel()
	if !ok {
		return m.dialogs.Alert(ctx, "Select a channel first")
	}
	m.emit(func(l Listener) {
		if l.OnAutoRebuild != nil {
			l.OnAutoRebuild(ch)
		}
	})
	return nil
}

// RequestModelRebuild forwards the selected channel to the model-based
// reconstruction workflow with the given action
func (m *Model) RequestModelRebuild(ctx context.Context, action string) error {
	ch, ok := m.SelectedChannel()
	if !ok {
		return m.dialogs.Alert(ctx, "Select a channel first")
	}
	if ch.ModelID == "" {
		return m.dialogs.Alert(ctx, fmt.Sprintf("Channel %d has no reconstruction model", ch.Number))
	}
	m.emit(rebuildEvent(ch, action))
	return nil
}
