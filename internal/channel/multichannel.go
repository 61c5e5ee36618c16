package channel

import (
	"slices"

	"github.com/hohoca/brachyplan/internal/types"
)

// ToggleMultiChannelSelection flips a sub-tube of a multi-channel applicator.
// Removing the last selected sub-tube is rejected. After a valid change one
// channel exists per selected sub-tube other than the centre tube, which the
// base channel itself represents. It reports whether the selection changed.
func (m *Model) ToggleMultiChannelSelection(id string, subTube int) bool {
	m.mu.RLock()
	modelID := ""
	if ch, ok := m.byID[id]; ok && !ch.IsMultiChannelChild {
		modelID = ch.ModelID
	}
	m.mu.RUnlock()
	if modelID == "" {
		return false
	}

	info, ok := m.catalog.ModelInfo(modelID)
	if !ok || !info.IsMultiChannel() {
		return false
	}
	maxTubes := info.SubTubes
	if maxTubes <= 0 || maxTubes > types.MaxSubTubes {
		maxTubes = types.MaxSubTubes
	}
	if subTube < 1 || subTube > maxTubes {
		return false
	}

	m.mu.Lock()
	ch, ok := m.lookupMutable(id, "toggle sub-tube")
	if !ok || ch.ModelID != modelID {
		m.mu.Unlock()
		return false
	}

	selected := slices.Clone(ch.SelectedChannels)
	if i := slices.Index(selected, subTube); i >= 0 {
		selected = slices.Delete(selected, i, i+1)
	} else {
		selected = append(selected, subTube)
		slices.Sort(selected)
	}
	if len(selected) == 0 {
		m.mu.Unlock()
		m.logger.Debug("at least one sub-tube must stay selected", "id", id, "subTube", subTube)
		return false
	}

	ch.SelectedChannels = selected
	events := m.syncMultiChannelChildren(ch, selected)
	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(append([]event{changeEvent(snap, FieldSelectedChannels, snap.SelectedChannels)}, events...)...)
	return true
}

// syncMultiChannelChildren makes the sub-tube channels of base match the
// selection: one child per selected sub-tube except the centre tube, placed
// right after the base in sub-tube order. Children of deselected sub-tubes are
// removed; the base is never removed. The caller holds the write lock.
func (m *Model) syncMultiChannelChildren(base *types.Channel, selected []int) []event {
	want := make(map[int]bool, len(selected))
	for _, s := range selected {
		if s != types.CenterSubTube {
			want[s] = true
		}
	}

	var events []event
	existing := make(map[int]*types.Channel)
	var drop []string
	for _, cid := range m.children[base.ID] {
		child, ok := m.byID[cid]
		if !ok {
			continue
		}
		if want[child.SubTube] && existing[child.SubTube] == nil {
			existing[child.SubTube] = child
			continue
		}
		drop = append(drop, cid)
	}
	if len(drop) > 0 {
		for _, r := range m.removeLocked(drop) {
			events = append(events, deleteEvent(r))
		}
	}

	tubes := make([]int, 0, len(want))
	for s := range want {
		tubes = append(tubes, s)
	}
	slices.Sort(tubes)

	childIDs := make([]string, 0, len(tubes))
	group := make([]*types.Channel, 0, len(tubes))
	var added []*types.Channel
	for _, s := range tubes {
		child := existing[s]
		if child == nil {
			child = m.newChildLocked(base, s)
			added = append(added, child)
		}
		childIDs = append(childIDs, child.ID)
		group = append(group, child)
	}

	// rebuild the list with the base followed by its children
	inGroup := make(map[string]bool, len(group))
	for _, c := range group {
		inGroup[c.ID] = true
	}
	list := make([]*types.Channel, 0, len(m.channels)+len(added))
	for _, ch := range m.channels {
		if inGroup[ch.ID] {
			continue
		}
		list = append(list, ch)
		if ch == base {
			list = append(list, group...)
		}
	}
	m.channels = list

	if len(childIDs) == 0 {
		delete(m.children, base.ID)
	} else {
		m.children[base.ID] = childIDs
	}
	m.renumber()

	for _, c := range added {
		events = append(events, addEvent(c.Clone()))
	}
	return events
}

// newChildLocked creates the channel for one sub-tube of base
func (m *Model) newChildLocked(base *types.Channel, subTube int) *types.Channel {
	child := &types.Channel{
		ID:                   m.newID(),
		Name:                 base.Name,
		DwellStep:            base.DwellStep,
		SourceLength:         base.SourceLength,
		Offset:               base.Offset,
		ActivePositions:      []float64{},
		ModelID:              base.ModelID,
		ModelName:            base.ModelName,
		ParentChannelID:      base.ID,
		SubTube:              subTube,
		IsMultiChannelChild:  true,
		IsModelReconstructed: true,
		Visible:              true,
	}
	m.byID[child.ID] = child
	return child
}
