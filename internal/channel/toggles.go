package channel

import (
	"math"
	"slices"

	"github.com/hohoca/brachyplan/internal/types"
)

// ToggleDwellPosition activates or deactivates a dwell position on a channel.
// Only grid positions can be activated. An active position left off the grid by
// a step change can still be deactivated.
func (m *Model) ToggleDwellPosition(id string, position float64) {
	m.mu.Lock()
	ch, ok := m.lookupMutable(id, "toggle dwell position")
	if !ok {
		m.mu.Unlock()
		return
	}

	if i := activeIndex(ch.ActivePositions, position); i >= 0 {
		ch.ActivePositions = slices.Delete(ch.ActivePositions, i, i+1)
	} else {
		gi := gridIndex(m.grid, position)
		if gi < 0 {
			m.mu.Unlock()
			m.logger.Debug("dwell position not on grid", "id", id, "position", position)
			return
		}
		ch.ActivePositions = append(ch.ActivePositions, m.grid.Positions[gi])
		// keep grid order
		slices.SortFunc(ch.ActivePositions, func(a, b float64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			}
			return 0
		})
	}

	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(changeEvent(snap, FieldActivePositions, snap.ActivePositions))
}

// ToggleVisibility flips the visibility of a channel
func (m *Model) ToggleVisibility(id string) {
	m.toggleFlag(id, FieldVisible, func(ch *types.Channel) *bool { return &ch.Visible })
}

// ToggleLock flips the lock of a channel
func (m *Model) ToggleLock(id string) {
	m.toggleFlag(id, FieldLocked, func(ch *types.Channel) *bool { return &ch.Locked })
}

// ToggleAllVisibility hides every channel when all are visible, otherwise shows all
func (m *Model) ToggleAllVisibility() {
	m.toggleAllFlags(FieldVisible, func(ch *types.Channel) *bool { return &ch.Visible })
}

// ToggleAllLock unlocks every channel when all are locked, otherwise locks all
func (m *Model) ToggleAllLock() {
	m.toggleAllFlags(FieldLocked, func(ch *types.Channel) *bool { return &ch.Locked })
}

func (m *Model) toggleFlag(id, field string, flag func(*types.Channel) *bool) {
	m.mu.Lock()
	ch, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	f := flag(ch)
	*f = !*f
	snap := ch.Clone()
	value := *f
	m.mu.Unlock()

	m.emit(changeEvent(snap, field, value))
}

func (m *Model) toggleAllFlags(field string, flag func(*types.Channel) *bool) {
	m.mu.Lock()
	if len(m.channels) == 0 {
		m.mu.Unlock()
		return
	}

	all := true
	for _, ch := range m.channels {
		if !*flag(ch) {
			all = false
			break
		}
	}
	target := !all

	var events []event
	for _, ch := range m.channels {
		f := flag(ch)
		if *f == target {
			continue
		}
		*f = target
		events = append(events, changeEvent(ch.Clone(), field, target))
	}
	m.mu.Unlock()

	m.emit(events...)
}

// activeIndex finds position among active positions within positionTolerance
func activeIndex(active []float64, position float64) int {
	return slices.IndexFunc(active, func(p float64) bool {
		return math.Abs(p-position) <= positionTolerance
	})
}
