package channel

import (
	"math"
	"strconv"
	"strings"

	"github.com/hohoca/brachyplan/internal/types"
)

// ParseNumber parses a numeric field value. Empty, malformed and non-finite
// input reports ok=false and returns 0.
func ParseNumber(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// UpdateField sets an editable field from user input. Invalid numbers are
// coerced instead of rejected: lengths become 0, a channel index falls back to
// the channel number and a dwell step falls back to the current grid step.
// Locked channels, unknown ids and unknown fields are ignored.
//
// A dwell step change regenerates the global grid and moves every unlocked
// channel onto the new step. Active positions are never dropped by a step change.
func (m *Model) UpdateField(id, field, value string) {
	m.mu.Lock()
	ch, ok := m.lookupMutable(id, "update "+field)
	if !ok {
		m.mu.Unlock()
		return
	}

	var events []event
	var stored any

	switch field {
	case types.FieldName:
		ch.Name = value
		stored = ch.Name

	case types.FieldChannelIndex:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			ch.ChannelIndex = ch.Number
			ch.ChannelIndexSet = false
		} else {
			ch.ChannelIndex = n
			ch.ChannelIndexSet = true
		}
		stored = ch.ChannelIndex

	case types.FieldDwellStep:
		step, ok := ParseNumber(value)
		if !ok || !validStep(step) {
			m.logger.Debug("invalid dwell step, keeping current grid", "id", id, "value", value)
			step = m.grid.Step
		}
		ch.DwellStep = step
		stored = step
		if step != m.grid.Step {
			events = append(events, m.regenerateGridLocked(step)...)
		}

	case types.FieldSourceLength:
		v, _ := ParseNumber(value)
		ch.SourceLength = v
		stored = v

	case types.FieldOffset:
		v, _ := ParseNumber(value)
		ch.Offset = v
		stored = v

	default:
		m.mu.Unlock()
		m.logger.Debug("unknown channel field ignored", "field", field)
		return
	}

	snap := ch.Clone()
	m.mu.Unlock()

	m.emit(append([]event{changeEvent(snap, field, stored)}, events...)...)
}

// regenerateGridLocked installs a new global grid. The caller holds the write lock.
// Active positions are kept as they are; positions that fall off the new grid
// come back when a step that contains them is restored.
func (m *Model) regenerateGridLocked(step float64) []event {
	m.grid = GenerateDwellGrid(step)

	for _, ch := range m.channels {
		if ch.Locked {
			continue
		}
		ch.DwellStep = m.grid.Step
	}

	m.logger.Debug("dwell grid regenerated", "step", m.grid.Step, "positions", len(m.grid.Positions))
	return []event{gridEvent(types.DwellGrid{
		Step:      m.grid.Step,
		Positions: append([]float64(nil), m.grid.Positions...),
	})}
}
