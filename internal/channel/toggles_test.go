package channel

import (
	"reflect"
	"testing"
)

func TestToggleDwellPosition(t *testing.T) {
	m, log := newTestModel(t, nil)
	ids := addChannels(m, 1)
	id := ids[0]

	m.ToggleDwellPosition(id, 1130)
	if got := mustChannel(t, m, id).ActivePositions; !reflect.DeepEqual(got, []float64{1130}) {
		t.Fatalf("Expected [1130], got %v", got)
	}

	m.ToggleDwellPosition(id, 1130)
	if got := mustChannel(t, m, id).ActivePositions; len(got) != 0 {
		t.Fatalf("Expected [], got %v", got)
	}

	if len(log.changes) != 2 || log.changes[0].field != FieldActivePositions {
		t.Errorf("Expected two activePositions notifications, got %v", log.changedFields())
	}
}

func TestToggleDwellPosition_GridOrder(t *testing.T) {
	m, _ := newTestModel(t, nil)
	id := addChannels(m, 1)[0]

	for _, p := range []float64{500, 1127.5, 110, 800} {
		m.ToggleDwellPosition(id, p)
	}

	want := []float64{1127.5, 800, 500, 110}
	if got := mustChannel(t, m, id).ActivePositions; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestToggleDwellPosition_Rejected(t *testing.T) {
	m, log := newTestModel(t, nil)
	ids := addChannels(m, 2)

	m.ToggleDwellPosition(ids[0], 1128)
	m.ToggleDwellPosition(ids[0], 2000)
	m.ToggleLock(ids[1])
	log.changes = nil
	m.ToggleDwellPosition(ids[1], 1130)
	m.ToggleDwellPosition("missing", 1130)

	for _, id := range ids {
		if got := mustChannel(t, m, id).ActivePositions; len(got) != 0 {
			t.Errorf("channel %s: expected no active positions, got %v", id, got)
		}
	}
	if len(log.changes) != 0 {
		t.Errorf("Expected no notifications, got %v", log.changedFields())
	}
}

func TestToggleVisibilityAndLock(t *testing.T) {
	m, log := newTestModel(t, nil)
	id := addChannels(m, 1)[0]

	m.ToggleVisibility(id)
	if mustChannel(t, m, id).Visible {
		t.Error("Expected channel hidden")
	}

	m.ToggleLock(id)
	if !mustChannel(t, m, id).Locked {
		t.Error("Expected channel locked")
	}

	// visibility and lock stay editable on a locked channel
	m.ToggleVisibility(id)
	ch := mustChannel(t, m, id)
	if !ch.Visible {
		t.Error("Expected locked channel to become visible")
	}
	m.ToggleLock(id)
	if mustChannel(t, m, id).Locked {
		t.Error("Expected channel unlocked")
	}

	want := []string{FieldVisible, FieldLocked, FieldVisible, FieldLocked}
	if !reflect.DeepEqual(log.changedFields(), want) {
		t.Errorf("Expected %v, got %v", want, log.changedFields())
	}
}

func TestToggleAllVisibility(t *testing.T) {
	m, log := newTestModel(t, nil)
	ids := addChannels(m, 3)

	// mixed state: everything becomes visible
	m.ToggleVisibility(ids[1])
	log.changes = nil
	m.ToggleAllVisibility()
	for _, ch := range m.Channels() {
		if !ch.Visible {
			t.Errorf("channel %d: expected visible", ch.Number)
		}
	}
	if len(log.changes) != 1 || log.changes[0].id != ids[1] {
		t.Errorf("Expected a notification for the hidden channel only, got %d", len(log.changes))
	}

	// all visible: everything is hidden
	m.ToggleAllVisibility()
	for _, ch := range m.Channels() {
		if ch.Visible {
			t.Errorf("channel %d: expected hidden", ch.Number)
		}
	}
}

func TestToggleAll_Idempotence(t *testing.T) {
	tests := []struct {
		name   string
		toggle func(m *Model)
		flag   func(m *Model) []bool
		setup  func(m *Model, ids []string)
	}{
		{
			name:   "visibility from all visible",
			toggle: (*Model).ToggleAllVisibility,
			flag:   visibleFlags,
			setup:  func(*Model, []string) {},
		},
		{
			name:   "visibility from all hidden",
			toggle: (*Model).ToggleAllVisibility,
			flag:   visibleFlags,
			setup: func(m *Model, ids []string) {
				for _, id := range ids {
					m.ToggleVisibility(id)
				}
			},
		},
		{
			name:   "lock from all unlocked",
			toggle: (*Model).ToggleAllLock,
			flag:   lockedFlags,
			setup:  func(*Model, []string) {},
		},
		{
			name:   "lock from all locked",
			toggle: (*Model).ToggleAllLock,
			flag:   lockedFlags,
			setup: func(m *Model, ids []string) {
				for _, id := range ids {
					m.ToggleLock(id)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t, nil)
			ids := addChannels(m, 4)
			tt.setup(m, ids)
			before := tt.flag(m)

			tt.toggle(m)
			if reflect.DeepEqual(tt.flag(m), before) {
				t.Error("Expected first toggle to change the flags")
			}
			tt.toggle(m)
			if got := tt.flag(m); !reflect.DeepEqual(got, before) {
				t.Errorf("Expected %v after two toggles, got %v", before, got)
			}
		})
	}
}

func TestToggleAll_Empty(t *testing.T) {
	m, log := newTestModel(t, nil)
	m.ToggleAllVisibility()
	m.ToggleAllLock()
	if len(log.changes) != 0 {
		t.Errorf("Expected no notifications, got %d", len(log.changes))
	}
}

func visibleFlags(m *Model) []bool {
	var out []bool
	for _, ch := range m.Channels() {
		out = append(out, ch.Visible)
	}
	return out
}

func lockedFlags(m *Model) []bool {
	var out []bool
	for _, ch := range m.Channels() {
		out = append(out, ch.Locked)
	}
	return out
}
