package channel

import (
	"context"
	"reflect"
	"testing"
)

func newMultiChannelBase(t *testing.T) (*Model, *eventLog, string) {
	t.Helper()
	m, log := newTestModel(t, nil)
	id := addChannels(m, 1)[0]
	m.SetModelSelection(id, "model6", "")
	return m, log, id
}

func TestSetModelSelection_MultiChannelStartsAtCentreTube(t *testing.T) {
	m, _, id := newMultiChannelBase(t)

	ch := mustChannel(t, m, id)
	if !reflect.DeepEqual(ch.SelectedChannels, []int{1}) {
		t.Errorf("Expected [1], got %v", ch.SelectedChannels)
	}
	if ch.ModelName != "Multi-channel cylinder" {
		t.Errorf("Expected name from catalog, got %q", ch.ModelName)
	}
	if m.Len() != 1 || len(m.Children(id)) != 0 {
		t.Errorf("Expected no sub-tube channels for the centre tube, got %d channels", m.Len())
	}
}

func TestToggleMultiChannelSelection(t *testing.T) {
	m, log, id := newMultiChannelBase(t)

	if !m.ToggleMultiChannelSelection(id, 3) {
		t.Fatal("Expected sub-tube 3 to be added")
	}
	base := mustChannel(t, m, id)
	if !reflect.DeepEqual(base.SelectedChannels, []int{1, 3}) {
		t.Errorf("Expected [1 3], got %v", base.SelectedChannels)
	}
	children := m.Children(id)
	if len(children) != 1 {
		t.Fatalf("Expected one sub-tube channel, got %d", len(children))
	}
	child := children[0]
	if child.ParentChannelID != id || child.SubTube != 3 || !child.IsMultiChannelChild {
		t.Errorf("unexpected child: %+v", child)
	}
	if child.ModelID != "model6" || !child.IsModelReconstructed || child.Number != 2 {
		t.Errorf("unexpected child model state: %+v", child)
	}
	if len(log.adds) != 2 {
		t.Errorf("Expected add notification for the child, got %d adds", len(log.adds))
	}

	// deselecting the centre tube is allowed while sub-tube 3 remains
	if !m.ToggleMultiChannelSelection(id, 1) {
		t.Fatal("Expected centre tube to be removed")
	}
	if got := mustChannel(t, m, id).SelectedChannels; !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("Expected [3], got %v", got)
	}

	// the last sub-tube cannot be removed
	if m.ToggleMultiChannelSelection(id, 3) {
		t.Error("Expected removal of the last sub-tube to be rejected")
	}
	if got := mustChannel(t, m, id).SelectedChannels; !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("Expected [3] after rejection, got %v", got)
	}
	if len(m.Children(id)) != 1 {
		t.Error("Expected sub-tube channel kept after rejection")
	}
}

func TestToggleMultiChannelSelection_OnlyCentreRemains(t *testing.T) {
	m, _, id := newMultiChannelBase(t)

	if m.ToggleMultiChannelSelection(id, 1) {
		t.Error("Expected removal of the only sub-tube to be rejected")
	}
	if got := mustChannel(t, m, id).SelectedChannels; !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Expected [1], got %v", got)
	}
}

func TestToggleMultiChannelSelection_ChildOrder(t *testing.T) {
	m, log := newTestModel(t, nil)
	ids := addChannels(m, 2)
	m.SetModelSelection(ids[0], "model6", "")

	for _, s := range []int{5, 2, 4} {
		m.ToggleMultiChannelSelection(ids[0], s)
	}

	channels := m.Channels()
	wantTubes := []int{0, 2, 4, 5, 0}
	if len(channels) != len(wantTubes) {
		t.Fatalf("Expected %d channels, got %d", len(wantTubes), len(channels))
	}
	for i, ch := range channels {
		if ch.SubTube != wantTubes[i] {
			t.Errorf("position %d: sub-tube %d, want %d", i, ch.SubTube, wantTubes[i])
		}
	}
	if channels[4].ID != ids[1] {
		t.Error("Expected the unrelated channel to follow the sub-tube group")
	}
	assertDenseNumbering(t, m)

	// removing a middle sub-tube deletes only its channel
	log.deletes = nil
	m.ToggleMultiChannelSelection(ids[0], 4)
	if len(log.deletes) != 1 || log.deletes[0].SubTube != 4 {
		t.Errorf("Expected sub-tube 4 deleted, got %v", log.deletes)
	}
	assertDenseNumbering(t, m)
}

func TestToggleMultiChannelSelection_NeverEmpty(t *testing.T) {
	m, _, id := newMultiChannelBase(t)

	sequence := []int{1, 2, 1, 3, 2, 3, 6, 3, 1, 6, 1, 4, 4, 2}
	for _, s := range sequence {
		m.ToggleMultiChannelSelection(id, s)
		ch := mustChannel(t, m, id)
		if len(ch.SelectedChannels) == 0 {
			t.Fatalf("selection became empty after toggling %d", s)
		}
		want := 0
		for _, sel := range ch.SelectedChannels {
			if sel != 1 {
				want++
			}
		}
		if got := len(m.Children(id)); got != want {
			t.Fatalf("after toggling %d: %d sub-tube channels for selection %v", s, got, ch.SelectedChannels)
		}
	}
}

func TestToggleMultiChannelSelection_Rejected(t *testing.T) {
	m, _ := newTestModel(t, nil)
	ids := addChannels(m, 3)
	m.SetModelSelection(ids[0], "model6", "")
	m.SetModelSelection(ids[1], "model1", "")

	tests := []struct {
		name    string
		id      string
		subTube int
	}{
		{"out of range high", ids[0], 7},
		{"out of range low", ids[0], 0},
		{"single channel model", ids[1], 2},
		{"no model", ids[2], 2},
		{"unknown channel", "missing", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m.ToggleMultiChannelSelection(tt.id, tt.subTube) {
				t.Error("Expected toggle to be rejected")
			}
		})
	}

	m.ToggleLock(ids[0])
	if m.ToggleMultiChannelSelection(ids[0], 2) {
		t.Error("Expected toggle on a locked channel to be rejected")
	}
}

func TestToggleMultiChannelSelection_OnChildRejected(t *testing.T) {
	m, _, id := newMultiChannelBase(t)
	m.ToggleMultiChannelSelection(id, 2)
	child := m.Children(id)[0]

	if m.ToggleMultiChannelSelection(child.ID, 3) {
		t.Error("Expected toggle on a sub-tube channel to be rejected")
	}
}

func TestSetModelSelection_SingleChannelRemovesChildren(t *testing.T) {
	m, log, id := newMultiChannelBase(t)
	m.ToggleMultiChannelSelection(id, 2)
	m.ToggleMultiChannelSelection(id, 3)
	log.deletes = nil

	m.SetModelSelection(id, "model1", "")

	ch := mustChannel(t, m, id)
	if ch.SelectedChannels != nil {
		t.Errorf("Expected selection cleared, got %v", ch.SelectedChannels)
	}
	if m.Len() != 1 || len(m.Children(id)) != 0 {
		t.Errorf("Expected sub-tube channels removed, got %d channels", m.Len())
	}
	if len(log.deletes) != 2 {
		t.Errorf("Expected 2 delete notifications, got %d", len(log.deletes))
	}
}

func TestSetModelSelection_MultiChannelKeepsSelection(t *testing.T) {
	m, _, id := newMultiChannelBase(t)
	m.ToggleMultiChannelSelection(id, 4)

	m.SetModelSelection(id, "model6", "Renamed")

	ch := mustChannel(t, m, id)
	if !reflect.DeepEqual(ch.SelectedChannels, []int{1, 4}) {
		t.Errorf("Expected [1 4], got %v", ch.SelectedChannels)
	}
	children := m.Children(id)
	if len(children) != 1 || children[0].ModelName != "Renamed" {
		t.Errorf("Expected child to follow the base model, got %+v", children)
	}
}

func TestDeleteChannel_CascadesToChildren(t *testing.T) {
	dialogs := &testDialogs{answer: true}
	m, log := newTestModel(t, dialogs)
	ids := addChannels(m, 2)
	m.SetModelSelection(ids[0], "model6", "")
	m.ToggleMultiChannelSelection(ids[0], 2)
	m.ToggleMultiChannelSelection(ids[0], 3)
	children := m.Children(ids[0])

	// a sub-tube channel is owned by its base
	if deleted, _ := m.DeleteChannel(context.Background(), children[0].ID); deleted {
		t.Error("Expected direct deletion of a sub-tube channel to be rejected")
	}
	if len(dialogs.confirms) != 0 {
		t.Error("Expected no confirmation for a sub-tube channel")
	}

	log.deletes = nil
	deleted, err := m.DeleteChannel(context.Background(), ids[0])
	if err != nil || !deleted {
		t.Fatalf("DeleteChannel() = %v, %v", deleted, err)
	}
	if m.Len() != 1 || m.Channels()[0].ID != ids[1] || m.Channels()[0].Number != 1 {
		t.Errorf("Expected only the unrelated channel left, got %+v", m.Channels())
	}
	if len(log.deletes) != 3 {
		t.Errorf("Expected 3 delete notifications, got %d", len(log.deletes))
	}
	if len(m.Children(ids[0])) != 0 {
		t.Error("Expected children index cleared")
	}
}
