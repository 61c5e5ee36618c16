package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hohoca/brachyplan/internal/types"
)

// testCatalog is a small fixed inventory
type testCatalog map[string]types.ModelInfo

func (c testCatalog) AvailableModels() []types.ModelInfo {
	out := make([]types.ModelInfo, 0, len(c))
	for _, id := range []string{"model1", "model3", "model6"} {
		if info, ok := c[id]; ok {
			out = append(out, info)
		}
	}
	return out
}

func (c testCatalog) ModelInfo(id string) (types.ModelInfo, bool) {
	info, ok := c[id]
	return info, ok
}

func newTestCatalog() testCatalog {
	protrusion := types.ParameterRange{Key: types.ParamProtrusionLength, Min: 0, Max: 50, Default: 10}
	return testCatalog{
		"model1": {ID: "model1", Name: "Cylinder", Type: types.ModelTypeCylinder,
			Parameters: []types.ParameterRange{protrusion, {Key: "diameter", Min: 20, Max: 40, Default: 30}}},
		"model3": {ID: "model3", Name: "Ring", Type: types.ModelTypeRing,
			Parameters: []types.ParameterRange{protrusion}},
		"model6": {ID: "model6", Name: "Multi-channel cylinder", Type: types.ModelTypeMultiChannel, SubTubes: 6,
			Parameters: []types.ParameterRange{protrusion, {Key: types.ParamCenterTubeProtrusion, Min: 0, Max: 20, Default: 5}}},
	}
}

// testDialogs answers every confirmation with a fixed answer and records prompts
type testDialogs struct {
	mu       sync.Mutex
	answer   bool
	err      error
	confirms []string
	alerts   []string
}

func (d *testDialogs) Confirm(ctx context.Context, message string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirms = append(d.confirms, message)
	return d.answer, d.err
}

func (d *testDialogs) Alert(ctx context.Context, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, message)
	return nil
}

type change struct {
	id    string
	field string
	value any
}

// eventLog records every notification of a Model
type eventLog struct {
	adds     []types.Channel
	deletes  []types.Channel
	changes  []change
	selects  []*types.Channel
	dwell    []types.Channel
	grids    []types.DwellGrid
	rebuilds []string
	manual   []types.Channel
	auto     []types.Channel
}

func (e *eventLog) listener() Listener {
	return Listener{
		OnChannelAdd:    func(ch types.Channel) { e.adds = append(e.adds, ch) },
		OnChannelDelete: func(ch types.Channel) { e.deletes = append(e.deletes, ch) },
		OnChannelChange: func(ch types.Channel, field string, value any) {
			e.changes = append(e.changes, change{id: ch.ID, field: field, value: value})
		},
		OnChannelSelect:      func(ch *types.Channel) { e.selects = append(e.selects, ch) },
		OnDwellPointsChanged: func(ch types.Channel) { e.dwell = append(e.dwell, ch) },
		OnGridChange:         func(g types.DwellGrid) { e.grids = append(e.grids, g) },
		OnManualRebuild:      func(ch types.Channel) { e.manual = append(e.manual, ch) },
		OnAutoRebuild:        func(ch types.Channel) { e.auto = append(e.auto, ch) },
		OnModelRebuild: func(ch types.Channel, action string) {
			e.rebuilds = append(e.rebuilds, action)
		},
	}
}

func (e *eventLog) changedFields() []string {
	fields := make([]string, len(e.changes))
	for i, c := range e.changes {
		fields[i] = c.field
	}
	return fields
}

// newTestModel creates a Model with the test catalog, sequential ids and a
// silent logger. Dialogs answer yes unless dialogs is given.
func newTestModel(t *testing.T, dialogs *testDialogs) (*Model, *eventLog) {
	t.Helper()

	if dialogs == nil {
		dialogs = &testDialogs{answer: true}
	}
	n := 0
	m := New(Options{
		Catalog: newTestCatalog(),
		Dialogs: dialogs,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID: func() string {
			n++
			return fmt.Sprintf("ch-%d", n)
		},
	})

	log := &eventLog{}
	m.Subscribe(log.listener())
	return m, log
}

// addChannels adds n channels and returns their ids
func addChannels(m *Model, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = m.AddChannel().ID
	}
	return ids
}

func assertDenseNumbering(t *testing.T, m *Model) {
	t.Helper()
	for i, ch := range m.Channels() {
		if ch.Number != i+1 {
			t.Errorf("channel %s has number %d, want %d", ch.ID, ch.Number, i+1)
		}
	}
}

func mustChannel(t *testing.T, m *Model, id string) types.Channel {
	t.Helper()
	ch, ok := m.Channel(id)
	if !ok {
		t.Fatalf("channel %s not found", id)
	}
	return ch
}
