package channel

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/hohoca/brachyplan/internal/types"
)

// Options configures a Model. Every field is optional.
type Options struct {
	// Catalog resolves model ids to model descriptors. Defaults to an empty catalog.
	Catalog Catalog

	// Dialogs confirms destructive operations. Defaults to AlwaysConfirm.
	Dialogs Dialogs

	// DwellStep is the initial grid step in mm. Defaults to types.DefaultDwellStep.
	DwellStep float64

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// NewID generates channel ids. Defaults to random UUIDs.
	NewID func() string

	// OnRejected is called when a mutation hits a locked channel. It runs with
	// the model lock held and must not call back into the Model.
	OnRejected func(id, op string)
}

// Model owns the channel list of one planning session, the global dwell grid
// and the per-channel visibility, lock and reconstruction state.
type Model struct {
	mu sync.RWMutex

	channels   []*types.Channel
	byID       map[string]*types.Channel
	children   map[string][]string // base channel id -> sub-tube channel ids
	selectedID string
	grid       types.DwellGrid

	catalog Catalog
	dialogs Dialogs
	logger  *slog.Logger
	newID   func() string

	onRejected func(id, op string)

	lmu       sync.RWMutex
	listeners map[int]Listener
	nextSub   int
}

// New creates an empty channel model
func New(opts Options) *Model {
	if opts.Catalog == nil {
		opts.Catalog = emptyCatalog{}
	}
	if opts.Dialogs == nil {
		opts.Dialogs = AlwaysConfirm{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Model{
		byID:      make(map[string]*types.Channel),
		children:  make(map[string][]string),
		grid:      GenerateDwellGrid(opts.DwellStep),
		catalog:   opts.Catalog,
		dialogs:   opts.Dialogs,
		logger:    opts.Logger,
		newID:     opts.NewID,
		listeners: make(map[int]Listener),

		onRejected: opts.OnRejected,
	}
}

// Subscribe registers a listener and returns a function that removes it
func (m *Model) Subscribe(l Listener) func() {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = l
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		delete(m.listeners, id)
	}
}

// Catalog returns the model catalog the channel model consults
func (m *Model) Catalog() Catalog {
	return m.catalog
}

// Channels returns snapshots of all channels in display order
func (m *Model) Channels() []types.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]types.Channel, len(m.channels))
	for i, ch := range m.channels {
		result[i] = ch.Clone()
	}
	return result
}

// Channel returns a snapshot of the channel with the given id
func (m *Model) Channel(id string) (types.Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.byID[id]
	if !ok {
		return types.Channel{}, false
	}
	return ch.Clone(), true
}

// Len returns the number of channels
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}

// SelectedID returns the selected id, which may not resolve to a channel
func (m *Model) SelectedID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectedID
}

// SelectedChannel returns a snapshot of the selected channel, if any
func (m *Model) SelectedChannel() (types.Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.byID[m.selectedID]
	if !ok {
		return types.Channel{}, false
	}
	return ch.Clone(), true
}

// Grid returns a copy of the global dwell grid
func (m *Model) Grid() types.DwellGrid {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.DwellGrid{
		Step:      m.grid.Step,
		Positions: append([]float64(nil), m.grid.Positions...),
	}
}

// Children returns snapshots of the sub-tube channels expanded from a base channel
func (m *Model) Children(baseID string) []types.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.children[baseID]
	result := make([]types.Channel, 0, len(ids))
	for _, id := range ids {
		if ch, ok := m.byID[id]; ok {
			result = append(result, ch.Clone())
		}
	}
	return result
}

// AddChannel appends a channel with default fields and selects it
func (m *Model) AddChannel() types.Channel {
	m.mu.Lock()

	number := 1
	for _, ch := range m.channels {
		if ch.Number >= number {
			number = ch.Number + 1
		}
	}

	ch := &types.Channel{
		ID:              m.newID(),
		Number:          number,
		Name:            types.DefaultChannelName,
		ChannelIndex:    number,
		DwellStep:       m.grid.Step,
		SourceLength:    types.DefaultSourceLength,
		Offset:          types.DefaultOffset,
		ActivePositions: []float64{},
		Visible:         true,
		Locked:          false,
	}
	m.channels = append(m.channels, ch)
	m.byID[ch.ID] = ch
	m.renumber()
	m.selectedID = ch.ID

	snap := ch.Clone()
	m.mu.Unlock()

	m.logger.Debug("channel added", "id", snap.ID, "number", snap.Number)
	m.emit(addEvent(snap), selectEvent(&snap))
	return snap
}

// DeleteChannel removes a channel after the user confirms. Deleting a base
// channel also removes its sub-tube channels. Sub-tube channels themselves are
// managed through the base channel's sub-tube selection and cannot be deleted.
// It reports whether the channel was removed.
func (m *Model) DeleteChannel(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	ch, ok := m.byID[id]
	var msg string
	if ok {
		msg = fmt.Sprintf("Delete channel %d (%s)?", ch.Number, ch.Name)
		if n := len(m.children[id]); n > 0 {
			msg = fmt.Sprintf("Delete channel %d (%s) and its %d sub-tube channels?", ch.Number, ch.Name, n)
		}
	}
	isChild := ok && ch.IsMultiChannelChild
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if isChild {
		m.logger.Debug("sub-tube channel cannot be deleted directly", "id", id)
		return false, nil
	}

	confirmed, err := m.dialogs.Confirm(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("failed to confirm channel deletion: %w", err)
	}
	if !confirmed {
		return false, nil
	}

	m.mu.Lock()
	if _, ok := m.byID[id]; !ok {
		m.mu.Unlock()
		return false, nil
	}
	removed := m.removeLocked(append([]string{id}, m.children[id]...))
	delete(m.children, id)
	m.renumber()
	m.mu.Unlock()

	events := make([]event, 0, len(removed))
	for _, r := range removed {
		events = append(events, deleteEvent(r))
	}
	m.emit(events...)
	return true, nil
}

// DeleteAll removes every channel after the user confirms
func (m *Model) DeleteAll(ctx context.Context) (bool, error) {
	n := m.Len()
	if n == 0 {
		return false, nil
	}

	confirmed, err := m.dialogs.Confirm(ctx, fmt.Sprintf("Delete all %d channels?", n))
	if err != nil {
		return false, fmt.Errorf("failed to confirm deletion of all channels: %w", err)
	}
	if !confirmed {
		return false, nil
	}

	m.mu.Lock()
	removed := make([]types.Channel, len(m.channels))
	for i, ch := range m.channels {
		removed[i] = ch.Clone()
	}
	m.channels = nil
	m.byID = make(map[string]*types.Channel)
	m.children = make(map[string][]string)
	m.selectedID = ""
	m.mu.Unlock()

	events := make([]event, 0, len(removed))
	for _, r := range removed {
		events = append(events, deleteEvent(r))
	}
	m.emit(events...)
	return len(removed) > 0, nil
}

// SelectChannel marks a channel as selected. An unknown id is stored as is and
// resolves to no channel on lookup.
func (m *Model) SelectChannel(id string) {
	m.mu.Lock()
	m.selectedID = id
	var snap *types.Channel
	if ch, ok := m.byID[id]; ok {
		c := ch.Clone()
		snap = &c
	}
	m.mu.Unlock()

	m.emit(selectEvent(snap))
}

// removeLocked drops the given ids from the list and returns what was removed.
// The caller holds the write lock and renumbers afterwards.
func (m *Model) removeLocked(ids []string) []types.Channel {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var removed []types.Channel
	kept := m.channels[:0]
	for _, ch := range m.channels {
		if drop[ch.ID] {
			removed = append(removed, ch.Clone())
			delete(m.byID, ch.ID)
			if m.selectedID == ch.ID {
				m.selectedID = ""
			}
			continue
		}
		kept = append(kept, ch)
	}
	for i := len(kept); i < len(m.channels); i++ {
		m.channels[i] = nil
	}
	m.channels = kept
	return removed
}

// renumber restores the dense 1..N numbering. Channel indexes that were never
// overridden follow the number.
func (m *Model) renumber() {
	for i, ch := range m.channels {
		ch.Number = i + 1
		if !ch.ChannelIndexSet {
			ch.ChannelIndex = ch.Number
		}
	}
}

// lookupMutable returns the channel if it exists and is not locked.
// The caller holds the write lock.
func (m *Model) lookupMutable(id, op string) (*types.Channel, bool) {
	ch, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	if ch.Locked {
		m.logger.Debug("mutation rejected on locked channel", "id", id, "op", op)
		if m.onRejected != nil {
			m.onRejected(id, op)
		}
		return nil, false
	}
	return ch, true
}

type event func(Listener)

// emit delivers events to every listener in order. Called without m.mu held.
func (m *Model) emit(events ...event) {
	if len(events) == 0 {
		return
	}
	m.lmu.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	m.lmu.RUnlock()

	for _, e := range events {
		for _, l := range listeners {
			e(l)
		}
	}
}

func addEvent(ch types.Channel) event {
	return func(l Listener) {
		if l.OnChannelAdd != nil {
			l.OnChannelAdd(ch)
		}
	}
}

func deleteEvent(ch types.Channel) event {
	return func(l Listener) {
		if l.OnChannelDelete != nil {
			l.OnChannelDelete(ch)
		}
	}
}

func selectEvent(ch *types.Channel) event {
	return func(l Listener) {
		if l.OnChannelSelect != nil {
			l.OnChannelSelect(ch)
		}
	}
}

func changeEvent(ch types.Channel, field string, value any) event {
	return func(l Listener) {
		if l.OnChannelChange != nil {
			l.OnChannelChange(ch, field, value)
		}
	}
}

func dwellEvent(ch types.Channel) event {
	return func(l Listener) {
		if l.OnDwellPointsChanged != nil {
			l.OnDwellPointsChanged(ch)
		}
	}
}

func gridEvent(grid types.DwellGrid) event {
	return func(l Listener) {
		if l.OnGridChange != nil {
			l.OnGridChange(grid)
		}
	}
}

func rebuildEvent(ch types.Channel, action string) event {
	return func(l Listener) {
		if l.OnModelRebuild != nil {
			l.OnModelRebuild(ch, action)
		}
	}
}
