package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/types"
)

// Event names stored in the change log
const (
	EventAdd           = "add"
	EventChange        = "change"
	EventDelete        = "delete"
	EventDwell         = "dwell_points_changed"
	EventGrid          = "grid"
	EventManualRebuild = "manual_rebuild"
	EventAutoRebuild   = "auto_rebuild"
	EventModelRebuild  = "model_rebuild"
)

// Store is the part of Manager the Recorder writes to
type Store interface {
	Save(e types.ChannelEvent) (int64, error)
}

// Recorder writes channel model notifications to the change log.
// Selection changes are not recorded.
type Recorder struct {
	store     Store
	sessionID string
	logger    *slog.Logger
}

// NewRecorder creates a recorder tagging events with sessionID
func NewRecorder(store Store, sessionID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, sessionID: sessionID, logger: logger}
}

// Listener returns the callbacks to subscribe to a channel.Model
func (r *Recorder) Listener() channel.Listener {
	return channel.Listener{
		OnChannelAdd: func(ch types.Channel) {
			r.record(ch, EventAdd, "", nil)
		},
		OnChannelChange: func(ch types.Channel, field string, value any) {
			r.record(ch, EventChange, field, value)
		},
		OnChannelDelete: func(ch types.Channel) {
			r.record(ch, EventDelete, "", nil)
		},
		OnDwellPointsChanged: func(ch types.Channel) {
			r.record(ch, EventDwell, channel.FieldActivePositions, ch.ActivePositions)
		},
		OnGridChange: func(grid types.DwellGrid) {
			r.save(types.ChannelEvent{
				Event: EventGrid,
				Field: types.FieldDwellStep,
				Value: strconv.FormatFloat(grid.Step, 'f', -1, 64),
			})
		},
		OnManualRebuild: func(ch types.Channel) {
			r.record(ch, EventManualRebuild, "", nil)
		},
		OnAutoRebuild: func(ch types.Channel) {
			r.record(ch, EventAutoRebuild, "", nil)
		},
		OnModelRebuild: func(ch types.Channel, action string) {
			r.record(ch, EventModelRebuild, "action", action)
		},
	}
}

func (r *Recorder) record(ch types.Channel, event, field string, value any) {
	r.save(types.ChannelEvent{
		ChannelID:     ch.ID,
		ChannelNumber: ch.Number,
		ChannelName:   ch.Name,
		Event:         event,
		Field:         field,
		Value:         encodeValue(value),
	})
}

func (r *Recorder) save(e types.ChannelEvent) {
	e.SessionID = r.sessionID
	if _, err := r.store.Save(e); err != nil {
		r.logger.Warn("failed to record channel event", "event", e.Event, "channel", e.ChannelID, "error", err)
	}
}

// encodeValue renders a value for storage: strings as is, everything else as JSON
func encodeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}
