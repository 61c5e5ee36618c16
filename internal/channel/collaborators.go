package channel

import (
	"context"
	"log/slog"

	"github.com/hohoca/brachyplan/internal/types"
)

// Event field names reported through Listener.OnChannelChange in addition to
// the editable fields in package types.
const (
	FieldVisible             = "visible"
	FieldLocked              = "locked"
	FieldActivePositions     = "activePositions"
	FieldModel               = "model"
	FieldModelParameters     = "modelParameters"
	FieldSelectedChannels    = "selectedChannels"
	FieldPreprocessingPoints = "preprocessingPoints"
)

// Rebuild actions passed to Listener.OnModelRebuild
const (
	ActionMove    = "move"
	ActionRotate  = "rotate"
	ActionClear   = "clear"
	ActionConfirm = "confirm"
)

// Listener receives notifications after a Model mutation commits.
// Every callback is optional. Channels are passed as snapshots.
type Listener struct {
	OnChannelAdd         func(ch types.Channel)
	OnChannelChange      func(ch types.Channel, field string, value any)
	OnChannelDelete      func(ch types.Channel)
	OnChannelSelect      func(ch *types.Channel) // nil when the selected id resolves to no channel
	OnDwellPointsChanged func(ch types.Channel)
	OnGridChange         func(grid types.DwellGrid)

	OnManualRebuild func(ch types.Channel)
	OnAutoRebuild   func(ch types.Channel)
	OnModelRebuild  func(ch types.Channel, action string)
}

// Catalog is the read-only model inventory the channel model consults for
// model types and parameter bounds.
type Catalog interface {
	AvailableModels() []types.ModelInfo
	ModelInfo(id string) (types.ModelInfo, bool)
}

// Dialogs asks the user to confirm destructive operations and reports errors.
// Confirm blocks until the user answers; a false answer aborts the operation.
type Dialogs interface {
	Confirm(ctx context.Context, message string) (bool, error)
	Alert(ctx context.Context, message string) error
}

// AlwaysConfirm answers yes to every confirmation and logs alerts.
// Used by scripted callers (CLI commands, tests) that have no user to ask.
type AlwaysConfirm struct{}

// Confirm always returns true
func (AlwaysConfirm) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Alert logs the message
func (AlwaysConfirm) Alert(ctx context.Context, message string) error {
	slog.InfoContext(ctx, "alert", "message", message)
	return nil
}

// emptyCatalog knows no models
type emptyCatalog struct{}

func (emptyCatalog) AvailableModels() []types.ModelInfo { return nil }

func (emptyCatalog) ModelInfo(string) (types.ModelInfo, bool) { return types.ModelInfo{}, false }
