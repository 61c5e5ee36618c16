package viewer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/types"
)

// Sender delivers messages to the viewer
type Sender interface {
	Send(msg Message) bool
}

// PointGenerator proposes registration points for a channel's model from a
// point the user picked in the viewer
type PointGenerator interface {
	Generate(ch types.Channel, click types.Point3D) []types.Point3D
}

// Bridge mirrors channel model changes to the viewer and turns viewer clicks
// into registration point proposals awaiting confirmation.
type Bridge struct {
	model     *channel.Model
	sender    Sender
	generator PointGenerator
	logger    *slog.Logger

	// OnProposal is called when new points await confirmation
	OnProposal func(ch types.Channel, points []types.Point3D)

	mu      sync.Mutex
	pending map[string][]types.Point3D
}

// NewBridge creates a bridge. A nil generator uses SimulatedGenerator.
func NewBridge(model *channel.Model, sender Sender, generator PointGenerator, logger *slog.Logger) *Bridge {
	if generator == nil {
		generator = SimulatedGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		model:     model,
		sender:    sender,
		generator: generator,
		logger:    logger,
		pending:   make(map[string][]types.Point3D),
	}
}

// Listener returns the callbacks that forward model changes to the viewer
func (b *Bridge) Listener() channel.Listener {
	return channel.Listener{
		OnChannelAdd: func(ch types.Channel) {
			if ch.ModelID != "" {
				b.send(showModel(ch))
			}
		},
		OnChannelChange: func(ch types.Channel, field string, value any) {
			switch field {
			case channel.FieldModel:
				b.discard(ch.ID)
				if ch.ModelID == "" {
					b.send(channelMessage(TypeRemoveChannel, ch))
					return
				}
				b.send(showModel(ch))
			case channel.FieldVisible:
				msg := channelMessage(TypeVisibility, ch)
				visible := ch.Visible
				msg.Visible = &visible
				b.send(msg)
			case channel.FieldActivePositions:
				b.send(dwellPoints(ch))
			}
		},
		OnDwellPointsChanged: func(ch types.Channel) {
			b.send(dwellPoints(ch))
		},
		OnChannelDelete: func(ch types.Channel) {
			b.discard(ch.ID)
			b.send(channelMessage(TypeRemoveChannel, ch))
		},
		OnModelRebuild: func(ch types.Channel, action string) {
			pose := ch.Pose
			switch action {
			case channel.ActionMove:
				msg := channelMessage(TypeMoveModel, ch)
				msg.Pose = &pose
				b.send(msg)
			case channel.ActionRotate:
				msg := channelMessage(TypeRotateModel, ch)
				msg.Pose = &pose
				b.send(msg)
			case channel.ActionClear:
				b.discard(ch.ID)
				b.send(channelMessage(TypeClearPreprocessingPoints, ch))
			case channel.ActionConfirm:
				b.send(showModel(ch))
			}
		},
	}
}

// Run handles incoming viewer messages until ctx is done or in is closed
func (b *Bridge) Run(ctx context.Context, in <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			b.HandleMessage(msg)
		}
	}
}

// HandleMessage processes one viewer message. A click proposes registration
// points for the selected channel, or for the channel named in the message.
func (b *Bridge) HandleMessage(msg Message) {
	if msg.Type != TypeClick || msg.Point == nil {
		b.logger.Debug("ignoring viewer message", "type", msg.Type)
		return
	}

	var ch types.Channel
	var ok bool
	if msg.ChannelID != "" {
		ch, ok = b.model.Channel(msg.ChannelID)
	} else {
		ch, ok = b.model.SelectedChannel()
	}
	if !ok || ch.ModelID == "" {
		b.logger.Debug("click ignored, no channel with a model", "channel", msg.ChannelID)
		return
	}
	if ch.Locked {
		b.logger.Debug("click ignored on locked channel", "channel", ch.ID)
		return
	}

	points := b.generator.Generate(ch, *msg.Point)
	if len(points) == 0 {
		return
	}

	b.mu.Lock()
	b.pending[ch.ID] = points
	b.mu.Unlock()

	proposal := channelMessage(TypeProposePoints, ch)
	proposal.Points = points
	b.send(proposal)

	if b.OnProposal != nil {
		b.OnProposal(ch, append([]types.Point3D(nil), points...))
	}
}

// Pending returns the proposed points awaiting confirmation for a channel
func (b *Bridge) Pending(channelID string) ([]types.Point3D, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	points, ok := b.pending[channelID]
	return append([]types.Point3D(nil), points...), ok
}

// ConfirmPending accepts the proposal for a channel
func (b *Bridge) ConfirmPending(channelID string) bool {
	b.mu.Lock()
	points, ok := b.pending[channelID]
	delete(b.pending, channelID)
	b.mu.Unlock()
	if !ok {
		return false
	}

	b.model.ConfirmPreprocessingPoints(channelID, points)
	ch, found := b.model.Channel(channelID)
	return found && ch.IsModelReconstructed
}

// RejectPending drops the proposal for a channel
func (b *Bridge) RejectPending(channelID string) {
	if b.discard(channelID) {
		ch, ok := b.model.Channel(channelID)
		if !ok {
			ch = types.Channel{ID: channelID}
		}
		b.send(channelMessage(TypeClearPreprocessingPoints, ch))
	}
}

func (b *Bridge) discard(channelID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[channelID]
	delete(b.pending, channelID)
	return ok
}

func (b *Bridge) send(msg Message) {
	if b.sender == nil {
		return
	}
	b.sender.Send(msg)
}

func showModel(ch types.Channel) Message {
	msg := channelMessage(TypeShowModel, ch)
	pose := ch.Pose
	msg.Pose = &pose
	visible := ch.Visible
	msg.Visible = &visible
	msg.Points = ch.PreprocessingPoints
	return msg
}

func dwellPoints(ch types.Channel) Message {
	msg := channelMessage(TypeDwellPointsChanged, ch)
	msg.Positions = ch.ActivePositions
	if msg.Positions == nil {
		msg.Positions = []float64{}
	}
	return msg
}
