package viewer

import "github.com/hohoca/brachyplan/internal/types"

// Message types exchanged with the image viewer
const (
	TypeShowModel                = "show_model"
	TypeMoveModel                = "move_model"
	TypeRotateModel              = "rotate_model"
	TypeClearPreprocessingPoints = "clear_preprocessing_points"
	TypeDwellPointsChanged       = "dwell_points_changed"
	TypeVisibility               = "set_visibility"
	TypeRemoveChannel            = "remove_channel"
	TypeProposePoints            = "propose_preprocessing_points"

	// TypeClick is sent by the viewer when the user picks a point
	TypeClick = "click"
)

// Message is one JSON frame on the viewer socket
type Message struct {
	Type          string          `json:"type"`
	ChannelID     string          `json:"channelId,omitempty"`
	ChannelNumber int             `json:"channelNumber,omitempty"`
	ModelID       string          `json:"modelId,omitempty"`
	SubTube       int             `json:"subTube,omitempty"`
	Visible       *bool           `json:"visible,omitempty"`
	Pose          *types.Pose     `json:"pose,omitempty"`
	Positions     []float64       `json:"positions,omitempty"`
	Points        []types.Point3D `json:"points,omitempty"`
	Point         *types.Point3D  `json:"point,omitempty"`
}

func channelMessage(msgType string, ch types.Channel) Message {
	return Message{
		Type:          msgType,
		ChannelID:     ch.ID,
		ChannelNumber: ch.Number,
		ModelID:       ch.ModelID,
		SubTube:       ch.SubTube,
	}
}
