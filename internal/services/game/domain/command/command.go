package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
)

// Type names a session action.
type Type string

const (
	TypeJoin               Type = "join"
	TypeLeave              Type = "leave"
	TypeSetLocation        Type = "set_location"
	TypeConfirmLocation    Type = "confirm_location"
	TypeUnconfirmLocation  Type = "unconfirm_location"
	TypeStart              Type = "start"
	TypeRollCycleLength    Type = "roll_cycle_length"
	TypeConfirmCycleLength Type = "confirm_cycle_length"
	TypeDrawFace           Type = "draw_face"
	TypeToggleReady        Type = "toggle_ready"
	TypeAdvanceToDrawing   Type = "advance_to_drawing"
	TypeDrawNumbered       Type = "draw_numbered"
	TypeContinueTurn       Type = "continue_turn"
	TypeEnterFocus         Type = "enter_focus"
	TypeExitFocus          Type = "exit_focus"
	TypeSelectTopic        Type = "select_topic"
	TypeContinueCycle      Type = "continue_cycle"
	TypeSetConnected       Type = "set_connected"
)

// Command is one action request against a session.
type Command struct {
	Type      Type
	SessionID string
	Actor     actor.Ref
	RequestID string
	// PayloadJSON carries the action-specific arguments, if any.
	PayloadJSON []byte
}

// JoinPayload is the payload for TypeJoin.
type JoinPayload struct {
	DisplayName string `json:"display_name"`
}

// LeavePayload is the payload for TypeLeave.
type LeavePayload struct {
	ParticipantID string `json:"participant_id"`
}

// SetLocationPayload is the payload for TypeSetLocation.
type SetLocationPayload struct {
	Location string `json:"location"`
}

// SelectTopicPayload is the payload for TypeSelectTopic.
type SelectTopicPayload struct {
	Topic string `json:"topic"`
}

// SetConnectedPayload is the payload for TypeSetConnected.
type SetConnectedPayload struct {
	Connected bool `json:"connected"`
}

// New builds a command, encoding payload when it is non-nil.
func New(typ Type, sessionID string, who actor.Ref, payload any) (Command, error) {
	cmd := Command{Type: Type(strings.TrimSpace(string(typ))), SessionID: strings.TrimSpace(sessionID), Actor: who}
	if payload == nil {
		return cmd, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	cmd.PayloadJSON = data
	return cmd, nil
}

// DecodePayload unmarshals the command payload into target. An empty
// payload leaves target untouched.
func (c Command) DecodePayload(target any) error {
	if len(c.PayloadJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.PayloadJSON, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.Type, err)
	}
	return nil
}
