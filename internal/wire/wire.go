// Package wire encodes engine events and decodes client commands as the JSON
// messages exchanged over websocket and MQTT.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/sweeney/sensor-bridge/internal/logic"
)

// Message is the outbound payload. Exactly one of ID or Distance is set.
type Message struct {
	Event    string `json:"event"`
	ID       int    `json:"id,omitempty"`
	Distance int    `json:"distance,omitempty"`
}

// Command is an inbound request from a client.
type Command string

const (
	CommandNone  Command = ""
	CommandReset Command = "Reset"
)

// Encode creates the JSON payload for an engine event.
func Encode(event logic.Event) ([]byte, error) {
	msg := Message{Event: string(event.Type)}
	switch event.Type {
	case logic.EventDistanceChanged:
		msg.Distance = int(event.Distance)
	case logic.EventButtonActivated, logic.EventButtonDisabled,
		logic.EventCapacitiveActivated, logic.EventCapacitiveDisabled:
		msg.ID = event.ID
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
	return json.Marshal(msg)
}

// DecodeCommand parses an inbound message. Well-formed messages naming any
// event other than Reset yield CommandNone.
func DecodeCommand(data []byte) (Command, error) {
	var in struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return CommandNone, fmt.Errorf("decode command: %w", err)
	}
	if in.Event == string(CommandReset) {
		return CommandReset, nil
	}
	return CommandNone, nil
}
