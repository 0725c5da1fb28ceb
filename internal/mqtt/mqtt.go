// Package mqtt mirrors engine events to an MQTT broker and accepts reset
// commands from it, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"log"
	"time"

	"github.com/sweeney/sensor-bridge/internal/logic"
	"github.com/sweeney/sensor-bridge/internal/wire"
)

// TopicEvents is the MQTT topic for sensor events.
const TopicEvents = "sensors/bridge/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/bridge/system"

// TopicCommand is the MQTT topic clients publish commands to.
const TopicCommand = "sensors/bridge/command"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// FormatPayload creates the JSON payload for a sensor event. It is the same
// message websocket clients receive.
func FormatPayload(event logic.Event) ([]byte, error) {
	return wire.Encode(event)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// handleCommand decodes a command payload and runs onReset for Reset.
// Malformed payloads are logged and dropped.
func handleCommand(payload []byte, onReset func()) {
	cmd, err := wire.DecodeCommand(payload)
	if err != nil {
		log.Printf("mqtt: ignoring malformed command: %v", err)
		return
	}
	if cmd == wire.CommandReset && onReset != nil {
		log.Printf("mqtt: reset requested")
		onReset()
	}
}
