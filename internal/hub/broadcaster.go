package hub

import (
	"fmt"
	"log"

	"github.com/sweeney/sensor-bridge/internal/logic"
	"github.com/sweeney/sensor-bridge/internal/wire"
)

// Broadcaster serializes each event once and sends it to every registered
// client. A failing client is logged and skipped; it stays registered until
// its transport reports a disconnect.
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster creates a broadcaster over registry.
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Publish broadcasts event. It only fails if the event cannot be encoded.
func (b *Broadcaster) Publish(event logic.Event) error {
	payload, err := wire.Encode(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	b.Broadcast(payload)
	return nil
}

// Broadcast sends an already serialized payload to every client.
func (b *Broadcaster) Broadcast(payload []byte) {
	b.registry.ForEach(func(c Client) {
		if err := c.Send(payload); err != nil {
			log.Printf("hub: send to %v failed: %v", c, err)
		}
	})
}
