// Package logic contains the sensor state engine: activation state for the
// binary sensors, LED side effects and ultrasonic zone dedupe.
// This package has NO hardware or network dependencies. Time is injectable
// through the engine's clock function.
package logic

import (
	"fmt"
	"time"
)

// EventType names a semantic state change broadcast to clients.
type EventType string

const (
	EventButtonActivated     EventType = "ButtonActivated"
	EventButtonDisabled      EventType = "ButtonDisabled"
	EventCapacitiveActivated EventType = "CapacitiveActivated"
	EventCapacitiveDisabled  EventType = "CapacitiveDisabled"
	EventDistanceChanged     EventType = "DistanceChanged"
)

// Event is a single semantic state change.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// ID is the 1-based slot of a button or capacitive pad.
	ID int
	// Distance is the zone for EventDistanceChanged.
	Distance Zone
}

// Class identifies a group of binary sensors.
type Class string

const (
	ClassButton     Class = "button"
	ClassCapacitive Class = "capacitive"
)

// LED levels.
const (
	LevelOff = 0
	LevelOn  = 1
)

// Bank is the fixed pin map. Slot i of Buttons drives slot i of LEDs.
type Bank struct {
	Buttons    []int
	LEDs       []int
	Capacitive []int
}

// Validate checks the LED/button correspondence and pin uniqueness per class.
func (b Bank) Validate() error {
	if len(b.LEDs) != len(b.Buttons) {
		return fmt.Errorf("bank: %d LEDs for %d buttons", len(b.LEDs), len(b.Buttons))
	}
	for name, pins := range map[string][]int{"button": b.Buttons, "led": b.LEDs, "capacitive": b.Capacitive} {
		seen := make(map[int]bool, len(pins))
		for _, p := range pins {
			if seen[p] {
				return fmt.Errorf("bank: duplicate %s pin %d", name, p)
			}
			seen[p] = true
		}
	}
	return nil
}

// slotIndex maps physical pins to slots.
func slotIndex(pins []int) map[int]int {
	m := make(map[int]int, len(pins))
	for i, p := range pins {
		m[p] = i
	}
	return m
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	ButtonActivated     int
	ButtonDisabled      int
	CapacitiveActivated int
	CapacitiveDisabled  int
	DistanceChanged     int
}

func (c *EventCounts) add(t EventType) {
	switch t {
	case EventButtonActivated:
		c.ButtonActivated++
	case EventButtonDisabled:
		c.ButtonDisabled++
	case EventCapacitiveActivated:
		c.CapacitiveActivated++
	case EventCapacitiveDisabled:
		c.CapacitiveDisabled++
	case EventDistanceChanged:
		c.DistanceChanged++
	}
}

// State is a point-in-time view of the engine.
// It is a value type, safe to use after the lock is released.
type State struct {
	// ActiveButtons and ActivePads hold 0-based slots in ascending order.
	ActiveButtons []int
	ActivePads    []int
	LastZone      Zone
	LastZoneAt    time.Time
	Counts        EventCounts
}
