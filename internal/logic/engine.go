package logic

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Outputs drives LED pins. Implementations must not block for long.
type Outputs interface {
	SetLevel(pin, level int) error
}

// EmitFunc receives every event the engine produces. It is called with the
// engine lock held, so it must not block or call back into the engine.
type EmitFunc func(Event)

// Engine owns per-class activation state and turns raw driver callbacks into
// semantic events. All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	bank        Bank
	buttonSlots map[int]int
	padSlots    map[int]int

	buttons   *ActivationSet
	pads      *ActivationSet
	distances DistanceLog

	lastZone   Zone
	lastZoneAt time.Time
	counts     EventCounts

	leds Outputs
	emit EmitFunc
	now  func() time.Time
}

// NewEngine creates an engine for the given pin map. A nil emit discards
// events; a nil now uses time.Now.
func NewEngine(bank Bank, leds Outputs, emit EmitFunc, now func() time.Time) (*Engine, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	if leds == nil {
		return nil, fmt.Errorf("engine: nil LED outputs")
	}
	if emit == nil {
		emit = func(Event) {}
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		bank:        bank,
		buttonSlots: slotIndex(bank.Buttons),
		padSlots:    slotIndex(bank.Capacitive),
		buttons:     NewActivationSet(),
		pads:        NewActivationSet(),
		leds:        leds,
		emit:        emit,
		now:         now,
	}, nil
}

// Bank returns the pin map the engine was built with.
func (e *Engine) Bank() Bank {
	return e.bank
}

// ButtonChanged handles a digital input callback for a button pin.
// The raw value is ignored: every delivered edge toggles the slot.
func (e *Engine) ButtonChanged(pin, value int) {
	slot, ok := e.buttonSlots[pin]
	if !ok {
		log.Printf("engine: callback for unknown button pin %d (value=%d)", pin, value)
		return
	}
	e.ToggleButton(slot)
}

// CapacitiveChanged handles a digital input callback for a capacitive pad pin.
// The raw value is ignored, as for buttons.
func (e *Engine) CapacitiveChanged(pin, value int) {
	slot, ok := e.padSlots[pin]
	if !ok {
		log.Printf("engine: callback for unknown capacitive pin %d (value=%d)", pin, value)
		return
	}
	e.TogglePad(slot)
}

// ToggleButton flips a button slot, drives its LED and emits the event.
func (e *Engine) ToggleButton(slot int) (Event, error) {
	if slot < 0 || slot >= len(e.bank.Buttons) {
		return Event{}, fmt.Errorf("engine: button slot %d out of range", slot)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := Event{Timestamp: e.now(), ID: slot + 1}
	level := LevelOff
	if e.buttons.Toggle(slot) {
		ev.Type = EventButtonActivated
		level = LevelOn
	} else {
		ev.Type = EventButtonDisabled
	}
	e.setLED(slot, level)
	e.record(ev)
	return ev, nil
}

// TogglePad flips a capacitive slot and emits the event.
func (e *Engine) TogglePad(slot int) (Event, error) {
	if slot < 0 || slot >= len(e.bank.Capacitive) {
		return Event{}, fmt.Errorf("engine: capacitive slot %d out of range", slot)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := Event{Timestamp: e.now(), ID: slot + 1}
	if e.pads.Toggle(slot) {
		ev.Type = EventCapacitiveActivated
	} else {
		ev.Type = EventCapacitiveDisabled
	}
	e.record(ev)
	return ev, nil
}

// DistanceSampled classifies a raw ranging sample. It returns the emitted
// event and true, or false if the sample is outside every zone or the zone
// was already broadcast within DedupeWindow.
func (e *Engine) DistanceSampled(cm float64) (Event, bool) {
	zone := ClassifyDistance(cm)
	if zone == NoZone {
		return Event{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.distances.Recent(zone, now, DedupeWindow) {
		return Event{}, false
	}
	e.distances.Add(zone, now, DedupeWindow)
	e.lastZone = zone
	e.lastZoneAt = now

	ev := Event{Timestamp: now, Type: EventDistanceChanged, Distance: zone}
	e.record(ev)
	return ev, true
}

// Reset clears both activation sets and the distance log and switches every
// LED off. Connected clients are not affected.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buttons.Clear()
	e.pads.Clear()
	e.distances.Clear()
	e.lastZone = NoZone
	e.lastZoneAt = time.Time{}
	for slot := range e.bank.LEDs {
		e.setLED(slot, LevelOff)
	}
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		ActiveButtons: e.buttons.Slots(),
		ActivePads:    e.pads.Slots(),
		LastZone:      e.lastZone,
		LastZoneAt:    e.lastZoneAt,
		Counts:        e.counts,
	}
}

func (e *Engine) setLED(slot, level int) {
	pin := e.bank.LEDs[slot]
	if err := e.leds.SetLevel(pin, level); err != nil {
		log.Printf("engine: set LED %d (pin %d) to %d: %v", slot+1, pin, level, err)
	}
}

func (e *Engine) record(ev Event) {
	e.counts.add(ev.Type)
	e.emit(ev)
}
