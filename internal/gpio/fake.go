package gpio

import (
	"fmt"
	"sync"
)

// FakeInputs is a test double that records watch handlers and lets tests
// fire edges by hand.
type FakeInputs struct {
	mu       sync.Mutex
	handlers map[int]Handler

	// WatchErrors, if set for a pin, is returned by Watch for that pin.
	WatchErrors map[int]error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeInputs creates a FakeInputs with no watched pins.
func NewFakeInputs() *FakeInputs {
	return &FakeInputs{
		handlers:    make(map[int]Handler),
		WatchErrors: make(map[int]error),
	}
}

// Watch records fn for pin.
func (f *FakeInputs) Watch(pin int, fn Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WatchErrors[pin]; err != nil {
		return err
	}
	if _, ok := f.handlers[pin]; ok {
		return fmt.Errorf("pin %d already watched", pin)
	}
	f.handlers[pin] = fn
	return nil
}

// Watched reports whether a handler is registered for pin.
func (f *FakeInputs) Watched(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[pin]
	return ok
}

// Trigger delivers an edge to the pin's handler on the calling goroutine.
// Returns false if the pin is not watched or the inputs are closed.
func (f *FakeInputs) Trigger(pin, value int) bool {
	f.mu.Lock()
	fn, ok := f.handlers[pin]
	closed := f.Closed
	f.mu.Unlock()
	if !ok || closed {
		return false
	}
	fn(pin, value)
	return true
}

// Close drops every handler.
func (f *FakeInputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	f.handlers = make(map[int]Handler)
	return nil
}

// Write is a single recorded SetLevel call.
type Write struct {
	Pin   int
	Level int
}

// FakeOutputs is a test double that records output levels.
type FakeOutputs struct {
	mu      sync.Mutex
	levels  map[int]int
	history []Write

	// SetError, if set, will be returned by SetLevel and the level is not stored.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutputs creates FakeOutputs with every pin low.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{levels: make(map[int]int)}
}

// SetLevel records the write.
func (f *FakeOutputs) SetLevel(pin, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, Write{Pin: pin, Level: level})
	if f.SetError != nil {
		return f.SetError
	}
	f.levels[pin] = level
	return nil
}

// Level returns the last level stored for pin (0 if never written).
func (f *FakeOutputs) Level(pin int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

// History returns a copy of every SetLevel call in order.
func (f *FakeOutputs) History() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.history))
	copy(out, f.history)
	return out
}

// Close drives every recorded pin low and marks the outputs closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pin := range f.levels {
		f.levels[pin] = 0
	}
	f.Closed = true
	return nil
}
