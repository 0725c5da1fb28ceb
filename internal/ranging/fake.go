package ranging

import (
	"errors"
	"sync"
)

// FakeSensor is a test double that lets tests emit samples by hand.
type FakeSensor struct {
	mu sync.Mutex
	fn func(cm float64)

	// WatchError, if set, will be returned by Watch.
	WatchError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSensor creates a FakeSensor.
func NewFakeSensor() *FakeSensor {
	return &FakeSensor{}
}

// Watch records fn.
func (f *FakeSensor) Watch(fn func(cm float64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WatchError != nil {
		return f.WatchError
	}
	if f.fn != nil {
		return errors.New("ranging: already watching")
	}
	f.fn = fn
	return nil
}

// Emit delivers a sample on the calling goroutine.
// Returns false if nothing is watching.
func (f *FakeSensor) Emit(cm float64) bool {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(cm)
	return true
}

// Close stops delivering samples.
func (f *FakeSensor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = nil
	f.Closed = true
	return nil
}
