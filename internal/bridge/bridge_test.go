package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweeney/sensor-bridge/internal/logic"
)

type recordingSink struct {
	mu     sync.Mutex
	events []logic.Event
	err    error
}

func (s *recordingSink) Publish(event logic.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) got() []logic.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logic.Event(nil), s.events...)
}

func TestDispatcherPreservesOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(16, sink)

	for i := 1; i <= 5; i++ {
		d.Emit(logic.Event{Type: logic.EventButtonActivated, ID: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	got := sink.got()
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i, ev := range got {
		if ev.ID != i+1 {
			t.Errorf("event %d: ID %d, want %d", i, ev.ID, i+1)
		}
	}
}

func TestDispatcherSinkErrorDoesNotStopOthers(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	ok := &recordingSink{}
	d := NewDispatcher(4, failing, ok)

	d.Emit(logic.Event{Type: logic.EventDistanceChanged, Distance: 1})
	d.Emit(logic.Event{Type: logic.EventDistanceChanged, Distance: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	if len(ok.got()) != 2 {
		t.Errorf("healthy sink: got %d events, want 2", len(ok.got()))
	}
	if len(failing.got()) != 2 {
		t.Errorf("failing sink should still be offered every event, got %d", len(failing.got()))
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(2, &recordingSink{})

	for i := 0; i < 5; i++ {
		d.Emit(logic.Event{Type: logic.EventButtonActivated, ID: 1})
	}

	if d.Dropped() != 3 {
		t.Errorf("Dropped: got %d, want 3", d.Dropped())
	}
}

// stalledSink blocks every Publish until release is closed.
type stalledSink struct {
	release chan struct{}
	calls   atomic.Int32
}

func (s *stalledSink) Publish(event logic.Event) error {
	s.calls.Add(1)
	<-s.release
	return nil
}

func TestDispatcherStalledSinkDoesNotDelayOthers(t *testing.T) {
	stalled := &stalledSink{release: make(chan struct{})}
	fast := &recordingSink{}
	d := NewDispatcher(DefaultQueueSize, stalled, fast)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	const n = 40
	for i := 1; i <= n; i++ {
		d.Emit(logic.Event{Type: logic.EventButtonActivated, ID: i})
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(fast.got()) < n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := fast.got()
	if len(got) != n {
		t.Errorf("fast sink: got %d events while the other sink was stalled, want %d", len(got), n)
	}
	for i, ev := range got {
		if ev.ID != i+1 {
			t.Errorf("fast sink event %d: ID %d, want %d", i, ev.ID, i+1)
			break
		}
	}
	if stalled.calls.Load() > 1 {
		t.Errorf("stalled sink should still be blocked on its first event, got %d calls", stalled.calls.Load())
	}

	close(stalled.release)
	cancel()
	<-done

	if stalled.calls.Load() != n {
		t.Errorf("stalled sink: got %d events after release, want %d", stalled.calls.Load(), n)
	}
	if d.Dropped() != 0 {
		t.Errorf("Dropped: got %d, want 0", d.Dropped())
	}
}

func TestDispatcherFullQueueOnlyAffectsThatSink(t *testing.T) {
	stalled := &stalledSink{release: make(chan struct{})}
	fast := &recordingSink{}
	d := NewDispatcher(4, stalled, fast)

	// Nothing is running yet, so both queues fill; then the fast sink drains.
	for i := 1; i <= 4; i++ {
		d.Emit(logic.Event{Type: logic.EventButtonActivated, ID: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for (len(fast.got()) < 4 || stalled.calls.Load() < 1) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// The stalled sink holds event 1 and has 3 queued, so one more fits
	// and the next is dropped for it alone.
	d.Emit(logic.Event{Type: logic.EventButtonActivated, ID: 5})
	d.Emit(logic.Event{Type: logic.EventButtonActivated, ID: 6})

	deadline = time.Now().Add(2 * time.Second)
	for len(fast.got()) < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(fast.got()) != 6 {
		t.Errorf("fast sink: got %d events, want 6", len(fast.got()))
	}
	if d.Dropped() != 1 {
		t.Errorf("Dropped: got %d, want 1", d.Dropped())
	}

	close(stalled.release)
	cancel()
	<-done
}

func TestDispatcherRunDelivers(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(0, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Emit(logic.Event{Type: logic.EventCapacitiveActivated, ID: 1})

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.got()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if len(sink.got()) != 1 {
		t.Errorf("expected 1 event, got %d", len(sink.got()))
	}
}

func TestEngineEmitsThroughDispatcher(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(8, sink)
	bank := logic.Bank{Buttons: []int{17}, LEDs: []int{2}}
	e, err := logic.NewEngine(bank, nopOutputs{}, d.Emit, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	e.ButtonChanged(17, 1)
	e.ButtonChanged(17, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	got := sink.got()
	if len(got) != 2 || got[0].Type != logic.EventButtonActivated || got[1].Type != logic.EventButtonDisabled {
		t.Errorf("got %+v", got)
	}
}

type nopOutputs struct{}

func (nopOutputs) SetLevel(pin, level int) error { return nil }
