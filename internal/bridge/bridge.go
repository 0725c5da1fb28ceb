// Package bridge moves engine events to their network sinks.
package bridge

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/sweeney/sensor-bridge/internal/logic"
)

// Sink publishes an engine event somewhere. Errors are logged by the
// dispatcher and never stop delivery to other sinks.
type Sink interface {
	Publish(event logic.Event) error
}

// DefaultQueueSize is the number of events buffered between the engine and
// each sink.
const DefaultQueueSize = 64

// lane is one sink with its own queue and delivery goroutine. A sink that
// blocks only fills its own queue.
type lane struct {
	sink    Sink
	queue   chan logic.Event
	dropped atomic.Uint64
}

// Dispatcher fans events from the engine out to every sink. Each sink sees
// events in emit order.
type Dispatcher struct {
	lanes []*lane
}

// NewDispatcher creates a dispatcher with a queue of the given size per sink.
func NewDispatcher(size int, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{}
	for _, s := range sinks {
		d.lanes = append(d.lanes, &lane{sink: s, queue: make(chan logic.Event, size)})
	}
	return d
}

// Emit queues event for every sink without blocking; it has the
// logic.EmitFunc signature. A sink whose queue is full misses the event.
func (d *Dispatcher) Emit(event logic.Event) {
	log.Printf("event: %s id=%d distance=%d", event.Type, event.ID, event.Distance)
	for _, l := range d.lanes {
		select {
		case l.queue <- event:
		default:
			n := l.dropped.Add(1)
			log.Printf("bridge: %T queue full, dropped %s (%d dropped total)", l.sink, event.Type, n)
		}
	}
}

// Dropped returns the number of deliveries skipped because a sink queue was
// full, summed over sinks.
func (d *Dispatcher) Dropped() uint64 {
	var n uint64
	for _, l := range d.lanes {
		n += l.dropped.Load()
	}
	return n
}

// Run delivers queued events until ctx is done. Events still queued at that
// point are delivered before Run returns.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range d.lanes {
		wg.Add(1)
		go func(l *lane) {
			defer wg.Done()
			l.run(ctx)
		}(l)
	}
	wg.Wait()
}

func (l *lane) run(ctx context.Context) {
	for {
		select {
		case event := <-l.queue:
			l.deliver(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-l.queue:
					l.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (l *lane) deliver(event logic.Event) {
	if err := l.sink.Publish(event); err != nil {
		log.Printf("bridge: %T publish %s: %v", l.sink, event.Type, err)
	}
}
