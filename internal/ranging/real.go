//go:build linux

package ranging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "sensor-bridge"

// RealSensor drives an HC-SR04 through a trigger output and an echo input.
type RealSensor struct {
	trig     *gpiocdev.Line
	echo     *gpiocdev.Line
	interval time.Duration
	edges    chan gpiocdev.LineEvent

	mu       sync.Mutex
	watching bool
	stop     chan struct{}
	done     chan struct{}
}

// NewRealSensor requests the trigger and echo lines on the named chip.
func NewRealSensor(chip string, trigPin, echoPin int, interval time.Duration) (*RealSensor, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &RealSensor{
		interval: interval,
		edges:    make(chan gpiocdev.LineEvent, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	trig, err := gpiocdev.RequestLine(chip, trigPin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request trigger pin %d: %w", trigPin, err)
	}
	echo, err := gpiocdev.RequestLine(chip, echoPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case s.edges <- evt:
			default:
			}
		}))
	if err != nil {
		trig.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", echoPin, err)
	}

	s.trig = trig
	s.echo = echo
	return s, nil
}

// Watch starts the sampling goroutine.
func (s *RealSensor) Watch(fn func(cm float64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watching {
		return errors.New("ranging: already watching")
	}
	s.watching = true

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		sampleLoop(s.measure, ticker.C, s.stop, fn)
	}()
	return nil
}

// measure fires one trigger pulse and times the echo from the kernel edge
// timestamps.
func (s *RealSensor) measure() (float64, error) {
	// Discard edges left over from a previous timed-out sample.
	for len(s.edges) > 0 {
		<-s.edges
	}

	if err := s.trig.SetValue(1); err != nil {
		return 0, fmt.Errorf("trigger high: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := s.trig.SetValue(0); err != nil {
		return 0, fmt.Errorf("trigger low: %w", err)
	}

	timeout := time.NewTimer(EchoTimeout)
	defer timeout.Stop()

	var rise time.Duration
	risen := false
	for {
		select {
		case evt := <-s.edges:
			switch {
			case evt.Type == gpiocdev.LineEventRisingEdge:
				rise = evt.Timestamp
				risen = true
			case evt.Type == gpiocdev.LineEventFallingEdge && risen:
				return PulseToCentimetres(evt.Timestamp - rise), nil
			}
		case <-timeout.C:
			return 0, ErrNoEcho
		}
	}
}

// Close stops sampling and releases both lines.
func (s *RealSensor) Close() error {
	s.mu.Lock()
	watching := s.watching
	s.watching = false
	s.mu.Unlock()

	if watching {
		close(s.stop)
		<-s.done
	}

	var errs []error
	if err := s.trig.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close trigger: %w", err))
	}
	if err := s.echo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close echo: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
