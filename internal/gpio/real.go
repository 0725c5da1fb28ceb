//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "sensor-bridge"

// RealChip drives inputs and outputs on a Linux GPIO character device.
type RealChip struct {
	chip     *gpiocdev.Chip
	debounce time.Duration

	mu      sync.Mutex
	inputs  map[int]*gpiocdev.Line
	outputs map[int]*gpiocdev.Line
}

// NewRealChip opens the named chip and requests outPins as outputs, initially
// low. Inputs requested later through Watch use the given kernel debounce.
func NewRealChip(name string, debounce time.Duration, outPins []int) (*RealChip, error) {
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}

	c := &RealChip{
		chip:     chip,
		debounce: debounce,
		inputs:   make(map[int]*gpiocdev.Line),
		outputs:  make(map[int]*gpiocdev.Line),
	}
	for _, pin := range outPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("request output pin %d: %w", pin, err)
		}
		c.outputs[pin] = line
	}
	return c, nil
}

// Watch requests pin as an input and delivers one call per actuation.
// gpiocdev calls the handler from one goroutine per line, so edges for a
// single pin are delivered serially.
func (c *RealChip) Watch(pin int, fn Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.inputs[pin]; ok {
		return fmt.Errorf("pin %d already watched", pin)
	}

	line, err := c.chip.RequestLine(pin, inputOptions(c.debounce, fn)...)
	if err != nil {
		return fmt.Errorf("watch pin %d: %w", pin, err)
	}
	c.inputs[pin] = line
	return nil
}

// inputOptions configures an active-high input: pulled down at rest and
// reporting only the rising edge, so press and release of a button (or
// touch and lift of a pad) produce a single event.
func inputOptions(debounce time.Duration, fn Handler) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			fn(evt.Offset, 1)
		}),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}
	return opts
}

// SetLevel drives an output pin requested at construction.
func (c *RealChip) SetLevel(pin, level int) error {
	c.mu.Lock()
	line, ok := c.outputs[pin]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	if err := line.SetValue(level); err != nil {
		return fmt.Errorf("set pin %d to %d: %w", pin, level, err)
	}
	return nil
}

// Close drives outputs low, then reconfigures every line to input with
// pull-down (matching Pi boot defaults) before releasing it.
func (c *RealChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	for pin, line := range c.outputs {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive pin %d low: %w", pin, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	c.outputs = make(map[int]*gpiocdev.Line)

	for pin, line := range c.inputs {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	c.inputs = make(map[int]*gpiocdev.Line)

	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
