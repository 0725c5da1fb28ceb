//go:build linux

package gpio

import (
	"testing"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

func TestInputOptionsRisingEdgeOnly(t *testing.T) {
	opts := inputOptions(10*time.Millisecond, func(pin, value int) {})

	var rising, pullDown, debounce bool
	for _, opt := range opts {
		switch opt {
		case gpiocdev.LineReqOption(gpiocdev.WithRisingEdge):
			rising = true
		case gpiocdev.LineReqOption(gpiocdev.WithPullDown):
			pullDown = true
		case gpiocdev.LineReqOption(gpiocdev.WithDebounce(10 * time.Millisecond)):
			debounce = true
		case gpiocdev.LineReqOption(gpiocdev.WithBothEdges), gpiocdev.LineReqOption(gpiocdev.WithFallingEdge):
			t.Errorf("input requests a second edge: %#v", opt)
		case gpiocdev.LineReqOption(gpiocdev.WithPullUp):
			t.Error("input must not be pulled up with rising-edge detection")
		}
	}
	if !rising {
		t.Error("expected rising edge detection")
	}
	if !pullDown {
		t.Error("expected pull-down bias")
	}
	if !debounce {
		t.Error("expected kernel debounce")
	}
}

func TestInputOptionsNoDebounce(t *testing.T) {
	for _, opt := range inputOptions(0, func(pin, value int) {}) {
		if _, ok := opt.(gpiocdev.DebounceOption); ok {
			t.Error("debounce option present with zero period")
		}
	}
}
