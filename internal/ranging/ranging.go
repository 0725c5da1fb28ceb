// Package ranging samples an HC-SR04 style ultrasonic distance sensor.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package ranging

import (
	"errors"
	"log"
	"time"
)

// Sensor periodically reports raw distances in centimetres.
type Sensor interface {
	// Watch starts sampling and delivers every good sample to fn.
	// Samples are delivered serially from a single goroutine.
	Watch(fn func(cm float64)) error

	// Close stops sampling and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultTriggerPin = 20
	DefaultEchoPin    = 21
)

const (
	// DefaultInterval is the time between trigger pulses.
	DefaultInterval = 100 * time.Millisecond

	// EchoTimeout bounds the wait for an echo; beyond ~10m the sensor gives up.
	EchoTimeout = 60 * time.Millisecond

	// speedOfSound in centimetres per microsecond at 20°C.
	speedOfSound = 0.0343
)

// ErrNoEcho is returned when no complete echo pulse arrived in time.
var ErrNoEcho = errors.New("ranging: no echo")

// PulseToCentimetres converts an echo pulse width into a one-way distance.
func PulseToCentimetres(pulse time.Duration) float64 {
	us := float64(pulse) / float64(time.Microsecond)
	return us * speedOfSound / 2
}

// sampleLoop measures on every tick and hands good samples to fn until stop
// is closed. Measurement errors are logged and the loop keeps going.
func sampleLoop(measure func() (float64, error), tick <-chan time.Time, stop <-chan struct{}, fn func(cm float64)) {
	for {
		select {
		case <-stop:
			return
		case <-tick:
			cm, err := measure()
			if err != nil {
				log.Printf("ranging: sample failed: %v", err)
				continue
			}
			fn(cm)
		}
	}
}
