//go:build !linux

package ranging

import (
	"errors"
	"time"
)

// RealSensor is not available on non-Linux platforms.
type RealSensor struct{}

// NewRealSensor returns an error on non-Linux platforms.
func NewRealSensor(chip string, trigPin, echoPin int, interval time.Duration) (*RealSensor, error) {
	return nil, errors.New("ranging: not supported on this platform (requires Linux)")
}

// Watch is not implemented on non-Linux platforms.
func (s *RealSensor) Watch(fn func(cm float64)) error {
	return errors.New("ranging: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *RealSensor) Close() error {
	return nil
}
