package ranging

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestPulseToCentimetres(t *testing.T) {
	tests := []struct {
		pulse time.Duration
		want  float64
	}{
		{0, 0},
		{583 * time.Microsecond, 10},
		{1166 * time.Microsecond, 20},
		{1749 * time.Microsecond, 30},
	}
	for _, tt := range tests {
		got := PulseToCentimetres(tt.pulse)
		if math.Abs(got-tt.want) > 0.05 {
			t.Errorf("PulseToCentimetres(%v): got %.3f, want %.1f", tt.pulse, got, tt.want)
		}
	}
}

func TestSampleLoopDeliversAndSkipsErrors(t *testing.T) {
	results := []struct {
		cm  float64
		err error
	}{
		{10, nil},
		{0, ErrNoEcho},
		{20, nil},
	}
	call := 0
	measure := func() (float64, error) {
		r := results[call]
		call++
		return r.cm, r.err
	}

	tick := make(chan time.Time)
	stop := make(chan struct{})
	done := make(chan struct{})
	var got []float64

	go func() {
		defer close(done)
		sampleLoop(measure, tick, stop, func(cm float64) { got = append(got, cm) })
	}()

	for range results {
		tick <- time.Time{}
	}
	close(stop)
	<-done

	if len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Errorf("samples: got %v, want [10 20]", got)
	}
}

func TestSampleLoopStops(t *testing.T) {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		sampleLoop(func() (float64, error) { return 0, nil }, nil, stop, func(float64) {})
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampleLoop did not return after stop")
	}
}

func TestFakeSensor(t *testing.T) {
	f := NewFakeSensor()
	if f.Emit(10) {
		t.Error("Emit before Watch should return false")
	}

	var got []float64
	if err := f.Watch(func(cm float64) { got = append(got, cm) }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := f.Watch(func(float64) {}); err == nil {
		t.Error("second Watch should fail")
	}
	f.Emit(10)
	f.Emit(30)

	if len(got) != 2 || got[0] != 10 || got[1] != 30 {
		t.Errorf("got %v, want [10 30]", got)
	}

	f.Close()
	if !f.Closed || f.Emit(20) {
		t.Error("Emit after Close should return false")
	}
}

func TestFakeSensorWatchError(t *testing.T) {
	f := NewFakeSensor()
	f.WatchError = errors.New("no device")
	if err := f.Watch(func(float64) {}); err == nil {
		t.Error("expected scripted error")
	}
}
