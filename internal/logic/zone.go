package logic

import (
	"sort"
	"time"
)

// Zone is a discrete ultrasonic distance bucket.
type Zone int

// NoZone means the sample fell outside every bucket.
const NoZone Zone = 0

// DedupeWindow is how long a zone stays suppressed after being broadcast.
const DedupeWindow = 3 * time.Second

// zoneBounds are inclusive centimetre ranges. The gaps between them are
// dead bands and classify as NoZone.
var zoneBounds = []struct {
	zone     Zone
	min, max float64
}{
	{1, 8, 12},
	{2, 18, 22},
	{3, 28, 32},
}

// ClassifyDistance maps a raw distance in centimetres to a zone.
func ClassifyDistance(cm float64) Zone {
	for _, b := range zoneBounds {
		if cm >= b.min && cm <= b.max {
			return b.zone
		}
	}
	return NoZone
}

type zoneEntry struct {
	zone Zone
	at   time.Time
}

// DistanceLog records recently broadcast zones.
// Not safe for concurrent use. Caller must synchronize.
type DistanceLog struct {
	entries []zoneEntry
}

// Recent reports whether zone was recorded within window of now, in either
// direction.
func (l *DistanceLog) Recent(zone Zone, now time.Time, window time.Duration) bool {
	for _, e := range l.entries {
		if e.zone == zone && within(now, e.at, window) {
			return true
		}
	}
	return false
}

// Add records zone at now, dropping entries outside window first.
func (l *DistanceLog) Add(zone Zone, now time.Time, window time.Duration) {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if within(now, e.at, window) {
			kept = append(kept, e)
		}
	}
	l.entries = append(kept, zoneEntry{zone: zone, at: now})
}

func within(now, at time.Time, window time.Duration) bool {
	d := now.Sub(at)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// Clear empties the log.
func (l *DistanceLog) Clear() {
	l.entries = nil
}

// Len returns the number of entries, stale ones included.
func (l *DistanceLog) Len() int {
	return len(l.entries)
}

// ActivationSet is the set of currently active slots of one sensor class.
// Not safe for concurrent use. Caller must synchronize.
type ActivationSet struct {
	active map[int]bool
}

// NewActivationSet creates an empty set.
func NewActivationSet() *ActivationSet {
	return &ActivationSet{active: make(map[int]bool)}
}

// Toggle flips slot membership and reports whether it is now active.
func (s *ActivationSet) Toggle(slot int) bool {
	if s.active[slot] {
		delete(s.active, slot)
		return false
	}
	s.active[slot] = true
	return true
}

// Has reports whether slot is active.
func (s *ActivationSet) Has(slot int) bool {
	return s.active[slot]
}

// Slots returns the active slots in ascending order.
func (s *ActivationSet) Slots() []int {
	out := make([]int, 0, len(s.active))
	for slot := range s.active {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of active slots.
func (s *ActivationSet) Len() int {
	return len(s.active)
}

// Clear deactivates every slot.
func (s *ActivationSet) Clear() {
	s.active = make(map[int]bool)
}
