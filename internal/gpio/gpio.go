// Package gpio provides edge-triggered digital inputs and LED outputs with
// hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Handler receives one call per debounced actuation of an input. Inputs are
// active-high and only the rising edge is reported, so value is the line
// level after the edge (1 on real hardware). Calls for a single pin never
// overlap.
type Handler func(pin, value int)

// Inputs watches input pins for edges.
type Inputs interface {
	// Watch requests pin as an input and calls fn once per actuation.
	Watch(pin int, fn Handler) error

	// Close stops watching and releases GPIO resources.
	Close() error
}

// Outputs sets output pin levels.
type Outputs interface {
	// SetLevel drives pin to level (0 or 1).
	SetLevel(pin, level int) error

	// Close drives every output low and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering). LED slot i belongs to button slot i.
var (
	DefaultLEDPins        = []int{2, 3, 4}
	DefaultButtonPins     = []int{17, 27, 22}
	DefaultCapacitivePins = []int{16}
)

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"
