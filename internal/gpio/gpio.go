// Package gpio provides line-level digital I/O with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation simulates a wired key matrix for testing.
package gpio

// Level is the logical state of a digital line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Lines controls a set of numbered digital I/O lines.
//
// Matrix scanning drives row lines as outputs and reads column lines as
// inputs with pull-ups, so only those two modes are exposed.
type Lines interface {
	// SetOutput configures the line as a driven output. The initial level
	// is High (idle for active-low scanning).
	SetOutput(line int) error

	// SetInputPullUp configures the line as an input with the internal
	// pull-up enabled. An open line reads High; a contact closed to a
	// Low-driven line reads Low.
	SetInputPullUp(line int) error

	// Write sets the level of an output line.
	Write(line int, level Level) error

	// Read returns the level of an input line.
	Read(line int) (Level, error)

	// Close releases all requested lines.
	Close() error
}

// Default BCM pin assignment for a 4x3 keypad on the deployment image.
var (
	DefaultRowPins = []int{17, 27, 22, 5}
	DefaultColPins = []int{6, 13, 19}
)
