// Package keypad implements a debounced matrix-keypad scanner.
//
// The keypad is a grid of switches where each row and column is a wire.
// Pressing a key shorts its row wire to its column wire. Rows are driven
// outputs held HIGH and columns are inputs with pull-ups, so driving one
// row LOW makes any pressed key in that row pull its column LOW.
//
// The scanner is cooperative and call-driven: the caller invokes Scan on
// its own cadence and that cadence is the only debounce filter. A press
// edge is buffered in a single slot until consumed; a second press before
// the first is read overwrites it.
//
// This package has no hardware or wall-clock access of its own — lines
// come in through gpio.Lines and timeouts through Clock, so everything is
// testable against fakes.
package keypad

import (
	"fmt"
	"time"

	"github.com/sweeney/keypad-scanner/internal/gpio"
)

// Key is the symbol a keypad position maps to.
type Key rune

// NoKey is the zero Key. It is reserved for "no key detected" and is
// rejected as a keymap entry at construction.
const NoKey Key = 0

// String returns the key as a string, or "none" for NoKey.
func (k Key) String() string {
	if k == NoKey {
		return "none"
	}
	return string(rune(k))
}

// Keypad scans a key matrix and buffers the most recent press.
// It is not safe for concurrent use; a single goroutine must own it.
type Keypad struct {
	lines    gpio.Lines
	rowLines []int
	colLines []int
	keys     [][]Key

	lastKey Key // most recent scan result, for edge detection
	buffer  Key // one unconsumed press, or NoKey

	clock        Clock
	scanInterval time.Duration
	sleep        func(time.Duration)
}

// Option adjusts scanner behavior at construction.
type Option func(*Keypad)

// WithClock replaces the wall clock used for WaitForKeyTimeout deadlines.
func WithClock(c Clock) Option {
	return func(k *Keypad) { k.clock = c }
}

// WithScanInterval makes the WaitForKey variants pause between sweeps.
// Zero (the default) keeps the original tight busy loop. Intervals in the
// 20–100ms range double as a debounce filter for bouncy switches.
func WithScanInterval(d time.Duration) Option {
	return func(k *Keypad) { k.scanInterval = d }
}

// New validates the layout, configures the row lines as outputs held HIGH
// and the column lines as inputs with pull-ups, and returns a scanner with
// an empty buffer. The layout is copied; the caller may reuse its slices.
func New(lines gpio.Lines, layout Layout, opts ...Option) (*Keypad, error) {
	if lines == nil {
		return nil, fmt.Errorf("keypad: nil line driver")
	}
	if err := layout.validate(); err != nil {
		return nil, fmt.Errorf("keypad: %w", err)
	}

	k := &Keypad{
		lines:    lines,
		rowLines: append([]int(nil), layout.RowLines...),
		colLines: append([]int(nil), layout.ColLines...),
		keys:     copyKeys(layout.Keys),
		clock:    newWallClock(),
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(k)
	}

	for _, line := range k.rowLines {
		if err := lines.SetOutput(line); err != nil {
			return nil, fmt.Errorf("keypad: configure row line %d: %w", line, err)
		}
		if err := lines.Write(line, gpio.High); err != nil {
			return nil, fmt.Errorf("keypad: idle row line %d: %w", line, err)
		}
	}
	for _, line := range k.colLines {
		if err := lines.SetInputPullUp(line); err != nil {
			return nil, fmt.Errorf("keypad: configure column line %d: %w", line, err)
		}
	}

	return k, nil
}

// Scan sweeps the matrix once and updates the press buffer.
//
// Each row is driven LOW in turn and every column is read; the last closed
// contact found in row-major order wins, which is the documented single-key
// limitation. A press edge (previous sweep saw nothing, this one saw a key)
// overwrites the buffer. A release only re-arms edge detection — it never
// clears the buffer, so a press fully contained between two sweeps is still
// reported.
//
// On a hardware error the sweep aborts and no state changes.
func (k *Keypad) Scan() error {
	if k == nil {
		return nil
	}

	detected := NoKey
	for r, rowLine := range k.rowLines {
		if err := k.lines.Write(rowLine, gpio.Low); err != nil {
			return fmt.Errorf("drive row line %d: %w", rowLine, err)
		}
		for c, colLine := range k.colLines {
			level, err := k.lines.Read(colLine)
			if err != nil {
				k.lines.Write(rowLine, gpio.High)
				return fmt.Errorf("read column line %d: %w", colLine, err)
			}
			if level == gpio.Low {
				detected = k.keys[r][c]
			}
		}
		if err := k.lines.Write(rowLine, gpio.High); err != nil {
			return fmt.Errorf("restore row line %d: %w", rowLine, err)
		}
	}

	if detected != k.lastKey {
		k.lastKey = detected
		if detected != NoKey {
			k.buffer = detected
		}
	}
	return nil
}

// HasKey reports whether an unconsumed press is buffered.
// It touches no hardware.
func (k *Keypad) HasKey() bool {
	return k != nil && k.buffer != NoKey
}

// Read consumes and returns the buffered press. The second value is false
// when nothing was buffered. It touches no hardware.
func (k *Keypad) Read() (Key, bool) {
	if k == nil || k.buffer == NoKey {
		return NoKey, false
	}
	key := k.buffer
	k.buffer = NoKey
	return key, true
}

// Flush discards any unconsumed press. Edge detection state is untouched,
// so a key still held down is not re-reported.
func (k *Keypad) Flush() {
	if k == nil {
		return
	}
	k.buffer = NoKey
}

// WaitForKey scans until a press is captured and returns it. If a press is
// already buffered it returns immediately without scanning.
//
// This is a cooperative busy loop: it occupies the calling goroutine
// entirely (throttled only by WithScanInterval) and has no cancellation
// path. Callers that need cancellation should use WaitForKeyTimeout or
// compose their own loop from Scan, HasKey and Read.
func (k *Keypad) WaitForKey() (Key, error) {
	if k == nil {
		return NoKey, nil
	}
	for !k.HasKey() {
		if err := k.Scan(); err != nil {
			return NoKey, err
		}
		k.pause()
	}
	key, _ := k.Read()
	return key, nil
}

// WaitForKeyTimeout is WaitForKey with a deadline. It returns (NoKey, nil)
// if no press is captured before the timeout elapses.
//
// The deadline is computed in uint32 milliseconds with wrapping
// subtraction, so a counter rollover mid-wait does not cut the wait short.
func (k *Keypad) WaitForKeyTimeout(timeout time.Duration) (Key, error) {
	if k == nil {
		return NoKey, nil
	}
	start := k.clock.Millis()
	limit := uint32(timeout / time.Millisecond)
	for !k.HasKey() {
		if k.clock.Millis()-start > limit {
			break
		}
		if err := k.Scan(); err != nil {
			return NoKey, err
		}
		k.pause()
	}
	key, _ := k.Read()
	return key, nil
}

func (k *Keypad) pause() {
	if k.scanInterval > 0 {
		k.sleep(k.scanInterval)
	}
}

func copyKeys(keys [][]Key) [][]Key {
	out := make([][]Key, len(keys))
	for i, row := range keys {
		out[i] = append([]Key(nil), row...)
	}
	return out
}
