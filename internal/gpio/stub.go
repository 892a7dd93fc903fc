//go:build !linux

package gpio

import "errors"

// Chip is not available on non-Linux platforms.
type Chip struct{}

// NewChip returns an error on non-Linux platforms.
func NewChip(name string) (*Chip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetOutput is not implemented on non-Linux platforms.
func (c *Chip) SetOutput(line int) error {
	return errors.New("gpio: not supported")
}

// SetInputPullUp is not implemented on non-Linux platforms.
func (c *Chip) SetInputPullUp(line int) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (c *Chip) Write(line int, level Level) error {
	return errors.New("gpio: not supported")
}

// Read is not implemented on non-Linux platforms.
func (c *Chip) Read(line int) (Level, error) {
	return High, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}
