//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip drives real lines through the Linux GPIO character device.
type Chip struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewChip opens the named GPIO chip (e.g. "gpiochip0").
// Lines are requested lazily as they are configured.
func NewChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// SetOutput requests the line as an output driven High.
func (c *Chip) SetOutput(line int) error {
	if err := c.release(line); err != nil {
		return err
	}
	l, err := c.chip.RequestLine(line, gpiocdev.AsOutput(1))
	if err != nil {
		return fmt.Errorf("request output line %d: %w", line, err)
	}
	c.lines[line] = l
	return nil
}

// SetInputPullUp requests the line as an input with the pull-up enabled.
func (c *Chip) SetInputPullUp(line int) error {
	if err := c.release(line); err != nil {
		return err
	}
	l, err := c.chip.RequestLine(line, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return fmt.Errorf("request input line %d: %w", line, err)
	}
	c.lines[line] = l
	return nil
}

// Write sets the level of a previously configured output line.
func (c *Chip) Write(line int, level Level) error {
	l, ok := c.lines[line]
	if !ok {
		return fmt.Errorf("write line %d: not requested", line)
	}
	v := 0
	if level == High {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		return fmt.Errorf("write line %d: %w", line, err)
	}
	return nil
}

// Read returns the level of a previously configured input line.
func (c *Chip) Read(line int) (Level, error) {
	l, ok := c.lines[line]
	if !ok {
		return High, fmt.Errorf("read line %d: not requested", line)
	}
	v, err := l.Value()
	if err != nil {
		return High, fmt.Errorf("read line %d: %w", line, err)
	}
	return v != 0, nil
}

// Close releases all requested lines and the chip.
// Row outputs are reconfigured back to inputs first so the keypad presents
// no driven levels after shutdown.
func (c *Chip) Close() error {
	var errs []error
	for n, l := range c.lines {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", n, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", n, err))
		}
	}
	c.lines = make(map[int]*gpiocdev.Line)
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (c *Chip) release(line int) error {
	l, ok := c.lines[line]
	if !ok {
		return nil
	}
	delete(c.lines, line)
	if err := l.Close(); err != nil {
		return fmt.Errorf("release line %d: %w", line, err)
	}
	return nil
}
