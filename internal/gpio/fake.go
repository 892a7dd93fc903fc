package gpio

import "fmt"

type lineMode int

const (
	modeUnset lineMode = iota
	modeOutput
	modeInputPullUp
)

// FakeChip is a test double that simulates the wiring of a key matrix.
//
// A pressed key closes a contact between one row line and one column line.
// Reading a column input returns Low exactly when some closed contact
// connects it to a row output currently driven Low — the same electrical
// behavior a scanned keypad presents.
type FakeChip struct {
	modes  map[int]lineMode
	levels map[int]Level // last written level per output line

	// contacts maps [rowLine, colLine] pairs to closed state.
	contacts map[[2]int]bool

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Writes counts calls to Write, for asserting sweep behavior.
	Writes int
}

// NewFakeChip creates a FakeChip with no contacts closed.
func NewFakeChip() *FakeChip {
	return &FakeChip{
		modes:    make(map[int]lineMode),
		levels:   make(map[int]Level),
		contacts: make(map[[2]int]bool),
	}
}

// Press closes the contact between a row line and a column line.
func (f *FakeChip) Press(rowLine, colLine int) {
	f.contacts[[2]int{rowLine, colLine}] = true
}

// Release opens the contact between a row line and a column line.
func (f *FakeChip) Release(rowLine, colLine int) {
	delete(f.contacts, [2]int{rowLine, colLine})
}

// ReleaseAll opens every closed contact.
func (f *FakeChip) ReleaseAll() {
	f.contacts = make(map[[2]int]bool)
}

// SetOutput configures the line as an output held High.
func (f *FakeChip) SetOutput(line int) error {
	f.modes[line] = modeOutput
	f.levels[line] = High
	return nil
}

// SetInputPullUp configures the line as an input with pull-up.
func (f *FakeChip) SetInputPullUp(line int) error {
	f.modes[line] = modeInputPullUp
	return nil
}

// Write records the level driven on an output line.
func (f *FakeChip) Write(line int, level Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if f.modes[line] != modeOutput {
		return fmt.Errorf("write to line %d: not configured as output", line)
	}
	f.levels[line] = level
	f.Writes++
	return nil
}

// Read returns the level seen on an input line given the closed contacts
// and the levels currently driven on the row outputs.
func (f *FakeChip) Read(line int) (Level, error) {
	if f.ReadError != nil {
		return High, f.ReadError
	}
	if f.modes[line] != modeInputPullUp {
		return High, fmt.Errorf("read from line %d: not configured as input", line)
	}
	for contact, closed := range f.contacts {
		if !closed || contact[1] != line {
			continue
		}
		if f.modes[contact[0]] == modeOutput && f.levels[contact[0]] == Low {
			return Low, nil
		}
	}
	return High, nil
}

// Close marks the chip as closed.
func (f *FakeChip) Close() error {
	f.Closed = true
	return nil
}

// LineLevel reports the level last written to an output line.
// Returns High for lines never written (the configured idle level).
func (f *FakeChip) LineLevel(line int) Level {
	if l, ok := f.levels[line]; ok {
		return l
	}
	return High
}
