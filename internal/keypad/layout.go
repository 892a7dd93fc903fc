package keypad

import (
	"fmt"
	"strings"
)

// Layout describes the wiring and key mapping of a keypad.
//
// RowLines[r] is the line driving row r; ColLines[c] is the line reading
// column c. Keys[r][c] is the symbol reported when the key at row r,
// column c is pressed. New copies all three, so the caller's slices are
// not retained.
type Layout struct {
	RowLines []int
	ColLines []int
	Keys     [][]Key
}

// Rows returns the number of rows.
func (l Layout) Rows() int { return len(l.RowLines) }

// Cols returns the number of columns.
func (l Layout) Cols() int { return len(l.ColLines) }

func (l Layout) validate() error {
	if len(l.RowLines) == 0 {
		return fmt.Errorf("layout has no row lines")
	}
	if len(l.ColLines) == 0 {
		return fmt.Errorf("layout has no column lines")
	}
	if len(l.Keys) != len(l.RowLines) {
		return fmt.Errorf("keymap has %d rows, layout has %d row lines", len(l.Keys), len(l.RowLines))
	}
	for r, row := range l.Keys {
		if len(row) != len(l.ColLines) {
			return fmt.Errorf("keymap row %d has %d keys, layout has %d column lines", r, len(row), len(l.ColLines))
		}
		for c, key := range row {
			if key == NoKey {
				return fmt.Errorf("keymap entry %d,%d is the reserved no-key value", r, c)
			}
		}
	}

	seen := make(map[int]string)
	for i, line := range l.RowLines {
		seen[line] = fmt.Sprintf("row %d", i)
	}
	for i, line := range l.ColLines {
		if prev, ok := seen[line]; ok {
			return fmt.Errorf("line %d assigned to both %s and column %d", line, prev, i)
		}
		seen[line] = fmt.Sprintf("column %d", i)
	}
	if len(seen) != len(l.RowLines)+len(l.ColLines) {
		return fmt.Errorf("duplicate row line assignment")
	}
	return nil
}

// ParseKeymap converts a compact keymap string into key rows. Rows are
// separated by commas and every row must have the same length:
//
//	ParseKeymap("123A,456B,789C,*0#D")
//
// yields the standard 4x4 telephone layout.
func ParseKeymap(s string) ([][]Key, error) {
	if s == "" {
		return nil, fmt.Errorf("empty keymap")
	}
	var keys [][]Key
	for i, rowStr := range strings.Split(s, ",") {
		if rowStr == "" {
			return nil, fmt.Errorf("keymap row %d is empty", i)
		}
		var row []Key
		for _, r := range rowStr {
			row = append(row, Key(r))
		}
		if len(keys) > 0 && len(row) != len(keys[0]) {
			return nil, fmt.Errorf("keymap row %d has %d keys, row 0 has %d", i, len(row), len(keys[0]))
		}
		keys = append(keys, row)
	}
	return keys, nil
}
