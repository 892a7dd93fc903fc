package gpio

import (
	"errors"
	"testing"
)

func newConfiguredChip(t *testing.T) *FakeChip {
	t.Helper()
	f := NewFakeChip()
	for _, row := range []int{10, 11} {
		if err := f.SetOutput(row); err != nil {
			t.Fatalf("SetOutput(%d): %v", row, err)
		}
	}
	for _, col := range []int{20, 21} {
		if err := f.SetInputPullUp(col); err != nil {
			t.Fatalf("SetInputPullUp(%d): %v", col, err)
		}
	}
	return f
}

func TestFakeChipIdleReadsHigh(t *testing.T) {
	f := newConfiguredChip(t)

	for _, col := range []int{20, 21} {
		level, err := f.Read(col)
		if err != nil {
			t.Fatalf("Read(%d): %v", col, err)
		}
		if level != High {
			t.Errorf("line %d: got %v, want HIGH (pull-up idle)", col, level)
		}
	}
}

func TestFakeChipContactReadsLowOnlyWhenRowDriven(t *testing.T) {
	f := newConfiguredChip(t)
	f.Press(10, 20)

	// Row still idle High: contact must not show.
	level, err := f.Read(20)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if level == Low {
		t.Error("column reads LOW while row is idle HIGH")
	}

	// Drive the wired row Low: the column follows.
	if err := f.Write(10, Low); err != nil {
		t.Fatalf("Write: %v", err)
	}
	level, err = f.Read(20)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if level != Low {
		t.Errorf("column: got %v, want LOW with row driven LOW", level)
	}

	// A different row being Low must not affect this contact.
	if err := f.Write(10, High); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Write(11, Low); err != nil {
		t.Fatalf("Write: %v", err)
	}
	level, err = f.Read(20)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if level != High {
		t.Errorf("column: got %v, want HIGH with unrelated row LOW", level)
	}
}

func TestFakeChipRelease(t *testing.T) {
	f := newConfiguredChip(t)
	f.Press(10, 20)
	f.Write(10, Low)

	f.Release(10, 20)
	level, err := f.Read(20)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if level != High {
		t.Errorf("after release: got %v, want HIGH", level)
	}
}

func TestFakeChipUnconfiguredLines(t *testing.T) {
	f := NewFakeChip()

	if err := f.Write(5, Low); err == nil {
		t.Error("expected error writing unconfigured line")
	}
	if _, err := f.Read(5); err == nil {
		t.Error("expected error reading unconfigured line")
	}
}

func TestFakeChipErrorInjection(t *testing.T) {
	f := newConfiguredChip(t)

	f.ReadError = errors.New("simulated read failure")
	if _, err := f.Read(20); err == nil {
		t.Error("expected injected read error")
	}

	f.WriteError = errors.New("simulated write failure")
	if err := f.Write(10, Low); err == nil {
		t.Error("expected injected write error")
	}
}

func TestFakeChipClose(t *testing.T) {
	f := NewFakeChip()
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}
