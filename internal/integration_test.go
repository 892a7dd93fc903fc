package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/keypad-scanner/internal/gpio"
	"github.com/sweeney/keypad-scanner/internal/keypad"
	"github.com/sweeney/keypad-scanner/internal/mqtt"
	"github.com/sweeney/keypad-scanner/internal/status"
)

func newPipeline(t *testing.T) (*keypad.Keypad, *gpio.FakeChip) {
	t.Helper()
	chip := gpio.NewFakeChip()
	layout := keypad.Layout{
		RowLines: []int{17, 27, 22, 5},
		ColLines: []int{6, 13, 19},
		Keys: [][]keypad.Key{
			{'1', '2', '3'},
			{'4', '5', '6'},
			{'7', '8', '9'},
			{'*', '0', '#'},
		},
	}
	pad, err := keypad.New(chip, layout)
	if err != nil {
		t.Fatalf("keypad.New: %v", err)
	}
	return pad, chip
}

// scanAndPublish runs one poll cycle the way the daemon loop does.
func scanAndPublish(t *testing.T, pad *keypad.Keypad, publisher mqtt.Publisher, tracker *status.Tracker, now time.Time) {
	t.Helper()
	if err := pad.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if key, ok := pad.Read(); ok {
		if err := publisher.Publish(mqtt.KeyEvent{Timestamp: now, Key: key.String()}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if tracker != nil {
			tracker.RecordPress(key.String(), now)
		}
	}
}

// TestIntegrationFullFlow drives a key sequence from the fake chip through the
// keypad, the publisher and the status tracker.
func TestIntegrationFullFlow(t *testing.T) {
	pad, chip := newPipeline(t)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(startTime, status.Config{Rows: 4, Cols: 3})

	// Dial "42#": press, hold one cycle, release, next key.
	steps := []struct {
		press   *[2]int // contact to close before scanning, nil for none
		release bool    // open all contacts before scanning
	}{
		{press: &[2]int{27, 6}},  // '4' down
		{},                       // '4' held
		{release: true},          // '4' up
		{press: &[2]int{5, 13}},  // '0' down
		{release: true},          // '0' up
		{press: &[2]int{5, 19}},  // '#' down
		{release: true},          // '#' up
	}

	for i, step := range steps {
		if step.release {
			chip.ReleaseAll()
		}
		if step.press != nil {
			chip.Press(step.press[0], step.press[1])
		}
		now := startTime.Add(time.Duration(i) * 50 * time.Millisecond)
		scanAndPublish(t, pad, publisher, tracker, now)
	}

	if len(publisher.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(publisher.Events))
	}
	want := []string{"4", "0", "#"}
	for i, key := range want {
		if publisher.Events[i].Key != key {
			t.Errorf("event %d: expected key %q, got %q", i, key, publisher.Events[i].Key)
		}
	}

	for i, payload := range publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Keypad.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Keypad.Event != "KEY_PRESS" {
			t.Errorf("payload %d: expected KEY_PRESS, got %s", i, parsed.Keypad.Event)
		}
	}

	snap := tracker.Snapshot()
	if snap.LastKey != "#" {
		t.Errorf("tracker last key: expected #, got %q", snap.LastKey)
	}
	if snap.Presses != 3 {
		t.Errorf("tracker presses: expected 3, got %d", snap.Presses)
	}
}

// TestIntegrationHeldKeySingleEvent verifies a key held across many polls
// publishes exactly once.
func TestIntegrationHeldKeySingleEvent(t *testing.T) {
	pad, chip := newPipeline(t)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	chip.Press(22, 19) // '9'
	for i := 0; i < 10; i++ {
		scanAndPublish(t, pad, publisher, nil, startTime.Add(time.Duration(i)*50*time.Millisecond))
	}

	if len(publisher.Events) != 1 {
		t.Fatalf("expected 1 event for held key, got %d", len(publisher.Events))
	}
	if publisher.Events[0].Key != "9" {
		t.Errorf("expected key 9, got %q", publisher.Events[0].Key)
	}
}

// TestIntegrationRolloverOverwrite verifies a second key pressed while the
// first is still buffered replaces it.
func TestIntegrationRolloverOverwrite(t *testing.T) {
	pad, chip := newPipeline(t)

	chip.Press(17, 6) // '1'
	if err := pad.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// Second key lands before anyone reads the first.
	chip.ReleaseAll()
	chip.Press(17, 13) // '2'
	if err := pad.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	key, ok := pad.Read()
	if !ok {
		t.Fatal("expected a buffered key")
	}
	if key != '2' {
		t.Errorf("expected overwrite to 2, got %q", key)
	}
	if _, ok := pad.Read(); ok {
		t.Error("buffer should hold a single key")
	}
}

// TestIntegrationLifecycleEvents verifies STARTUP, key and SHUTDOWN events
// arrive in order with their payload shapes.
func TestIntegrationLifecycleEvents(t *testing.T) {
	pad, chip := newPipeline(t)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 2, 3, 19, 5, 51, 0, time.UTC)

	startup := mqtt.SystemEvent{
		Timestamp: startTime,
		Event:     "STARTUP",
		Retained:  true,
		Config: &mqtt.SystemConfig{
			PollMs:      50,
			HeartbeatMs: 900000,
			Broker:      "tcp://192.168.1.200:1883",
			Rows:        4,
			Cols:        3,
		},
	}
	if err := publisher.PublishSystem(startup); err != nil {
		t.Fatalf("startup publish: %v", err)
	}

	chip.Press(17, 6) // '1'
	scanAndPublish(t, pad, publisher, nil, startTime.Add(time.Second))

	shutdown := mqtt.SystemEvent{
		Timestamp: startTime.Add(time.Minute),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
		Retained:  true,
	}
	if err := publisher.PublishSystem(shutdown); err != nil {
		t.Fatalf("shutdown publish: %v", err)
	}

	if len(publisher.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(publisher.SystemEvents))
	}
	if publisher.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("first system event: expected STARTUP, got %s", publisher.SystemEvents[0].Event)
	}
	if publisher.SystemEvents[0].Config == nil {
		t.Error("startup event should carry config")
	}
	if publisher.SystemEvents[1].Event != "SHUTDOWN" {
		t.Errorf("second system event: expected SHUTDOWN, got %s", publisher.SystemEvents[1].Event)
	}
	if publisher.SystemEvents[1].Reason != "SIGTERM" {
		t.Errorf("shutdown reason: expected SIGTERM, got %s", publisher.SystemEvents[1].Reason)
	}
	if len(publisher.Events) != 1 {
		t.Fatalf("expected 1 key event, got %d", len(publisher.Events))
	}

	var parsed mqtt.SystemPayload
	if err := json.Unmarshal(publisher.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid startup JSON: %v", err)
	}
	if parsed.System.Config == nil || parsed.System.Config.Rows != 4 {
		t.Errorf("startup payload config: got %+v", parsed.System.Config)
	}
	if err := json.Unmarshal(publisher.SystemPayloads[1], &parsed); err != nil {
		t.Fatalf("invalid shutdown JSON: %v", err)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("shutdown payload reason: expected SIGTERM, got %s", parsed.System.Reason)
	}
}

// TestIntegrationStatusJSONReflectsPresses verifies the HTTP status document
// picks up key presses recorded through the tracker.
func TestIntegrationStatusJSONReflectsPresses(t *testing.T) {
	pad, chip := newPipeline(t)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(startTime, status.Config{
		PollMs: 50,
		Broker: "tcp://192.168.1.200:1883",
		Rows:   4,
		Cols:   3,
	})

	chip.Press(5, 6) // '*'
	scanAndPublish(t, pad, publisher, tracker, startTime.Add(time.Second))
	tracker.SetMQTTConnected(true)

	data := status.FormatJSON(tracker.Snapshot())

	var parsed status.StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid status JSON: %v", err)
	}
	if parsed.Status.LastKey != "*" {
		t.Errorf("status last key: expected *, got %q", parsed.Status.LastKey)
	}
	if parsed.Status.Presses != 1 {
		t.Errorf("status presses: expected 1, got %d", parsed.Status.Presses)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("status should report MQTT connected")
	}
	if parsed.Status.Config.Rows != 4 || parsed.Status.Config.Cols != 3 {
		t.Errorf("status config dims: got %dx%d, want 4x3", parsed.Status.Config.Rows, parsed.Status.Config.Cols)
	}
}

// TestIntegrationWaitForKey verifies the blocking read path end to end.
func TestIntegrationWaitForKey(t *testing.T) {
	pad, chip := newPipeline(t)

	chip.Press(27, 13) // '5'
	key, err := pad.WaitForKey()
	if err != nil {
		t.Fatalf("WaitForKey: %v", err)
	}
	if key != '5' {
		t.Errorf("expected key 5, got %q", key)
	}
}
