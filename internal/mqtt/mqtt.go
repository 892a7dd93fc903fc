// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for key press events.
const Topic = "home/keypad/scanner/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/keypad/scanner/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a key press event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event KeyEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// KeyEvent represents a single detected key press.
type KeyEvent struct {
	Timestamp time.Time
	Key       string
}

// SystemEvent represents a system lifecycle event
// (STARTUP, SHUTDOWN, HEARTBEAT, RECONNECTED).
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string // e.g., "SIGTERM", "SIGINT", "MQTT_DISCONNECT" (shutdown only)
	Retained  bool   // Whether the message should be retained by the broker

	// Config is included in STARTUP events.
	Config *SystemConfig

	// Heartbeat is included in HEARTBEAT events.
	Heartbeat *HeartbeatInfo

	// Network is included when pi-helper network info is available.
	Network *NetworkInfo
}

// SystemConfig echoes the daemon configuration in STARTUP events.
type SystemConfig struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
}

// HeartbeatInfo carries periodic liveness data.
type HeartbeatInfo struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Presses       int    `json:"presses"`
	LastKey       string `json:"last_key,omitempty"`
}

// NetworkInfo contains network state reported by pi-helper.
type NetworkInfo struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// Payload is the MQTT message structure for key press events.
type Payload struct {
	Keypad KeypadPayload `json:"keypad"`
}

// KeypadPayload contains the key press details.
type KeypadPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Key       string `json:"key"`
}

// FormatPayload creates the JSON payload for a key press event.
func FormatPayload(event KeyEvent) ([]byte, error) {
	payload := Payload{
		Keypad: KeypadPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     "KEY_PRESS",
			Key:       event.Key,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message structure for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Reason    string         `json:"reason,omitempty"`
	Config    *SystemConfig  `json:"config,omitempty"`
	Heartbeat *HeartbeatInfo `json:"heartbeat,omitempty"`
	Network   *NetworkInfo   `json:"network,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Config:    event.Config,
			Heartbeat: event.Heartbeat,
			Network:   event.Network,
		},
	}
	return json.Marshal(payload)
}
