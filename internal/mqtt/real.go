package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// pendingCapacity bounds how many messages are held while disconnected.
const pendingCapacity = 64

// RealPublisher publishes to an actual MQTT broker.
//
// While the connection is down, messages are parked in a fixed-capacity
// ring buffer and replayed in order when the connection comes back; the
// oldest messages are dropped on overflow.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	pending   *ringBuffer
	connected bool // true once the first connect completed
}

// NewRealPublisher creates a publisher connected to the given broker.
// A SHUTDOWN/MQTT_DISCONNECT will message is registered so consumers can
// tell an unclean disconnect from a normal shutdown.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{pending: newRingBuffer(pendingCapacity)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("keypad-scanner").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect)

	client := paho.NewClient(opts)
	p.client = client

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a key press event to the MQTT broker.
func (p *RealPublisher) Publish(event KeyEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) so shutdown events are not lost
	return p.send(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.pending.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.pending.len()
		p.mu.Unlock()
		log.Printf("mqtt: disconnected, buffered message (%d pending)", n)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish on %s: %w", topic, err)
	}
	return nil
}

// onConnect replays buffered messages and announces reconnection.
// Runs on paho's connection goroutine.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	first := !p.connected
	p.connected = true
	msgs := p.pending.drainAll()
	p.mu.Unlock()

	if first && len(msgs) == 0 {
		return
	}

	if !first {
		payload, err := FormatSystemPayload(SystemEvent{
			Timestamp: time.Now(),
			Event:     "RECONNECTED",
		})
		if err == nil {
			client.Publish(TopicSystem, 1, false, payload)
		}
		log.Printf("mqtt: reconnected, replaying %d buffered messages", len(msgs))
	}

	for _, msg := range msgs {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", msg.topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay error on %s: %v", msg.topic, err)
			return
		}
	}
}
