// Command keypad-scanner polls a matrix keypad over GPIO and publishes key
// presses to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/keypad-scanner/internal/gpio"
	"github.com/sweeney/keypad-scanner/internal/keypad"
	"github.com/sweeney/keypad-scanner/internal/mqtt"
	"github.com/sweeney/keypad-scanner/internal/status"
	"github.com/sweeney/keypad-scanner/internal/web"
)

// defaultKeymap matches the 4x3 telephone pad on the default pins.
const defaultKeymap = "123,456,789,*0#"

func main() {
	poll := flag.Duration("poll", 50*time.Millisecond, "Keypad scan interval (20-100ms recommended)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	chipName := flag.String("chip", "gpiochip0", "GPIO chip device name")
	rowPins := flag.String("row-pins", formatPins(gpio.DefaultRowPins), "Comma-separated BCM pins driving the rows")
	colPins := flag.String("col-pins", formatPins(gpio.DefaultColPins), "Comma-separated BCM pins reading the columns")
	keymap := flag.String("keymap", defaultKeymap, "Key rows separated by commas, one character per key")
	readKey := flag.Duration("read-key", 0, "Wait up to this long for a single key, print it and exit")

	flag.Parse()

	layout, err := buildLayout(*rowPins, *colPins, *keymap)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(layout, *poll, *broker, *heartbeat, *httpAddr, *chipName, *readKey); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// buildLayout converts the pin and keymap flags into a keypad layout.
func buildLayout(rowPins, colPins, keymap string) (keypad.Layout, error) {
	rows, err := parsePins(rowPins)
	if err != nil {
		return keypad.Layout{}, fmt.Errorf("row pins: %w", err)
	}
	cols, err := parsePins(colPins)
	if err != nil {
		return keypad.Layout{}, fmt.Errorf("column pins: %w", err)
	}
	keys, err := keypad.ParseKeymap(keymap)
	if err != nil {
		return keypad.Layout{}, fmt.Errorf("keymap: %w", err)
	}
	return keypad.Layout{RowLines: rows, ColLines: cols, Keys: keys}, nil
}

func run(layout keypad.Layout, poll time.Duration, broker string, heartbeat time.Duration, httpAddr, chipName string, readKey time.Duration) error {
	chip, err := gpio.NewChip(chipName)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	pad, err := keypad.New(chip, layout, keypad.WithScanInterval(poll))
	if err != nil {
		return fmt.Errorf("init keypad: %w", err)
	}

	// Read-key mode: block for one press and print it.
	if readKey > 0 {
		key, err := pad.WaitForKeyTimeout(readKey)
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if key == keypad.NoKey {
			fmt.Println("no key")
			return nil
		}
		fmt.Println(key)
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      poll.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPAddr:    httpAddr,
		Rows:        layout.Rows(),
		Cols:        layout.Cols(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(toStatusNetwork(net))
	}

	startup := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
		Config: &mqtt.SystemConfig{
			PollMs:      poll.Milliseconds(),
			HeartbeatMs: heartbeat.Milliseconds(),
			Broker:      broker,
			Rows:        layout.Rows(),
			Cols:        layout.Cols(),
		},
		Network: readNetworkInfo(),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: %dx%d keypad, poll=%v broker=%s heartbeat=%v",
		layout.Rows(), layout.Cols(), poll, broker, heartbeat)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(pad, publisher, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(pad *keypad.Keypad, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	lastHeartbeat := startTime
	presses := 0
	lastKey := ""

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			if err := pad.Scan(); err != nil {
				log.Printf("keypad scan error: %v", err)
				continue
			}

			if key, ok := pad.Read(); ok {
				presses++
				lastKey = key.String()
				log.Printf("key press: %s", key)
				if err := publisher.Publish(mqtt.KeyEvent{Timestamp: t, Key: key.String()}); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
				if tracker != nil {
					tracker.RecordPress(key.String(), t)
				}
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				uptime := t.Sub(startTime)
				log.Printf("heartbeat: uptime=%v presses=%d", uptime, presses)

				hb := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
					Heartbeat: &mqtt.HeartbeatInfo{
						UptimeSeconds: int64(uptime.Truncate(time.Second).Seconds()),
						Presses:       presses,
						LastKey:       lastKey,
					},
					Network: readNetworkInfo(),
				}
				if err := publisher.PublishSystem(hb); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
				if tracker != nil {
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(toStatusNetwork(net))
					}
				}
			}

			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

// parsePins converts a comma-separated pin list like "17,27,22,5".
func parsePins(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty pin list")
	}
	var pins []int
	for _, part := range strings.Split(s, ",") {
		pin, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad pin %q: %w", part, err)
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

func formatPins(pins []int) string {
	parts := make([]string, len(pins))
	for i, p := range pins {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *mqtt.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &mqtt.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func toStatusNetwork(n *mqtt.NetworkInfo) *status.NetworkInfo {
	if n == nil {
		return nil
	}
	return &status.NetworkInfo{
		Type:       n.Type,
		IP:         n.IP,
		Status:     n.Status,
		Gateway:    n.Gateway,
		WifiStatus: n.WifiStatus,
		SSID:       n.SSID,
	}
}
