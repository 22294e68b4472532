// Package mqtt publishes button gestures and daemon lifecycle messages.
//
// Topics are laid out per button:
//
//	home/button/<name>/events   gesture events, QoS 0
//	home/button/<name>/system   lifecycle events, QoS 1
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// TopicPrefix is the root of every topic this daemon publishes.
const TopicPrefix = "home/button"

// Lifecycle event names carried on the system topic.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// Topic returns the gesture event topic for a named button.
func Topic(name string) string {
	return TopicPrefix + "/" + name + "/events"
}

// TopicSystem returns the lifecycle topic for a named button.
func TopicSystem(name string) string {
	return TopicPrefix + "/" + name + "/system"
}

// Publisher is what the run loop sends to. A failed publish is reported,
// never fatal.
type Publisher interface {
	Publish(event logic.Event) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus is implemented by publishers that know their link state.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle message for the system topic.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	// Reason is set for SHUTDOWN: the signal name or MQTT_DISCONNECT.
	Reason string
	// RawPayload replaces the generated body when non-nil. The run loop
	// uses it to send a full status document.
	RawPayload []byte
	Retained   bool
}

// Payload is the body published on the events topic.
type Payload struct {
	Button GestureBody `json:"button"`
}

// GestureBody describes one gesture event.
type GestureBody struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Gesture    string `json:"gesture,omitempty"`
	Count      uint32 `json:"count,omitempty"`
	HoldClicks uint32 `json:"hold_clicks,omitempty"`
	State      string `json:"state"`
}

// FormatPayload encodes e for the events topic. Timestamps are UTC with
// sub-second precision kept.
func FormatPayload(e logic.Event) ([]byte, error) {
	body := GestureBody{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Event:     string(e.Type),
		Gesture:   e.Gesture(),
		Count:     e.Count,
		State:     string(e.State),
	}
	if e.Type == logic.EventHoldStart {
		body.HoldClicks = e.HoldClicks
	}
	return json.Marshal(Payload{Button: body})
}

// SystemPayload is the short lifecycle body used for the will and for
// RECONNECTED, where no status snapshot is at hand.
type SystemPayload struct {
	System SystemBody `json:"system"`
}

// SystemBody describes one lifecycle event.
type SystemBody struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload encodes e for the system topic, or returns
// e.RawPayload untouched when it is set.
func FormatSystemPayload(e SystemEvent) ([]byte, error) {
	if e.RawPayload != nil {
		return e.RawPayload, nil
	}
	return json.Marshal(SystemPayload{System: SystemBody{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Event:     e.Event,
		Reason:    e.Reason,
	}})
}
