package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Button        string         `json:"button"`
	State         string         `json:"state"`
	Ready         bool           `json:"ready"`
	HoldClicks    uint32         `json:"hold_clicks"`
	ReadErrors    int            `json:"read_errors"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Config        ConfigJSON     `json:"config"`
}

// LastEventJSON is the JSON representation of the most recent gesture.
type LastEventJSON struct {
	Event     string `json:"event"`
	Gesture   string `json:"gesture,omitempty"`
	Count     uint32 `json:"count,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON mirrors logic.EventCounts field for field so that one converts
// to the other.
type CountsJSON struct {
	Press     int `json:"press"`
	Release   int `json:"release"`
	Click     int `json:"click"`
	Clicks    int `json:"clicks"`
	HoldStart int `json:"hold_start"`
	HoldEnd   int `json:"hold_end"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend      string `json:"backend"`
	Line         int    `json:"line"`
	Direction    string `json:"direction"`
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   uint64 `json:"debounce_ms"`
	HoldMs       uint64 `json:"hold_ms"`
	ClickGroupMs uint64 `json:"click_group_ms"`
	RepeatMs     uint64 `json:"repeat_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	HomeKit      bool   `json:"homekit"`
}

func document(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" || !snap.Ready {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		Button:        snap.Config.Name,
		State:         state,
		Ready:         snap.Ready,
		HoldClicks:    snap.HoldClicks,
		ReadErrors:    snap.ReadErrors,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        CountsJSON(snap.Counts),
		Config: ConfigJSON{
			Backend:      snap.Config.Backend,
			Line:         snap.Config.Line,
			Direction:    snap.Config.Direction,
			PollMs:       snap.Config.PollMs,
			DebounceMs:   snap.Config.Timing.Debounce,
			HoldMs:       snap.Config.Timing.Hold,
			ClickGroupMs: snap.Config.Timing.ClickGroup,
			RepeatMs:     snap.Config.Timing.Repeat,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			HomeKit:      snap.Config.HomeKit,
		},
	}

	if le := snap.LastEvent; le != nil {
		inner.LastEvent = &LastEventJSON{
			Event:     string(le.Type),
			Gesture:   le.Gesture,
			Count:     le.Count,
			Timestamp: le.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := document(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := document(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
