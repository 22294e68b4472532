// Package config loads button-sensor settings from TOML or YAML files and
// watches them for changes.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/pin"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full daemon configuration.
type Config struct {
	Name      string `toml:"name" yaml:"name"`
	Backend   string `toml:"backend" yaml:"backend"`
	Chip      string `toml:"chip" yaml:"chip"`
	Line      int    `toml:"line" yaml:"line"`
	Bias      string `toml:"bias" yaml:"bias"`
	Direction string `toml:"direction" yaml:"direction"`

	DebounceMs   uint64 `toml:"debounce_ms" yaml:"debounce_ms"`
	HoldMs       uint64 `toml:"hold_ms" yaml:"hold_ms"`
	ClickGroupMs uint64 `toml:"click_group_ms" yaml:"click_group_ms"`
	RepeatMs     uint64 `toml:"repeat_ms" yaml:"repeat_ms"`

	PollMs      int64 `toml:"poll_ms" yaml:"poll_ms"`
	HeartbeatMs int64 `toml:"heartbeat_ms" yaml:"heartbeat_ms"`

	MQTT    MQTTConfig    `toml:"mqtt" yaml:"mqtt"`
	HTTP    string        `toml:"http" yaml:"http"`
	HomeKit HomeKitConfig `toml:"homekit" yaml:"homekit"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string `toml:"broker" yaml:"broker"`
	ClientID string `toml:"client_id" yaml:"client_id"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	Buffer   int    `toml:"buffer" yaml:"buffer"`
}

// HomeKitConfig holds the optional HomeKit bridge settings.
type HomeKitConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled"`
	Pin         string `toml:"pin" yaml:"pin"`
	Port        string `toml:"port" yaml:"port"`
	StoragePath string `toml:"storage_path" yaml:"storage_path"`
}

// DefaultConfig returns the configuration used when no file or flag says otherwise.
func DefaultConfig() *Config {
	t := logic.DefaultTiming()
	return &Config{
		Name:         "button",
		Backend:      pin.BackendChip,
		Chip:         pin.DefaultChip,
		Line:         pin.DefaultLine,
		Bias:         "pull-up",
		Direction:    "reverse",
		DebounceMs:   t.Debounce,
		HoldMs:       t.Hold,
		ClickGroupMs: t.ClickGroup,
		RepeatMs:     t.Repeat,
		PollMs:       5,
		HeartbeatMs:  15 * 60 * 1000,
		MQTT: MQTTConfig{
			Broker: "tcp://localhost:1883",
			Buffer: 256,
		},
		HTTP: ":8080",
		HomeKit: HomeKitConfig{
			Pin:         "00102003",
			StoragePath: "/var/lib/button-sensor/homekit",
		},
		LogLevel: "info",
	}
}

// Timing returns the detector timing described by c.
func (c *Config) Timing() logic.Timing {
	return logic.Timing{
		Debounce:   c.DebounceMs,
		Hold:       c.HoldMs,
		ClickGroup: c.ClickGroupMs,
		Repeat:     c.RepeatMs,
	}
}

// Poll returns the sampling interval.
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval; zero disables it.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Level parses LogLevel, defaulting to info when empty.
func (c *Config) Level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(c.LogLevel)
}

// Validate checks c for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Name == "" || strings.ContainsAny(c.Name, "/+#") {
		problems = append(problems, fmt.Sprintf("name %q must be non-empty and free of MQTT wildcards", c.Name))
	}
	switch c.Backend {
	case pin.BackendChip, pin.BackendRPIO, pin.BackendFake:
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if c.Line < 0 {
		problems = append(problems, "line must be >= 0")
	}
	if _, err := pin.ParseBias(c.Bias); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := pin.ParseDirection(c.Direction); err != nil {
		problems = append(problems, err.Error())
	}
	if c.PollMs <= 0 {
		problems = append(problems, "poll_ms must be > 0")
	}
	if c.HeartbeatMs < 0 {
		problems = append(problems, "heartbeat_ms must be >= 0")
	}
	if c.HoldMs == 0 {
		problems = append(problems, "hold_ms must be > 0")
	}
	if c.ClickGroupMs == 0 {
		problems = append(problems, "click_group_ms must be > 0")
	}
	if c.HomeKit.Enabled && len(c.HomeKit.Pin) != 8 {
		problems = append(problems, "homekit pin must be 8 digits")
	}
	if _, err := c.Level(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
