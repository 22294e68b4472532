package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/button-sensor/internal/logic"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, logic.DefaultTiming(), cfg.Timing())
	assert.Equal(t, 5*time.Millisecond, cfg.Poll())
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, level)
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
name = "hall"
backend = "rpio"
line = 27
direction = "normal"
hold_ms = 800
click_group_ms = 350

[mqtt]
broker = "tcp://broker:1883"
username = "sensor"

[homekit]
enabled = true
pin = "12344321"
`)
	cfg, err := Parse(data, ".toml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "hall", cfg.Name)
	assert.Equal(t, "rpio", cfg.Backend)
	assert.Equal(t, 27, cfg.Line)
	assert.Equal(t, "normal", cfg.Direction)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "sensor", cfg.MQTT.Username)
	assert.True(t, cfg.HomeKit.Enabled)

	timing := cfg.Timing()
	assert.Equal(t, uint64(60), timing.Debounce, "unset fields keep defaults")
	assert.Equal(t, uint64(800), timing.Hold)
	assert.Equal(t, uint64(350), timing.ClickGroup)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
name: porch
debounce_ms: 25
log_level: debug
mqtt:
  broker: tcp://10.0.0.2:1883
  buffer: 32
`)
	cfg, err := Parse(data, ".yml")
	require.NoError(t, err)

	assert.Equal(t, "porch", cfg.Name)
	assert.Equal(t, uint64(25), cfg.DebounceMs)
	assert.Equal(t, 32, cfg.MQTT.Buffer)
	assert.Equal(t, "reverse", cfg.Direction)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, level)
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := Parse([]byte(`{}`), ".ini")
	assert.Error(t, err)
}

func TestParseRejectsBrokenTOML(t *testing.T) {
	_, err := Parse([]byte(`name = `), ".toml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"wildcard name", func(c *Config) { c.Name = "a/#" }},
		{"backend", func(c *Config) { c.Backend = "spi" }},
		{"line", func(c *Config) { c.Line = -1 }},
		{"bias", func(c *Config) { c.Bias = "sideways" }},
		{"direction", func(c *Config) { c.Direction = "up" }},
		{"poll", func(c *Config) { c.PollMs = 0 }},
		{"heartbeat", func(c *Config) { c.HeartbeatMs = -1 }},
		{"hold", func(c *Config) { c.HoldMs = 0 }},
		{"click group", func(c *Config) { c.ClickGroupMs = 0 }},
		{"homekit pin", func(c *Config) { c.HomeKit.Enabled = true; c.HomeKit.Pin = "123" }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.toml")
	require.NoError(t, os.WriteFile(path, []byte(`name = "desk"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "desk", cfg.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_ms: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWatcherDeliversReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.toml")
	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 500\n"), 0o644))

	w, err := Watch(path, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 900\n"), 0o644))

	select {
	case cfg := <-w.Changes():
		assert.Equal(t, uint64(900), cfg.HoldMs)
	case err := <-w.Errors():
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherReportsInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.toml")
	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 500\n"), 0o644))

	w, err := Watch(path, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 0\n"), 0o644))

	select {
	case cfg := <-w.Changes():
		t.Fatalf("invalid config should not be delivered: %+v", cfg)
	case err := <-w.Errors():
		assert.ErrorIs(t, err, ErrInvalidConfig)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "button.toml")
	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 500\n"), 0o644))

	w, err := Watch(path, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("hold_ms = 0\n"), 0o644))

	select {
	case cfg := <-w.Changes():
		t.Fatalf("unexpected reload: %+v", cfg)
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(4 * reloadDelay):
	}
}

func TestWatcherAppliesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.toml")
	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 900\n"), 0o644))

	w, err := Watch(path, func(c *Config) {
		c.HoldMs = 1500
		c.DebounceMs = 30
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 900\nlog_level = \"debug\"\n"), 0o644))

	select {
	case cfg := <-w.Changes():
		assert.Equal(t, uint64(1500), cfg.HoldMs)
		assert.Equal(t, uint64(30), cfg.DebounceMs)
		assert.Equal(t, "debug", cfg.LogLevel)
	case err := <-w.Errors():
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherCloseEndsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.toml")
	require.NoError(t, os.WriteFile(path, []byte("hold_ms = 500\n"), 0o644))

	w, err := Watch(path, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for range w.Errors() {
		}
		close(done)
	}()

	require.NoError(t, w.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Errors channel still open after Close")
	}
}
