// Command button-sensor watches a push button on a GPIO line, recognises
// clicks, multi-clicks and holds, and publishes them to MQTT and HomeKit.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/homekit"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/pin"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

// eventSink receives every gesture event alongside MQTT.
type eventSink interface {
	Handle(event logic.Event) bool
}

type options struct {
	cfg        *config.Config
	configPath string
	printState bool
	// flags re-applies the explicitly set command-line flags to c.
	flags func(c *config.Config)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags layers explicitly set flags over the config file, which is
// itself layered over config.DefaultConfig. The same flags are layered over
// every later reload of the file.
func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	def := config.DefaultConfig()
	fv := *def

	configPath := fs.String("config", "", "Config file (.toml, .yaml or .yml); reloaded on change")
	printState := fs.Bool("print-state", false, "Print current button state and exit")

	fs.StringVar(&fv.Name, "name", def.Name, "Button name used in MQTT topics")
	fs.StringVar(&fv.Backend, "backend", def.Backend, `GPIO backend: "gpiocdev", "rpio" or "fake"`)
	fs.StringVar(&fv.Chip, "chip", def.Chip, "GPIO chip (gpiocdev backend)")
	fs.IntVar(&fv.Line, "line", def.Line, "GPIO line / BCM pin number")
	fs.StringVar(&fv.Bias, "bias", def.Bias, `Input bias: "pull-up", "pull-down" or "none"`)
	fs.StringVar(&fv.Direction, "direction", def.Direction, `Polarity: "normal" (pressed = high) or "reverse" (pressed = low)`)
	poll := fs.Duration("poll", def.Poll(), "Sampling interval")
	debounce := fs.Duration("debounce", ms(def.DebounceMs), "Press debounce time")
	hold := fs.Duration("hold", ms(def.HoldMs), "Press duration that starts a hold")
	clickGroup := fs.Duration("click-group", ms(def.ClickGroupMs), "Quiet time that closes a click group")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat(), "Heartbeat interval (0 to disable)")
	fs.StringVar(&fv.MQTT.Broker, "broker", def.MQTT.Broker, "MQTT broker address")
	fs.StringVar(&fv.MQTT.Username, "mqtt-user", def.MQTT.Username, "MQTT username")
	fs.StringVar(&fv.MQTT.Password, "mqtt-pass", def.MQTT.Password, "MQTT password")
	fs.StringVar(&fv.HTTP, "http", def.HTTP, "HTTP status address (empty to disable)")
	fs.BoolVar(&fv.HomeKit.Enabled, "homekit", def.HomeKit.Enabled, "Expose the button to HomeKit")
	fs.StringVar(&fv.HomeKit.Pin, "homekit-pin", def.HomeKit.Pin, "HomeKit pairing PIN (8 digits)")
	fs.StringVar(&fv.LogLevel, "log-level", def.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		cfg = loaded
	}

	var set []string
	fs.Visit(func(f *flag.Flag) { set = append(set, f.Name) })
	overlay := func(c *config.Config) {
		for _, name := range set {
			switch name {
			case "name":
				c.Name = fv.Name
			case "backend":
				c.Backend = fv.Backend
			case "chip":
				c.Chip = fv.Chip
			case "line":
				c.Line = fv.Line
			case "bias":
				c.Bias = fv.Bias
			case "direction":
				c.Direction = fv.Direction
			case "poll":
				c.PollMs = poll.Milliseconds()
			case "debounce":
				c.DebounceMs = uint64(debounce.Milliseconds())
			case "hold":
				c.HoldMs = uint64(hold.Milliseconds())
			case "click-group":
				c.ClickGroupMs = uint64(clickGroup.Milliseconds())
			case "heartbeat":
				c.HeartbeatMs = heartbeat.Milliseconds()
			case "broker":
				c.MQTT.Broker = fv.MQTT.Broker
			case "mqtt-user":
				c.MQTT.Username = fv.MQTT.Username
			case "mqtt-pass":
				c.MQTT.Password = fv.MQTT.Password
			case "http":
				c.HTTP = fv.HTTP
			case "homekit":
				c.HomeKit.Enabled = fv.HomeKit.Enabled
			case "homekit-pin":
				c.HomeKit.Pin = fv.HomeKit.Pin
			case "log-level":
				c.LogLevel = fv.LogLevel
			}
		}
	}
	overlay(cfg)

	if err := cfg.Validate(); err != nil {
		return options{}, err
	}
	return options{cfg: cfg, configPath: *configPath, printState: *printState, flags: overlay}, nil
}

func ms(v uint64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func openSwitch(cfg *config.Config) (pin.Switch, error) {
	bias, err := pin.ParseBias(cfg.Bias)
	if err != nil {
		return pin.Switch{}, err
	}
	dir, err := pin.ParseDirection(cfg.Direction)
	if err != nil {
		return pin.Switch{}, err
	}
	in, err := pin.Open(cfg.Backend, cfg.Chip, cfg.Line, bias)
	if err != nil {
		return pin.Switch{}, fmt.Errorf("init gpio: %w", err)
	}
	return pin.NewSwitch(in, dir), nil
}

func printState(w io.Writer, name string, sw pin.Switch) error {
	state, err := sw.ReadState()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s: %s\n", name, state)
	return err
}

func run(opts options) error {
	cfg := opts.cfg
	if level, err := cfg.Level(); err == nil {
		log.SetLevel(level)
	}

	sw, err := openSwitch(cfg)
	if err != nil {
		return err
	}
	if c, ok := sw.IntoInner().(pin.Closer); ok {
		defer c.Close()
	}

	if opts.printState {
		return printState(os.Stdout, cfg.Name, sw)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Username:   cfg.MQTT.Username,
		Password:   cfg.MQTT.Password,
		Name:       cfg.Name,
		BufferSize: cfg.MQTT.Buffer,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Every timestamp from here on is derived from one monotonic uptime.
	clk := clock.NewSince()

	// The tracker exists before STARTUP so its snapshot can be published.
	tracker := status.NewTracker(clk.Start(), status.Config{
		Name:        cfg.Name,
		Backend:     cfg.Backend,
		Line:        cfg.Line,
		Direction:   cfg.Direction,
		PollMs:      cfg.PollMs,
		HeartbeatMs: cfg.HeartbeatMs,
		Timing:      cfg.Timing(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
		HomeKit:     cfg.HomeKit.Enabled,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", cfg.HTTP).Info("http status server listening")
	}

	var sink eventSink
	if cfg.HomeKit.Enabled {
		bridge, err := homekit.New(homekit.Options{
			Name:        cfg.Name,
			Pin:         cfg.HomeKit.Pin,
			Port:        cfg.HomeKit.Port,
			StoragePath: cfg.HomeKit.StoragePath,
		})
		if err != nil {
			return err
		}
		bridge.Start()
		defer bridge.Close()
		sink = bridge
		log.Info("homekit accessory advertised")
	}

	var reload <-chan *config.Config
	if opts.configPath != "" {
		w, err := config.Watch(opts.configPath, opts.flags)
		if err != nil {
			log.WithError(err).Warn("config watch disabled")
		} else {
			defer w.Close()
			reload = w.Changes()
			go func() {
				for err := range w.Errors() {
					log.WithError(err).Warn("config reload failed")
				}
			}()
		}
	}

	log.WithFields(log.Fields{
		"name":      cfg.Name,
		"backend":   cfg.Backend,
		"line":      cfg.Line,
		"direction": cfg.Direction,
		"poll":      cfg.Poll(),
		"timing":    fmt.Sprintf("%+v", cfg.Timing()),
		"broker":    cfg.MQTT.Broker,
		"heartbeat": cfg.Heartbeat(),
	}).Info("started")

	button := logic.NewButton(sw)
	button.SetTiming(cfg.Timing())

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(button, publisher, publisher, tracker, sink, cfg.Heartbeat(), clk.Now, ticker.C, sigCh, reload)
}

func runLoop(button *logic.Button, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, sink eventSink, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, reload <-chan *config.Config) error {
	startTime := now()
	detector := logic.NewDetector(button, startTime)
	var holdClicks uint32

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(detector.CurrentState(), detector.IsReady(), detector.EventCountsSnapshot(), holdClicks)
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     mqtt.EventShutdown,
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh()
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventShutdown, signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case cfg := <-reload:
			timing := cfg.Timing()
			detector.Reconfigure(timing)
			heartbeat = cfg.Heartbeat()
			if level, err := cfg.Level(); err == nil {
				log.SetLevel(level)
			}
			if tracker != nil {
				tracker.SetTiming(timing)
			}
			log.WithField("timing", fmt.Sprintf("%+v", timing)).Info("config reloaded, gesture state reset")

		case <-tick:
			t := now()
			events, err := detector.Process(t)
			if err != nil {
				log.WithError(err).Warn("gpio read error")
				if tracker != nil {
					tracker.RecordReadError()
				}
				continue
			}

			for _, event := range events {
				if event.Type == logic.EventHoldStart {
					holdClicks = event.HoldClicks
				}
				log.WithField("state", event.State).Infof("event: %s", event)
				if err := publisher.Publish(event); err != nil {
					log.WithError(err).Warn("publish error")
				}
				if sink != nil {
					sink.Handle(event)
				}
				if tracker != nil {
					tracker.RecordEvent(event)
				}
			}

			if hb := detector.CheckHeartbeat(t, heartbeat); hb != nil {
				log.WithFields(log.Fields{
					"uptime":     hb.Uptime,
					"press":      hb.Counts.Press,
					"clicks":     hb.Counts.Clicks,
					"hold_start": hb.Counts.HoldStart,
				}).Info("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     mqtt.EventHeartbeat,
				}
				if tracker != nil {
					refresh()
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventHeartbeat, "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.WithError(err).Warn("heartbeat publish error")
				}
			}

			refresh()
		}
	}
}
