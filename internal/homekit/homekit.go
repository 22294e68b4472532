// Package homekit exposes the button to Apple HomeKit as a stateless
// programmable switch.
package homekit

import (
	"fmt"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/logic"
)

// Options configures the HomeKit bridge.
type Options struct {
	Name        string
	Pin         string
	Port        string
	StoragePath string
}

// Trigger fires a programmable switch event.
type Trigger interface {
	SetValue(int)
}

// Bridge forwards recognised gestures to HomeKit.
type Bridge struct {
	trigger   Trigger
	transport hc.Transport
}

// New creates the accessory and its IP transport. Call Start to begin
// advertising.
func New(o Options) (*Bridge, error) {
	acc := accessory.New(accessory.Info{
		Name:         o.Name,
		Manufacturer: "sweeney",
		Model:        "button-sensor",
	}, accessory.TypeProgrammableSwitch)

	sw := service.NewStatelessProgrammableSwitch()
	acc.AddService(sw.Service)

	t, err := hc.NewIPTransport(hc.Config{
		Pin:         o.Pin,
		Port:        o.Port,
		StoragePath: o.StoragePath,
	}, acc)
	if err != nil {
		return nil, fmt.Errorf("homekit transport: %w", err)
	}

	b := newBridge(sw.ProgrammableSwitchEvent)
	b.transport = t
	return b, nil
}

func newBridge(trigger Trigger) *Bridge {
	return &Bridge{trigger: trigger}
}

// PressFor maps a gesture event to a HomeKit programmable switch value.
// Only completed single and double click groups and the start of a hold
// have a HomeKit equivalent.
func PressFor(e logic.Event) (int, bool) {
	switch e.Type {
	case logic.EventClicks:
		switch e.Count {
		case 1:
			return characteristic.ProgrammableSwitchEventSinglePress, true
		case 2:
			return characteristic.ProgrammableSwitchEventDoublePress, true
		}
	case logic.EventHoldStart:
		return characteristic.ProgrammableSwitchEventLongPress, true
	}
	return 0, false
}

// Handle fires the HomeKit event for e, if it has one. It reports whether
// anything was sent.
func (b *Bridge) Handle(e logic.Event) bool {
	v, ok := PressFor(e)
	if !ok {
		return false
	}
	log.WithFields(log.Fields{"event": e.Type, "value": v}).Debug("homekit: switch event")
	b.trigger.SetValue(v)
	return true
}

// Start advertises the accessory in the background.
func (b *Bridge) Start() {
	if b.transport == nil {
		return
	}
	go b.transport.Start()
}

// Close stops advertising and waits for the transport to finish.
func (b *Bridge) Close() error {
	if b.transport == nil {
		return nil
	}
	<-b.transport.Stop()
	return nil
}
