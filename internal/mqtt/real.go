package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Name       string // button name used in topics
	BufferSize int
}

// client is the subset of paho.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client client
	topic  string
	system string

	mu           sync.Mutex
	out          *outbox[message]
	warned       bool // overflow already logged since the last replay
	wasConnected bool
}

// NewRealPublisher creates a publisher for the given broker. It waits briefly
// for the first connection; if that does not complete the client keeps
// retrying in the background and messages are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	p := newPublisher(nil, o)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientID := o.ClientID
	if clientID == "" {
		clientID = "button-sensor-" + o.Name
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(clientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.system, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt: connection lost")
		})

	c := paho.NewClient(opts)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.WithField("broker", o.Broker).Warn("mqtt: connection pending, buffering messages")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(c client, o Options) *RealPublisher {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RealPublisher{
		client: c,
		topic:  Topic(o.Name),
		system: TopicSystem(o.Name),
		out:    newOutbox[message](size),
	}
}

// Publish sends a gesture event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// Gestures are fire-and-forget.
	if err := p.send(message{topic: p.topic, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// Lifecycle events go out at least once.
	msg := message{topic: p.system, payload: payload, qos: 1, retained: event.Retained}
	if err := p.send(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) send(msg message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		p.enqueue(msg)
		return nil
	}

	if err := p.publishLocked(msg); err != nil {
		p.enqueue(msg)
		return err
	}
	return nil
}

func (p *RealPublisher) enqueue(msg message) {
	if p.out.add(msg) && !p.warned {
		log.WithField("topic", msg.topic).Warn("mqtt: outbox full, dropping oldest")
		p.warned = true
	}
}

func (p *RealPublisher) publishLocked(msg message) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

// onConnect replays buffered messages and announces a reconnection.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs, dropped := p.out.take()
	p.warned = false
	if len(msgs) > 0 || dropped > 0 {
		log.WithFields(log.Fields{"replayed": len(msgs), "dropped": dropped}).Info("mqtt: replaying buffered messages")
	}

	if p.wasConnected {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		msgs = append([]message{{topic: p.system, payload: payload, qos: 1}}, msgs...)
	}
	p.wasConnected = true

	for i, msg := range msgs {
		if err := p.publishLocked(msg); err != nil {
			log.WithError(err).Warn("mqtt: replay failed, re-buffering")
			for _, rest := range msgs[i:] {
				p.enqueue(rest)
			}
			return
		}
	}
}

// Buffered reports how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
