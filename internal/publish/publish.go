package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ivlev/stagekeys/internal/config"
	"github.com/ivlev/stagekeys/internal/session"
	"github.com/ivlev/stagekeys/internal/transform"
)

// Connect dials the broker described by cfg.
func Connect(cfg config.MQTT) (mqtt.Client, error) {
	options := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(options)

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.URL, err)
	}
	return client, nil
}

// Message is the JSON payload published for each session event
type Message struct {
	Kind         string             `json:"kind"`
	ObjectID     string             `json:"objectId,omitempty"`
	KeyframeID   string             `json:"keyframeId,omitempty"`
	Selected     string             `json:"selected,omitempty"`
	Cursor       int                `json:"cursor"`
	TransitionMs int64              `json:"transitionMs"`
	Completed    bool               `json:"completed,omitempty"`
	States       transform.Snapshot `json:"states,omitempty"`
}

// Publisher forwards session events to an MQTT topic tree: each event goes
// to <topic>/<kind>.
type Publisher struct {
	client mqtt.Client
	topic  string
	QoS    byte
}

func New(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

func NewMessage(ev session.Event) Message {
	return Message{
		Kind:         ev.Kind.String(),
		ObjectID:     ev.ObjectID,
		KeyframeID:   ev.KeyframeID,
		Selected:     ev.Selected,
		Cursor:       ev.Cursor,
		TransitionMs: ev.Transition.Milliseconds(),
		Completed:    ev.Completed,
		States:       ev.Snapshot,
	}
}

// Observe is a session.Observer. It runs under the session lock, so it never
// waits for the broker.
func (p *Publisher) Observe(ev session.Event) {
	b, err := json.Marshal(NewMessage(ev))
	if err != nil {
		log.Printf("[!] Could not encode %s event: %v", ev.Kind, err)
		return
	}

	topic := p.topic + "/" + ev.Kind.String()
	token := p.client.Publish(topic, p.QoS, false, b)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("[!] Publish to %s failed: %v", topic, token.Error())
		}
	}()
}

// Close disconnects, allowing in-flight messages 250ms to drain.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
