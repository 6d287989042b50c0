package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"levelsense/internal/level"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client     paho.Client
	stateTopic string
	eventTopic string
}

// NewRealPublisher connects to the broker and returns a publisher for
// the given topic prefix. Connection trouble after the initial connect
// is handled by the client's auto-reconnect; only the first connect is
// allowed to fail here so the caller can decide to run without MQTT.
func NewRealPublisher(broker, topicPrefix, clientID string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client:     client,
		stateTopic: topicPrefix + StateSuffix,
		eventTopic: topicPrefix + EventSuffix,
	}, nil
}

// PublishState sends the retained state document.
func (p *RealPublisher) PublishState(snap level.Snapshot) error {
	payload, err := FormatState(snap)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}

	// QoS 0, retained: the broker keeps only the newest state and a
	// lost intermediate update is superseded anyway.
	token := p.client.Publish(p.stateTopic, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish state timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	return nil
}

// PublishEvent sends a transition event.
func (p *RealPublisher) PublishEvent(event Event, snap level.Snapshot) error {
	payload, err := FormatEvent(event, snap)
	if err != nil {
		return fmt.Errorf("format event: %w", err)
	}

	// QoS 1, not retained: edges fire once and should not be lost.
	token := p.client.Publish(p.eventTopic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish event timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds to flush in-flight work
	return nil
}
