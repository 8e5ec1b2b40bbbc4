package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const (
	// DefaultTopic is where auth events are published unless configured otherwise
	DefaultTopic = "walletauth.events"

	EventLogin  = "login"
	EventLogout = "logout"
)

// AuthEvent represents a login or logout
type AuthEvent struct {
	Type     string    `json:"type"`
	Identity string    `json:"identity"`
	Session  string    `json:"session_ref"`
	At       time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	clock     ports.Clock
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topic string, clock ports.Clock) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		clock:     clock,
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, identity core.Identity, sessionRef string) error {
	return p.publish(ctx, EventLogin, identity, sessionRef)
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identity core.Identity, sessionRef string) error {
	return p.publish(ctx, EventLogout, identity, sessionRef)
}

func (p *WatermillPublisher) publish(ctx context.Context, eventType string, identity core.Identity, sessionRef string) error {
	event := AuthEvent{
		Type:     eventType,
		Identity: identity.String(),
		Session:  sessionRef,
		At:       p.clock.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", eventType)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishLogin(context.Context, core.Identity, string) error  { return nil }
func (NopPublisher) PublishLogout(context.Context, core.Identity, string) error { return nil }
