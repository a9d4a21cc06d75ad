// Package notify hands portal mutation events to the notification fan-out.
//
// The fan-out itself (mail, webhooks) lives outside Core. This package only
// serialises an Event and publishes it on the broker; delivery failures are
// reported to the caller and never undo the mutation that produced them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// Event describes one successful portal mutation.
type Event struct {
	Kind       resource.Kind `json:"kind"`
	Action     string        `json:"action"`
	EntityID   string        `json:"entity_id"`
	TenantID   string        `json:"tenant_id,omitempty"`
	ActorID    string        `json:"actor_id"`
	RequestID  string        `json:"request_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Publisher delivers events to the fan-out.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// messagePublisher is the subset of *mqtt.Client used here.
type messagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	QoS() byte
}

// MQTTPublisher publishes events to roofwatch/events/{kind}/{action}.
type MQTTPublisher struct {
	client messagePublisher
}

// NewMQTTPublisher creates a publisher over a connected broker client.
func NewMQTTPublisher(client *mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// Publish serialises ev as JSON and publishes it, not retained.
func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ev.Kind.Valid() || ev.Action == "" || ev.EntityID == "" {
		return fmt.Errorf("notify: incomplete event %q/%q", ev.Kind, ev.Action)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: encoding event: %w", err)
	}

	topic := mqtt.Topics{}.Event(string(ev.Kind), ev.Action)
	if err := p.client.Publish(topic, payload, p.client.QoS(), false); err != nil {
		return fmt.Errorf("notify: publishing %s: %w", topic, err)
	}
	return nil
}

// Discard is a Publisher that drops every event. Used when no broker is configured.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Event) error { return nil }
