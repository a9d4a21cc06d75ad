package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/roofwatch-core/internal/resource"
)

type sentMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakeBroker struct {
	sent []sentMessage
	err  error
}

func (f *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{topic, payload, qos, retained})
	return nil
}

func (f *fakeBroker) QoS() byte { return 1 }

func TestMQTTPublisher_Publish(t *testing.T) {
	broker := &fakeBroker{}
	p := &MQTTPublisher{client: broker}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Kind:       resource.KindInterventionFile,
		Action:     "delete",
		EntityID:   "file-1",
		TenantID:   "t1",
		ActorID:    "u-client",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(broker.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(broker.sent))
	}

	msg := broker.sent[0]
	if msg.topic != "roofwatch/events/intervention_file/delete" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.retained {
		t.Error("events must not be retained")
	}
	if msg.qos != 1 {
		t.Errorf("qos = %d, want 1", msg.qos)
	}

	var got Event
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if got.EntityID != "file-1" || got.ActorID != "u-client" || !got.OccurredAt.Equal(at) {
		t.Errorf("payload = %+v", got)
	}
}

func TestMQTTPublisher_StampsTime(t *testing.T) {
	broker := &fakeBroker{}
	p := &MQTTPublisher{client: broker}

	if err := p.Publish(context.Background(), Event{Kind: resource.KindBuilding, Action: "create", EntityID: "bld-1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var got Event
	_ = json.Unmarshal(broker.sent[0].payload, &got)
	if got.OccurredAt.IsZero() {
		t.Error("OccurredAt not stamped")
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		ev      Event
		broker  error
		wantErr error
	}{
		{
			name:    "broker down",
			ctx:     context.Background(),
			ev:      Event{Kind: resource.KindBuilding, Action: "update", EntityID: "bld-1"},
			broker:  mqtt.ErrNotConnected,
			wantErr: mqtt.ErrNotConnected,
		},
		{
			name:    "cancelled context",
			ctx:     cancelled,
			ev:      Event{Kind: resource.KindBuilding, Action: "update", EntityID: "bld-1"},
			wantErr: context.Canceled,
		},
		{
			name: "unknown kind",
			ctx:  context.Background(),
			ev:   Event{Kind: resource.Kind("roof"), Action: "update", EntityID: "r-1"},
		},
		{
			name: "missing entity",
			ctx:  context.Background(),
			ev:   Event{Kind: resource.KindBasin, Action: "delete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := &fakeBroker{err: tt.broker}
			err := (&MQTTPublisher{client: broker}).Publish(tt.ctx, tt.ev)
			if err == nil {
				t.Fatal("Publish() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
			if len(broker.sent) != 0 {
				t.Error("nothing should be sent on error")
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	if err := (Discard{}).Publish(context.Background(), Event{}); err != nil {
		t.Errorf("Discard.Publish() error = %v", err)
	}
}
