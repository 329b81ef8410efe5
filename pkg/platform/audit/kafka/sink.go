// Package kafka streams audit events to a Kafka topic so downstream
// consumers (SIEM, moderation dashboards) can follow enforcement in real time.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "gatekeeper/pkg/platform/audit"
)

// Sink implements audit.Store by producing one record per event, keyed by
// guild so a guild's events stay ordered within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. The client is lazy: brokers are dialled
// on first produce.
func New(brokers []string, topic string, opts ...kgo.Opt) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerLinger(50 * time.Millisecond),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

type payload struct {
	ID        string            `json:"id"`
	Category  string            `json:"category"`
	Timestamp string            `json:"timestamp"`
	GuildID   string            `json:"guild_id"`
	UserID    string            `json:"user_id,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	Action    string            `json:"action"`
	Reason    string            `json:"reason,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Record builds the Kafka record for an event.
func Record(topic string, event audit.Event) (*kgo.Record, error) {
	body, err := json.Marshal(payload{
		ID:        event.ID,
		Category:  string(event.Category()),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		GuildID:   event.GuildID,
		UserID:    event.UserID,
		ActorID:   event.ActorID,
		Action:    event.Action,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Metadata:  event.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit record: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.GuildID),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category())},
		},
		Timestamp: event.Timestamp,
	}, nil
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	rec, err := Record(s.topic, event)
	if err != nil {
		return err
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Sink) Close() {
	s.client.Close()
}
