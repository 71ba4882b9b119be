package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/realty-search-service/internal/config"
	"github.com/couchcryptid/realty-search-service/internal/domain"
)

// Publisher produces one message per property of a completed search.
// It implements pipeline.SnapshotPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured listings topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSnapshot serializes every property in snap and writes them in a
// single WriteMessages call. Messages are keyed by property ID so updates to
// the same listing land on the same partition.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap domain.SearchSnapshot) error {
	if len(snap.Properties) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Properties))
	for i := range snap.Properties {
		msg, err := serializeToMessage(snap, snap.Properties[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.SearchID, err)
	}
	p.logger.Debug("snapshot published", "search_id", snap.SearchID, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals one property of a snapshot into a Kafka message.
func serializeToMessage(snap domain.SearchSnapshot, prop domain.Property) (kafkago.Message, error) {
	data, err := json.Marshal(prop)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize property %s: %w", prop.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(prop.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "search_id", Value: []byte(snap.SearchID)},
			{Key: "location", Value: []byte(snap.Location)},
			{Key: "source", Value: []byte(snap.Source)},
			{Key: "searched_at", Value: []byte(snap.SearchedAt.Format(time.RFC3339))},
		},
	}, nil
}
