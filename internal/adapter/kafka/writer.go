// Package kafka publishes generation audit records.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/lightning-map/internal/config"
	"github.com/couchcryptid/lightning-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces generation records to a Kafka topic.
// It implements pipeline.Recorder.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured audit topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Record publishes one generation record, keyed by product so a product's
// records stay ordered on one partition.
func (w *Writer) Record(ctx context.Context, rec domain.GenerationRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish generation record: %w", err)
	}
	w.logger.Debug("generation record published", "id", rec.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a GenerationRecord into a Kafka message.
func serializeToMessage(rec domain.GenerationRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize generation record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Product),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "outcome", Value: []byte(rec.Outcome)},
			{Key: "completed_at", Value: []byte(rec.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
