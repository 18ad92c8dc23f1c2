// Package kafka publishes conversion completion events so downstream
// consumers learn when a new JSON document is available.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/dscovr-mag-etl/internal/config"
	"github.com/couchcryptid/dscovr-mag-etl/internal/converter"
)

// Notifier produces completion events to a Kafka topic.
// It implements converter.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// ConversionCompleted publishes one completion event.
func (n *Notifier) ConversionCompleted(ctx context.Context, report converter.Report) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message keyed by the
// output path, so repeat conversions of the same document land in one
// partition in order.
func serializeToMessage(report converter.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize conversion report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.OutputPath),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "records", Value: []byte(strconv.Itoa(report.Records))},
			{Key: "completed_at", Value: []byte(report.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
