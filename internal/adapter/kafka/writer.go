package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces one message per incident record to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish serializes every record of the run and writes them in a single
// WriteMessages call. Records hash to partitions by ID, so re-runs over the
// same input land on the same partitions.
func (w *Writer) Publish(ctx context.Context, run domain.AnalysisRun) error {
	if len(run.Records) == 0 {
		w.logger.Debug("no records to publish", "run_id", run.ID)
		return nil
	}
	msgs := make([]kafkago.Message, len(run.Records))
	for i := range run.Records {
		msg, err := serializeToMessage(run, run.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an IncidentRecord into a Kafka message.
func serializeToMessage(run domain.AnalysisRun, record domain.IncidentRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize incident record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "chain_type", Value: []byte(record.Kind)},
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "generated_at", Value: []byte(run.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
