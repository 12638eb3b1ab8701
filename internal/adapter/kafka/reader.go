package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/config"
	"github.com/couchcryptid/nuisance-watch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// drainTimeout bounds how long ExtractBatch waits for additional
// messages after the first one, so a trickling topic still yields
// small batches promptly.
const drainTimeout = 250 * time.Millisecond

// Reader consumes complaint record messages from the source topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger}
}

// ExtractBatch fetches up to batchSize messages. It blocks on the first
// message until one arrives or the context is cancelled, then drains
// whatever else is immediately available. Offsets are committed only
// through each message's Commit callback, after the window containing
// it has been published.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.SourceMessage, error) {
	msgs := make([]domain.SourceMessage, 0, batchSize)

	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, r.mapMessage(first))

	for len(msgs) < batchSize {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		msg, err := r.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if ctx.Err() != nil {
				break
			}
			r.logger.Warn("fetch message failed mid-batch", "error", err)
			break
		}
		msgs = append(msgs, r.mapMessage(msg))
	}

	return msgs, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into a domain SourceMessage with
// a commit callback bound to this reader's consumer group.
func (r *Reader) mapMessage(msg kafkago.Message) domain.SourceMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.SourceMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}
