package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/config"
	"github.com/couchcryptid/nuisance-watch/internal/domain"
	"github.com/couchcryptid/nuisance-watch/internal/engine"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes window results to the sink topic: one snapshot
// message per significant cluster plus one summary message per roundup
// neighborhood. It implements pipeline.ResultPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishResult serializes and publishes a window result in a single
// WriteMessages call, so a partially written window can only happen if
// the broker itself fails the batch.
func (w *Writer) PublishResult(ctx context.Context, res engine.Result) error {
	msgs := make([]kafkago.Message, 0, len(res.Clusters)+len(res.Partition.Roundups))

	for _, c := range res.Clusters {
		msg, err := serializeCluster(c, res.GeneratedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	// Deterministic roundup order keeps replayed windows byte-comparable.
	neighborhoods := make([]string, 0, len(res.Partition.Roundups))
	for id := range res.Partition.Roundups {
		neighborhoods = append(neighborhoods, id)
	}
	sort.Strings(neighborhoods)

	for _, id := range neighborhoods {
		msg, err := serializeRoundup(id, res.Partition.Roundups[id], res.GeneratedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) == 0 {
		return nil
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// clusterSnapshot is the sink-topic form of a cluster. Members collapse
// to their record IDs: downstream consumers need cluster identity and
// counts, not a re-broadcast of raw complaint rows.
type clusterSnapshot struct {
	ID              string          `json:"id"`
	Headline        string          `json:"headline"`
	DisplayLocation string          `json:"display_location"`
	Street          string          `json:"street,omitempty"`
	NeighborhoodKey string          `json:"neighborhood_key"`
	NeighborhoodID  string          `json:"neighborhood_id"`
	Category        string          `json:"category"`
	SignalLabel     string          `json:"signal_label"`
	Severity        domain.Severity `json:"severity"`
	Count           int             `json:"count"`
	Commercial      bool            `json:"commercial"`
	Trend           domain.Trend    `json:"trend"`
	BaselineCount   *int            `json:"baseline_count,omitempty"`
	PercentChange   *int            `json:"percent_change,omitempty"`
	MemberIDs       []string        `json:"member_ids"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// roundupSummary announces that a neighborhood's clusters should be
// covered by one consolidated narrative.
type roundupSummary struct {
	NeighborhoodID  string    `json:"neighborhood_id"`
	NeighborhoodKey string    `json:"neighborhood_key"`
	ClusterIDs      []string  `json:"cluster_ids"`
	TotalCount      int       `json:"total_count"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func serializeCluster(c *domain.ComplaintCluster, generatedAt time.Time) (kafkago.Message, error) {
	memberIDs := make([]string, len(c.Members))
	for i, m := range c.Members {
		memberIDs[i] = m.ID
	}

	snap := clusterSnapshot{
		ID:              c.ID,
		Headline:        c.Headline,
		DisplayLocation: c.DisplayLocation,
		Street:          c.Street,
		NeighborhoodKey: c.NeighborhoodKey,
		NeighborhoodID:  c.NeighborhoodID,
		Category:        c.Category,
		SignalLabel:     c.SignalLabel,
		Severity:        c.Severity,
		Count:           c.Count,
		Commercial:      c.Commercial,
		Trend:           c.Trend,
		BaselineCount:   c.BaselineCount,
		PercentChange:   c.PercentChange,
		MemberIDs:       memberIDs,
		GeneratedAt:     generatedAt,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cluster snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(c.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "message_type", Value: []byte("cluster")},
			{Key: "trend", Value: []byte(c.Trend.String())},
			{Key: "severity", Value: []byte(c.Severity.String())},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}

func serializeRoundup(neighborhoodID string, clusters []*domain.ComplaintCluster, generatedAt time.Time) (kafkago.Message, error) {
	summary := roundupSummary{
		NeighborhoodID: neighborhoodID,
		ClusterIDs:     make([]string, len(clusters)),
		GeneratedAt:    generatedAt,
	}
	for i, c := range clusters {
		summary.NeighborhoodKey = c.NeighborhoodKey
		summary.ClusterIDs[i] = c.ID
		summary.TotalCount += c.Count
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize roundup summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte("roundup-" + neighborhoodID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "message_type", Value: []byte("roundup")},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
