package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

func snapshotCluster() *domain.ComplaintCluster {
	baseline := 2
	change := 250
	return &domain.ComplaintCluster{
		ID:              "noise-commercial-6a1f04c2",
		Headline:        "7 noise complaints pile up at 80 Wooster St",
		DisplayLocation: "80 Wooster St",
		Street:          "Wooster St",
		NeighborhoodKey: "10012",
		NeighborhoodID:  "soho",
		Category:        "noise-commercial",
		SignalLabel:     "nightlife noise",
		Severity:        domain.SeverityHigh,
		Count:           7,
		Commercial:      true,
		Trend:           domain.TrendSpike,
		BaselineCount:   &baseline,
		PercentChange:   &change,
		Members: []domain.RawComplaintRecord{
			{ID: "rec-1"}, {ID: "rec-2"},
		},
	}
}

func TestSerializeCluster(t *testing.T) {
	msg, err := serializeCluster(snapshotCluster(), generatedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("noise-commercial-6a1f04c2"), msg.Key)
	assert.Equal(t, "cluster", headerValue(msg, "message_type"))
	assert.Equal(t, "spike", headerValue(msg, "trend"))
	assert.Equal(t, "high", headerValue(msg, "severity"))
	assert.Equal(t, "2026-08-23T00:00:00Z", headerValue(msg, "generated_at"))

	var snap clusterSnapshot
	require.NoError(t, json.Unmarshal(msg.Value, &snap))
	assert.Equal(t, "noise-commercial-6a1f04c2", snap.ID)
	assert.Equal(t, "80 Wooster St", snap.DisplayLocation)
	assert.Equal(t, "soho", snap.NeighborhoodID)
	assert.Equal(t, 7, snap.Count)
	assert.Equal(t, domain.TrendSpike, snap.Trend)
	require.NotNil(t, snap.BaselineCount)
	assert.Equal(t, 2, *snap.BaselineCount)
	require.NotNil(t, snap.PercentChange)
	assert.Equal(t, 250, *snap.PercentChange)
	assert.Equal(t, []string{"rec-1", "rec-2"}, snap.MemberIDs,
		"members collapse to IDs, raw rows never reach the sink")
	assert.NotContains(t, string(msg.Value), "created_at")
}

func TestSerializeCluster_OmitsAbsentBaseline(t *testing.T) {
	c := snapshotCluster()
	c.BaselineCount = nil
	c.PercentChange = nil

	msg, err := serializeCluster(c, generatedAt)
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), "baseline_count")
	assert.NotContains(t, string(msg.Value), "percent_change")
}

func TestSerializeRoundup(t *testing.T) {
	clusters := []*domain.ComplaintCluster{
		{ID: "rodent-aa11bb22", NeighborhoodKey: "10002", NeighborhoodID: "lower-east-side", Count: 9},
		{ID: "noise-residential-cc33dd44", NeighborhoodKey: "10002", NeighborhoodID: "lower-east-side", Count: 6},
	}

	msg, err := serializeRoundup("lower-east-side", clusters, generatedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("roundup-lower-east-side"), msg.Key)
	assert.Equal(t, "roundup", headerValue(msg, "message_type"))

	var summary roundupSummary
	require.NoError(t, json.Unmarshal(msg.Value, &summary))
	assert.Equal(t, "lower-east-side", summary.NeighborhoodID)
	assert.Equal(t, "10002", summary.NeighborhoodKey)
	assert.Equal(t, []string{"rodent-aa11bb22", "noise-residential-cc33dd44"}, summary.ClusterIDs)
	assert.Equal(t, 15, summary.TotalCount)
	assert.Equal(t, generatedAt, summary.GeneratedAt)
}

func TestMapMessage(t *testing.T) {
	r := &Reader{}
	msg := r.mapMessage(kafkago.Message{
		Key:       []byte("rec-1"),
		Value:     []byte(`{"unique_key":"rec-1"}`),
		Topic:     "raw-complaint-records",
		Partition: 3,
		Offset:    42,
		Time:      generatedAt,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("collector")},
		},
	})

	assert.Equal(t, []byte("rec-1"), msg.Key)
	assert.Equal(t, "raw-complaint-records", msg.Topic)
	assert.Equal(t, 3, msg.Partition)
	assert.Equal(t, int64(42), msg.Offset)
	assert.Equal(t, generatedAt, msg.Timestamp)
	assert.Equal(t, map[string]string{"source": "collector"}, msg.Headers)
	assert.NotNil(t, msg.Commit)
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
