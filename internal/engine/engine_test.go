package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/domain"
	"github.com/couchcryptid/nuisance-watch/internal/engine"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windowStart = time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

func record(id, typeLabel, address, street, zip string) domain.RawComplaintRecord {
	return domain.RawComplaintRecord{
		ID:        id,
		CreatedAt: windowStart.Add(time.Duration(len(id)) * time.Hour),
		TypeLabel: typeLabel,
		Address:   address,
		Street:    street,
		ZipCode:   zip,
	}
}

// commercialNoiseWeek returns n complaints about the same venue.
func commercialNoiseWeek(n int) []domain.RawComplaintRecord {
	records := make([]domain.RawComplaintRecord, n)
	for i := range records {
		records[i] = record(fmt.Sprintf("venue-%d", i), "Noise - Commercial", "80 Wooster St", "Wooster St", "10012")
	}
	return records
}

type stubBaselines struct {
	counts     map[string]int
	err        error
	requested  []string
	fetchCalls int
}

func (s *stubBaselines) FetchBaselines(_ context.Context, clusterIDs []string) (map[string]int, error) {
	s.fetchCalls++
	s.requested = append(s.requested, clusterIDs...)
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[string]int, len(clusterIDs))
	for _, id := range clusterIDs {
		if count, ok := s.counts[id]; ok {
			result[id] = count
		}
	}
	return result, nil
}

func defaultOptions() engine.Options {
	return engine.Options{
		Registry:  domain.DefaultRegistry(),
		ZipIndex:  domain.DefaultZipIndex(),
		Threshold: 5,
	}
}

func TestRun_SingleVenueWeek(t *testing.T) {
	res, err := engine.Run(context.Background(), commercialNoiseWeek(7), defaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, "80 Wooster St", c.DisplayLocation)
	assert.Equal(t, 7, c.Count)
	assert.Len(t, c.Members, 7)
	assert.True(t, c.Commercial)
	assert.Equal(t, "noise-commercial", c.Category)
	assert.Equal(t, domain.SeverityHigh, c.Severity)
	// No baseline: 7 < 5×2, elevated rather than spike.
	assert.Equal(t, domain.TrendElevated, c.Trend)
	assert.Equal(t, "7 noise complaints pile up at 80 Wooster St", c.Headline)

	require.Len(t, res.Partition.Individual, 1)
	assert.Empty(t, res.Partition.Roundups)
	assert.Equal(t, 7, res.Stats.Scanned)
	assert.Equal(t, 7, res.Stats.Clustered)
}

func TestRun_ThresholdFiltersSmallClusters(t *testing.T) {
	records := append(commercialNoiseWeek(7),
		record("r1", "Rodent", "104 Ludlow Street", "", "10002"),
		record("r2", "Rodent", "110 Ludlow Street", "", "10002"),
	)

	res, err := engine.Run(context.Background(), records, defaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Clusters, 1, "two rodent reports are below the threshold")
	assert.Equal(t, "80 Wooster St", res.Clusters[0].DisplayLocation)
	assert.Equal(t, 9, res.Stats.Clustered, "filtered clusters still count as clustered records")
}

func TestRun_BaselineSpike(t *testing.T) {
	opts := defaultOptions()
	venueID := domain.ClusterID("noise-commercial", "80 Wooster St")
	stub := &stubBaselines{counts: map[string]int{venueID: 2}}
	opts.Baselines = stub

	res, err := engine.Run(context.Background(), commercialNoiseWeek(7), opts)
	require.NoError(t, err)

	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, domain.TrendSpike, c.Trend)
	require.NotNil(t, c.BaselineCount)
	assert.Equal(t, 2, *c.BaselineCount)
	require.NotNil(t, c.PercentChange)
	assert.Equal(t, 250, *c.PercentChange)

	assert.Equal(t, 1, stub.fetchCalls)
	assert.Equal(t, []string{venueID}, stub.requested)
}

func TestRun_BaselineFetchFailureDegrades(t *testing.T) {
	opts := defaultOptions()
	opts.Baselines = &stubBaselines{err: errors.New("history service down")}

	res, err := engine.Run(context.Background(), commercialNoiseWeek(12), opts)
	require.NoError(t, err, "baseline failure must not abort the batch")

	require.Len(t, res.Clusters, 1)
	// Fallback path: 12 ≥ 5×2 is a spike on absolute volume.
	assert.Equal(t, domain.TrendSpike, res.Clusters[0].Trend)
	assert.Nil(t, res.Clusters[0].BaselineCount)
}

func TestRun_NoBaselineFetchForEmptyWindow(t *testing.T) {
	opts := defaultOptions()
	stub := &stubBaselines{}
	opts.Baselines = stub

	res, err := engine.Run(context.Background(), nil, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Clusters)
	assert.Zero(t, stub.fetchCalls)
}

func TestRun_RankedOutput(t *testing.T) {
	records := commercialNoiseWeek(6) // high severity, count 6
	for i := 0; i < 8; i++ {
		records = append(records, record(fmt.Sprintf("park-%d", i), "Illegal Parking", "304 Grand Street", "Grand Street", "10002"))
	}

	res, err := engine.Run(context.Background(), records, defaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Clusters, 2)
	assert.Equal(t, domain.SeverityHigh, res.Clusters[0].Severity, "high severity ranks above a larger low-severity cluster")
	assert.Equal(t, 6, res.Clusters[0].Count)
	assert.Equal(t, domain.SeverityLow, res.Clusters[1].Severity)
	assert.Equal(t, 8, res.Clusters[1].Count)
}

func TestRun_RoundupPartition(t *testing.T) {
	var records []domain.RawComplaintRecord
	// Three qualifying clusters in the Lower East Side.
	for i := 0; i < 5; i++ {
		records = append(records, record(fmt.Sprintf("a-%d", i), "Noise - Residential", "104 Ludlow Street", "Ludlow Street", "10002"))
		records = append(records, record(fmt.Sprintf("b-%d", i), "Rodent", "210 Orchard Street", "Orchard Street", "10002"))
		records = append(records, record(fmt.Sprintf("c-%d", i), "Illegal Parking", "304 Grand Street", "Grand Street", "10002"))
	}
	// One qualifying cluster in Williamsburg.
	for i := 0; i < 5; i++ {
		records = append(records, record(fmt.Sprintf("d-%d", i), "Noise - Residential", "120 Bedford Avenue", "Bedford Avenue", "11211"))
	}

	res, err := engine.Run(context.Background(), records, defaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Clusters, 4)

	require.Len(t, res.Partition.Individual, 1)
	assert.Equal(t, "williamsburg", res.Partition.Individual[0].NeighborhoodID)

	require.Contains(t, res.Partition.Roundups, "lower-east-side")
	assert.Len(t, res.Partition.Roundups["lower-east-side"], 3)
}

func TestRun_Idempotent(t *testing.T) {
	records := append(commercialNoiseWeek(7),
		record("r1", "Rodent", "104 Ludlow Street", "", "10002"),
	)
	opts := defaultOptions()
	venueID := domain.ClusterID("noise-commercial", "80 Wooster St")
	opts.Baselines = &stubBaselines{counts: map[string]int{venueID: 3}}

	first, err := engine.Run(context.Background(), records, opts)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), records, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Stats, second.Stats)
	require.Equal(t, len(first.Clusters), len(second.Clusters))
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].ID, second.Clusters[i].ID)
		assert.Equal(t, first.Clusters[i].Count, second.Clusters[i].Count)
		assert.Equal(t, first.Clusters[i].Trend, second.Clusters[i].Trend)
		assert.Equal(t, first.Clusters[i].PercentChange, second.Clusters[i].PercentChange)
	}
}

func TestRun_ConfigurationErrors(t *testing.T) {
	opts := defaultOptions()
	opts.Registry = nil
	_, err := engine.Run(context.Background(), commercialNoiseWeek(1), opts)
	assert.ErrorIs(t, err, domain.ErrEmptyRegistry)

	opts = defaultOptions()
	opts.ZipIndex = nil
	_, err = engine.Run(context.Background(), commercialNoiseWeek(1), opts)
	assert.ErrorIs(t, err, domain.ErrEmptyZipIndex)
}

func TestRun_StructuralErrorAborts(t *testing.T) {
	records := append(commercialNoiseWeek(3), domain.RawComplaintRecord{TypeLabel: "Rodent", CreatedAt: windowStart})

	_, err := engine.Run(context.Background(), records, defaultOptions())
	var structural *domain.StructuralError
	require.ErrorAs(t, err, &structural)
}

func TestRun_GeneratedAtUsesClock(t *testing.T) {
	frozen := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })

	res, err := engine.Run(context.Background(), commercialNoiseWeek(7), defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, frozen, res.GeneratedAt)
}
