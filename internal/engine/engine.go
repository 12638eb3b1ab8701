// Package engine runs the full civic-signal batch transform: classify
// and anonymize raw complaint records, cluster them, drop insignificant
// clusters, classify trends against baseline history, rank, and decide
// roundup grouping. The engine performs no I/O of its own; the baseline
// provider is the only collaborator it calls, and a nil provider is a
// supported degraded mode.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/domain"
)

// Options configures one batch run. Registry and ZipIndex are required;
// everything else has a working zero value.
type Options struct {
	Registry  *domain.Registry
	ZipIndex  *domain.ZipIndex
	Threshold int // minimum cluster count; ≤0 uses the default

	// Baselines supplies historical counts per cluster ID. Nil disables
	// baseline comparison and trends fall back to absolute volume.
	Baselines domain.BaselineProvider

	Logger *slog.Logger
}

// Result is the fully processed output of one batch window.
type Result struct {
	// Clusters is the ranked, significant, trend-annotated cluster list.
	Clusters []*domain.ComplaintCluster `json:"clusters"`

	// Partition routes clusters to individual or roundup treatment.
	Partition domain.Partition `json:"partition"`

	// Stats accounts for every scanned record.
	Stats domain.Stats `json:"stats"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Run executes the batch transform over one window of records. Given
// identical records and baselines the output is identical: clustering
// is a pure function of classification and anonymization, and ranking
// tie-breaks on cluster ID. Structural record defects and empty
// registries abort the run; per-record filtering only moves counters.
func Run(ctx context.Context, records []domain.RawComplaintRecord, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clusters, stats, err := domain.Aggregate(records, opts.Registry, opts.ZipIndex)
	if err != nil {
		return Result{}, err
	}

	significant := domain.FilterSignificant(clusters, opts.Threshold)

	baseline := fetchBaselines(ctx, significant, opts.Baselines, logger)
	domain.ClassifyTrends(significant, baseline, opts.Threshold)

	for _, c := range significant {
		c.Headline = c.RenderHeadline()
	}

	domain.Rank(significant)

	return Result{
		Clusters:    significant,
		Partition:   domain.DecideRoundups(significant),
		Stats:       stats,
		GeneratedAt: domain.Now(),
	}, nil
}

// fetchBaselines asks the provider for history on the surviving
// clusters only. A fetch failure degrades to the no-baseline path
// rather than aborting: missing history is a supported input, and the
// fallback can only over-report a cluster, never hide one.
func fetchBaselines(ctx context.Context, clusters []*domain.ComplaintCluster, provider domain.BaselineProvider, logger *slog.Logger) map[string]int {
	if provider == nil || len(clusters) == 0 {
		return nil
	}

	ids := make([]string, len(clusters))
	for i, c := range clusters {
		ids[i] = c.ID
	}

	baseline, err := provider.FetchBaselines(ctx, ids)
	if err != nil {
		logger.Warn("baseline fetch failed, classifying trends from absolute volume",
			"error", err,
			"cluster_count", len(ids),
		)
		return nil
	}
	return baseline
}
