// Package pipeline drives the consume → cluster → publish loop: it
// buffers complaint records from the source topic into a time window,
// runs the engine over each completed window, and publishes the result.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/domain"
	"github.com/couchcryptid/nuisance-watch/internal/engine"
	"github.com/couchcryptid/nuisance-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// BatchExtractor reads up to batchSize source messages from the source topic.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.SourceMessage, error)
}

// ResultPublisher writes a window result to the destination.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res engine.Result) error
}

// Settings carries the per-deployment pipeline knobs.
type Settings struct {
	BatchSize     int
	FlushInterval time.Duration
	Threshold     int
	Registry      *domain.Registry
	ZipIndex      *domain.ZipIndex
}

// Pipeline orchestrates the windowed extract-cluster-publish loop.
type Pipeline struct {
	extractor BatchExtractor
	publisher ResultPublisher
	baselines domain.BaselineProvider
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	settings  Settings
	ready     atomic.Bool
	lastFlush atomic.Int64 // unix nanos of the last published window

	// Window state, local to one Run invocation.
	buffer      []domain.RawComplaintRecord
	pending     []domain.SourceMessage
	windowStart time.Time
}

// New creates a Pipeline. A nil baseline provider disables history
// comparison; a nil clock uses real time.
func New(e BatchExtractor, p ResultPublisher, b domain.BaselineProvider, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, settings Settings) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		extractor: e,
		publisher: p,
		baselines: b,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		settings:  settings,
	}
}

// CheckReadiness returns nil once the pipeline has published at least
// one window, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published a window yet")
	}
	return nil
}

// LastWindow reports when the most recent window was published. The
// second return is false before the first successful publish.
func (p *Pipeline) LastWindow() (time.Time, bool) {
	nanos := p.lastFlush.Load()
	if nanos == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

// Run executes the windowed batch loop until the context is cancelled.
// A window still accumulating at shutdown is abandoned uncommitted so
// the next run reprocesses it; publishing a partial window could
// understate a real spike.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"batch_size", p.settings.BatchSize,
		"flush_interval", p.settings.FlushInterval,
		"threshold", p.settings.Threshold,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.windowStart = p.clock.Now()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err(), "buffered_records", len(p.buffer))
			return nil
		default:
		}

		ok, err := p.step(ctx, &backoff, maxBackoff)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// step runs one extract cycle and flushes the window when due. Returns
// false when the pipeline should stop, and a non-nil error only for
// fatal conditions (structural or configuration failures).
func (p *Pipeline) step(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (bool, error) {
	batch, err := p.extractor.ExtractBatch(ctx, p.settings.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff), nil
	}
	*backoff = 200 * time.Millisecond

	p.ingest(ctx, batch)

	if !p.windowDue() {
		return ctx.Err() == nil, nil
	}

	if err := p.flushWindow(ctx); err != nil {
		if errors.Is(err, errPublishRetry) {
			return p.backoffOrStop(ctx, backoff, maxBackoff), nil
		}
		return false, err
	}
	return true, nil
}

// ingest parses and buffers a batch of source messages. Malformed
// messages are dropped here, at the ingestion boundary, so the engine
// never sees a structurally invalid record mid-batch.
func (p *Pipeline) ingest(ctx context.Context, batch []domain.SourceMessage) {
	for _, msg := range batch {
		p.metrics.RecordsConsumed.Inc()

		rec, err := domain.ParseSourceMessage(msg)
		if err != nil {
			p.logger.Warn("dropping malformed record",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.metrics.RecordsFiltered.WithLabelValues("malformed").Inc()
			p.commit(ctx, msg)
			continue
		}

		p.buffer = append(p.buffer, rec)
		p.pending = append(p.pending, msg)
	}
}

// windowDue reports whether the current window should be flushed. An
// empty overdue window just restarts the clock; there is nothing to
// publish and "no complaints" must come from a real run, not a skip.
func (p *Pipeline) windowDue() bool {
	if p.clock.Since(p.windowStart) < p.settings.FlushInterval {
		return false
	}
	if len(p.buffer) == 0 {
		p.windowStart = p.clock.Now()
		return false
	}
	return true
}

// errPublishRetry marks a flush failure that should be retried with
// backoff rather than stopping the pipeline.
var errPublishRetry = errors.New("publish failed, window retained for retry")

// flushWindow runs the engine over the buffered window and publishes
// the result. On success the window's offsets are committed and the
// buffer reset; on publish failure the window is kept for retry.
func (p *Pipeline) flushWindow(ctx context.Context) error {
	start := p.clock.Now()

	res, err := engine.Run(ctx, p.buffer, engine.Options{
		Registry:  p.settings.Registry,
		ZipIndex:  p.settings.ZipIndex,
		Threshold: p.settings.Threshold,
		Baselines: p.baselines,
		Logger:    p.logger,
	})
	if err != nil {
		var structural *domain.StructuralError
		if errors.As(err, &structural) {
			p.metrics.WindowStructuralErrors.Inc()
		}
		p.logger.Error("window run failed", "error", err, "window_records", len(p.buffer))
		return err
	}

	if err := p.publisher.PublishResult(ctx, res); err != nil {
		p.logger.Error("publish window failed", "error", err, "clusters", len(res.Clusters))
		return errPublishRetry
	}

	p.observeWindow(res, p.clock.Since(start))

	for _, msg := range p.pending {
		p.commit(ctx, msg)
	}

	p.logger.Info("window published",
		"records", res.Stats.Scanned,
		"clustered", res.Stats.Clustered,
		"dropped", res.Stats.Dropped(),
		"clusters", len(res.Clusters),
		"roundup_neighborhoods", len(res.Partition.Roundups),
	)

	p.buffer = nil
	p.pending = nil
	p.windowStart = p.clock.Now()
	p.lastFlush.Store(p.clock.Now().UnixNano())
	p.ready.Store(true)
	return nil
}

func (p *Pipeline) observeWindow(res engine.Result, elapsed time.Duration) {
	p.metrics.WindowRecords.Observe(float64(res.Stats.Scanned))
	p.metrics.WindowProcessingTime.Observe(elapsed.Seconds())
	p.metrics.RecordsFiltered.WithLabelValues("unclassified").Add(float64(res.Stats.Unclassified))
	p.metrics.RecordsFiltered.WithLabelValues("unknown_zip").Add(float64(res.Stats.UnknownZip))
	p.metrics.RecordsFiltered.WithLabelValues("unlocatable").Add(float64(res.Stats.Unlocatable))
	for _, c := range res.Clusters {
		p.metrics.ClustersEmitted.WithLabelValues(c.Trend.String()).Inc()
	}
	p.metrics.RoundupsEmitted.Add(float64(len(res.Partition.Roundups)))
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commit commits the message offset if a commit function is available.
func (p *Pipeline) commit(ctx context.Context, msg domain.SourceMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
