// Package pipeline walks a date range of day directories and drives every
// raw grid file through the stage chain.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/couchcryptid/storm-grid-etl/internal/observability"
	"github.com/google/uuid"
)

// Converter is one step of the per-file chain. *stage.Stage implements it.
type Converter interface {
	Name() string
	Run(ctx context.Context, input string) (domain.StageResult, error)
}

// Discoverer lists the raw files for one day. A day with no directory is
// reported as domain.ErrMissingInput.
type Discoverer interface {
	Discover(ctx context.Context, day time.Time) ([]string, error)
}

// Notifier receives one event per processed file.
type Notifier interface {
	Publish(ctx context.Context, ev domain.ConversionEvent) error
}

// Pipeline processes dates and files strictly in sequence.
type Pipeline struct {
	discoverer Discoverer
	stages     []Converter
	notifier   Notifier
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu       sync.Mutex
	progress domain.RunSummary
}

// New creates a Pipeline. notifier may be nil.
func New(d Discoverer, stages []Converter, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		discoverer: d,
		stages:     stages,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a run has started processing files.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not started processing yet")
	}
	return nil
}

// Progress returns a snapshot of the current (or last) run's tallies.
func (p *Pipeline) Progress() domain.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress.Clone()
}

// Run processes every day in [start, end]. The returned summary is complete
// up to the point the run stopped. A non-nil error means the run aborted:
// either an external tool failed or ctx was cancelled. Individual file
// failures are counted in the summary and do not produce an error.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (domain.RunSummary, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	began := domain.Now()

	p.setProgress(domain.RunSummary{
		RunID: runID,
		Start: start.Format(time.DateOnly),
		End:   end.Format(time.DateOnly),
	})
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	p.ready.Store(true)

	logger.Info("pipeline started", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly), "stages", len(p.stages))

	err := p.runDays(ctx, logger, runID, start, end)

	summary := p.update(func(s *domain.RunSummary) { s.Duration = domain.Since(began) })
	if err != nil {
		logger.Error("pipeline aborted", "error", err,
			"converted", summary.Converted, "skipped", summary.Skipped, "failed", summary.Failed)
		return summary, err
	}
	logger.Info("pipeline finished",
		"converted", summary.Converted,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"missing_days", summary.MissingDays,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (p *Pipeline) runDays(ctx context.Context, logger *slog.Logger, runID string, start, end time.Time) error {
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.update(func(s *domain.RunSummary) { s.Days++ })

		files, err := p.discoverer.Discover(ctx, day)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// An unreadable day is treated like a missing one.
			logger.Warn("day directory unavailable, skipping", "error", err, "date", day.Format(time.DateOnly))
			p.metrics.DaysMissing.Inc()
			p.update(func(s *domain.RunSummary) { s.MissingDays++ })
			continue
		}

		p.metrics.FilesDiscovered.Add(float64(len(files)))
		p.update(func(s *domain.RunSummary) { s.Discovered += len(files) })
		logger.Debug("day discovered", "date", day.Format(time.DateOnly), "files", len(files))

		for _, file := range files {
			outcome := p.processFile(ctx, logger, day, file)
			p.record(outcome)
			p.notify(ctx, logger, runID, outcome)

			if outcome.Err != nil && (domain.IsFatal(outcome.Err) || ctx.Err() != nil) {
				return outcome.Err
			}
		}
	}
	return nil
}

// processFile drives one raw file through every stage, stopping at the first failure.
func (p *Pipeline) processFile(ctx context.Context, logger *slog.Logger, day time.Time, file string) domain.FileOutcome {
	began := domain.Now()
	outcome := domain.FileOutcome{Source: file, Date: day}

	input := file
	for _, st := range p.stages {
		logger.Info("stage started", "stage", st.Name(), "input", input)

		t0 := domain.Now()
		res, err := st.Run(ctx, input)
		elapsed := domain.Since(t0)
		p.metrics.StageDuration.WithLabelValues(st.Name()).Observe(elapsed.Seconds())

		if err != nil {
			p.metrics.StageRuns.WithLabelValues(st.Name(), observability.ResultError).Inc()
			level := slog.LevelWarn
			if domain.IsFatal(err) {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "stage failed, skipping file",
				"error", err,
				"file", file,
				"stage", st.Name(),
				"input", input,
			)
			outcome.Err = err
			break
		}

		result := observability.ResultConverted
		if res.CacheHit {
			result = observability.ResultCacheHit
		}
		p.metrics.StageRuns.WithLabelValues(st.Name(), result).Inc()
		logger.Info("stage finished",
			"stage", st.Name(),
			"input", res.Input,
			"output", res.Output,
			"cache_hit", res.CacheHit,
			"source_removed", res.SourceRemoved,
			"duration", elapsed,
		)

		outcome.Stages = append(outcome.Stages, res)
		input = res.Output
	}

	outcome.Status = domain.StatusFor(outcome.Stages, outcome.Err)
	outcome.Duration = domain.Since(began)
	return outcome
}

func (p *Pipeline) record(o domain.FileOutcome) {
	switch o.Status {
	case domain.FileConverted:
		p.metrics.FilesConverted.Inc()
	case domain.FileSkipped:
		p.metrics.FilesSkipped.Inc()
	case domain.FileFailed:
		p.metrics.FilesFailed.Inc()
	}
	p.update(func(s *domain.RunSummary) { s.Record(o) })
}

// notify publishes the outcome. Publication failures never affect the run.
func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, runID string, o domain.FileOutcome) {
	if p.notifier == nil {
		return
	}
	ev := domain.NewConversionEvent(runID, o)
	if err := p.notifier.Publish(ctx, ev); err != nil {
		p.metrics.NotifyErrors.Inc()
		logger.Warn("publish conversion event failed", "error", err, "file", o.Source, "event_id", ev.ID)
	}
}

func (p *Pipeline) setProgress(s domain.RunSummary) {
	p.mu.Lock()
	p.progress = s
	p.mu.Unlock()
}

// update applies fn to the progress tallies and returns a snapshot.
func (p *Pipeline) update(fn func(*domain.RunSummary)) domain.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.progress)
	return p.progress.Clone()
}
