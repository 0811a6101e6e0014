package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the executor and the cache layer for
// logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay stage execution. Callbacks may be
// invoked from multiple goroutines.
type Observer interface {
	// OnRunStart is called once when a run begins, before any stage executes.
	OnRunStart(ctx context.Context, runID, graph string)

	// OnRunCompleted is called when a run reaches RunCompleted, including
	// runs that accumulated stage errors.
	OnRunCompleted(ctx context.Context, runID string, state *State, duration time.Duration)

	// OnRunFailed is called when a run transitions to RunFailed
	// (structural error or deadline expiry).
	OnRunFailed(ctx context.Context, runID string, err error)

	// OnStageStart is called before a stage function is invoked.
	OnStageStart(ctx context.Context, runID, stage string)

	// OnStageCompleted is called after a stage function returns, for both
	// successes and failures (err != nil).
	OnStageCompleted(ctx context.Context, runID, stage string, err error, duration time.Duration)

	// OnCacheHit is called when a collaborator call is served from cache.
	OnCacheHit(ctx context.Context, namespace, collaborator, operation string)

	// OnCacheMiss is called when a collaborator call falls through to the
	// real collaborator. Expired and unreadable entries count as misses.
	OnCacheMiss(ctx context.Context, namespace, collaborator, operation string)

	// OnCacheWriteFailed is called when a cache write-back fails. Write
	// failures never fail the operation being cached.
	OnCacheWriteFailed(ctx context.Context, namespace, key string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, runID, graph string) {}
func (NoopObserver) OnRunCompleted(ctx context.Context, runID string, state *State, d time.Duration) {
}
func (NoopObserver) OnRunFailed(ctx context.Context, runID string, err error) {}
func (NoopObserver) OnStageStart(ctx context.Context, runID, stage string)    {}
func (NoopObserver) OnStageCompleted(ctx context.Context, runID, stage string, err error, d time.Duration) {
}
func (NoopObserver) OnCacheHit(ctx context.Context, namespace, collaborator, operation string)  {}
func (NoopObserver) OnCacheMiss(ctx context.Context, namespace, collaborator, operation string) {}
func (NoopObserver) OnCacheWriteFailed(ctx context.Context, namespace, key string, err error)   {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, runID, graph string) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, runID, graph)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, runID string, state *State, d time.Duration) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, runID, state, d)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, runID string, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, runID, err)
	}
}

func (c *CompositeObserver) OnStageStart(ctx context.Context, runID, stage string) {
	for _, o := range c.observers {
		o.OnStageStart(ctx, runID, stage)
	}
}

func (c *CompositeObserver) OnStageCompleted(ctx context.Context, runID, stage string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStageCompleted(ctx, runID, stage, err, d)
	}
}

func (c *CompositeObserver) OnCacheHit(ctx context.Context, namespace, collaborator, operation string) {
	for _, o := range c.observers {
		o.OnCacheHit(ctx, namespace, collaborator, operation)
	}
}

func (c *CompositeObserver) OnCacheMiss(ctx context.Context, namespace, collaborator, operation string) {
	for _, o := range c.observers {
		o.OnCacheMiss(ctx, namespace, collaborator, operation)
	}
}

func (c *CompositeObserver) OnCacheWriteFailed(ctx context.Context, namespace, key string, err error) {
	for _, o := range c.observers {
		o.OnCacheWriteFailed(ctx, namespace, key, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / stage / cache
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, runID, graph string) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.String("graph", graph),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, runID string, state *State, d time.Duration) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("run_id", runID),
		slog.Int("steps_completed", len(state.StepsCompleted)),
		slog.Int("stage_errors", len(state.Errors)),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, runID string, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("run_id", runID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStageStart(ctx context.Context, runID, stage string) {
	o.Logger.DebugContext(ctx, "stage_start",
		slog.String("run_id", runID),
		slog.String("stage", stage),
	)
}

func (o *LoggingObserver) OnStageCompleted(ctx context.Context, runID, stage string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "stage_completed",
		slog.String("run_id", runID),
		slog.String("stage", stage),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnCacheHit(ctx context.Context, namespace, collaborator, operation string) {
	o.Logger.DebugContext(ctx, "cache_hit",
		slog.String("namespace", namespace),
		slog.String("collaborator", collaborator),
		slog.String("operation", operation),
	)
}

func (o *LoggingObserver) OnCacheMiss(ctx context.Context, namespace, collaborator, operation string) {
	o.Logger.DebugContext(ctx, "cache_miss",
		slog.String("namespace", namespace),
		slog.String("collaborator", collaborator),
		slog.String("operation", operation),
	)
}

func (o *LoggingObserver) OnCacheWriteFailed(ctx context.Context, namespace, key string, err error) {
	o.Logger.WarnContext(ctx, "cache_write_failed",
		slog.String("namespace", namespace),
		slog.String("key", key),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate stage durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted        atomic.Int64
	runsCompleted      atomic.Int64
	runsFailed         atomic.Int64
	stagesCompleted    atomic.Int64
	totalStageDuration atomic.Int64 // nanoseconds

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	ActiveRuns    int64

	StagesCompleted  int64
	AvgStageDuration time.Duration

	CacheHits   int64
	CacheMisses int64
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, runID, graph string) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, runID string, state *State, d time.Duration) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, runID string, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnStageCompleted(ctx context.Context, runID, stage string, err error, d time.Duration) {
	// Only successful stages feed the average duration.
	if err == nil {
		m.stagesCompleted.Add(1)
		m.totalStageDuration.Add(d.Nanoseconds())
	}
}

func (m *BasicMetrics) OnCacheHit(ctx context.Context, namespace, collaborator, operation string) {
	m.cacheHits.Add(1)
}

func (m *BasicMetrics) OnCacheMiss(ctx context.Context, namespace, collaborator, operation string) {
	m.cacheMisses.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	stages := m.stagesCompleted.Load()
	totalNs := m.totalStageDuration.Load()

	var avg time.Duration
	if stages > 0 {
		avg = time.Duration(totalNs / stages)
	}

	return BasicMetricsSnapshot{
		RunsStarted:      started,
		RunsCompleted:    completed,
		RunsFailed:       failed,
		ActiveRuns:       started - completed - failed,
		StagesCompleted:  stages,
		AvgStageDuration: avg,
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
	}
}
