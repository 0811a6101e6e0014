package wayfarer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wayfarer-dev/wayfarer/internal/cache"
	"github.com/wayfarer-dev/wayfarer/internal/engine"
	"github.com/wayfarer-dev/wayfarer/pkg/api"
	"github.com/wayfarer-dev/wayfarer/pkg/collab"
	"github.com/wayfarer-dev/wayfarer/pkg/config"
	"github.com/wayfarer-dev/wayfarer/pkg/travel"
)

// Collaborators are the external services the acquisition stages call.
// Nil fields default to the built-in deterministic travel.StaticService,
// which makes the zero value usable for tests and offline runs.
type Collaborators struct {
	// Collector backs places.search, weather.current, and web.search.
	Collector collab.Caller

	// Scraper backs the scrape.* operations.
	Scraper collab.Caller

	// Scorer backs the score.* operations. The default is the bundled
	// in-process heuristics; a remote scoring service drops in behind the
	// same contract.
	Scorer collab.Caller
}

// Runner owns one configured planning pipeline: the cache store, the
// collaborator adapters, and the executor. A Runner is safe for concurrent
// use; each Run call gets its own isolated state.
type Runner struct {
	cfg      config.Config
	db       *sql.DB // owned; nil when the store is not SQLite-backed
	store    cache.Store
	graph    *api.Graph
	executor *engine.Executor
	observer api.Observer
}

// NewRunner creates a Runner with a SQLite-backed cache at cfg.Cache.Path.
// The database is created (with both namespace tables) if it does not
// exist. A nil observer defaults to the no-op observer.
func NewRunner(cfg config.Config, collabs Collaborators, obs api.Observer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %s: %w", cfg.Cache.Path, err)
	}
	store, err := cache.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	r := newRunner(cfg, store, collabs, obs)
	r.db = db
	return r, nil
}

// NewInMemoryRunner creates a Runner whose cache lives in process memory.
// Nothing survives the Runner; intended for tests.
func NewInMemoryRunner(cfg config.Config, collabs Collaborators, obs api.Observer) *Runner {
	return newRunner(cfg, cache.NewMemoryStore(), collabs, obs)
}

func newRunner(cfg config.Config, store cache.Store, collabs Collaborators, obs api.Observer) *Runner {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	if collabs.Collector == nil {
		collabs.Collector = travel.StaticService{}
	}
	if collabs.Scraper == nil {
		collabs.Scraper = travel.StaticService{}
	}
	if collabs.Scorer == nil {
		collabs.Scorer = travel.ScoringService{}
	}

	retry := collab.RetryPolicy{
		MaxAttempts:       cfg.Adapters.MaxAttempts,
		InitialBackoff:    cfg.Adapters.InitialBackoff.Std(),
		BackoffMultiplier: cfg.Adapters.BackoffMultiplier,
		MaxBackoff:        cfg.Adapters.MaxBackoff.Std(),
	}

	// The collector serves slow-changing reference data; the scraper serves
	// volatile listings and reviews. Each gets the matching cache class.
	collector := collab.NewAdapter("collector", collabs.Collector, store, collab.Config{
		Namespace:          cache.NamespaceDurable,
		TTL:                cfg.Cache.DurableTTL.Std(),
		Retry:              retry,
		RateLimitPerSecond: cfg.Adapters.RateLimitPerSecond,
	}, obs)
	scraper := collab.NewAdapter("scraper", collabs.Scraper, store, collab.Config{
		Namespace:          cache.NamespaceEphemeral,
		TTL:                cfg.Cache.EphemeralTTL.Std(),
		Retry:              retry,
		RateLimitPerSecond: cfg.Adapters.RateLimitPerSecond,
	}, obs)
	// Scores are derived data; they expire with the volatile inputs they
	// were computed from.
	scorer := collab.NewAdapter("scorer", collabs.Scorer, store, collab.Config{
		Namespace:          cache.NamespaceEphemeral,
		TTL:                cfg.Cache.EphemeralTTL.Std(),
		Retry:              retry,
		RateLimitPerSecond: cfg.Adapters.RateLimitPerSecond,
	}, obs)

	return &Runner{
		cfg:      cfg,
		store:    store,
		graph:    travel.NewStages(collector, scraper, scorer).Graph(),
		executor: engine.New(cfg.Executor.MaxConcurrentStages, obs),
		observer: obs,
	}
}

// Close releases the cache database if the Runner owns one.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Graph returns the planning graph this Runner executes.
func (r *Runner) Graph() *api.Graph { return r.graph }

// Run executes the planning graph once for the given parameters.
//
// Invalid parameters are structural: the run fails before any stage
// executes. A returned RunResult with Status RunCompleted may still carry
// stage errors in State.Errors; the caller decides whether the partial
// plan is acceptable.
func (r *Runner) Run(ctx context.Context, params travel.Params) (*api.RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()

	if err := params.Validate(); err != nil {
		r.observer.OnRunFailed(ctx, runID, err)
		return &api.RunResult{
			ID:       runID,
			Graph:    r.graph.Name(),
			Status:   api.RunFailed,
			State:    api.NewState(nil),
			Err:      err,
			Duration: time.Since(start),
		}, err
	}

	if deadline := r.cfg.Executor.RunDeadline.Std(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	state := api.NewState(api.Fields{
		travel.FieldDestination: params.Destination,
		travel.FieldBudget:      params.Budget,
		travel.FieldDays:        params.Days,
		travel.FieldTravelers:   params.Travelers,
		travel.FieldInterests:   append([]string(nil), params.Interests...),
	})

	r.observer.OnRunStart(ctx, runID, r.graph.Name())

	_, err := r.executor.Execute(ctx, runID, r.graph, state)
	duration := time.Since(start)

	if err != nil {
		r.observer.OnRunFailed(ctx, runID, err)
		return &api.RunResult{
			ID:       runID,
			Graph:    r.graph.Name(),
			Status:   api.RunFailed,
			State:    state,
			Err:      err,
			Duration: duration,
		}, err
	}

	r.observer.OnRunCompleted(ctx, runID, state, duration)
	return &api.RunResult{
		ID:       runID,
		Graph:    r.graph.Name(),
		Status:   api.RunCompleted,
		State:    state,
		Duration: duration,
	}, nil
}

// PlanResult is the typed view of a completed planning run.
type PlanResult struct {
	RunID    string        `json:"run_id"`
	Status   api.RunStatus `json:"status"`
	Duration time.Duration `json:"duration"`

	Plan            travel.Plan            `json:"plan"`
	Recommendations travel.Recommendations `json:"recommendations"`
	Insights        travel.Insights        `json:"insights"`
	Summary         travel.Summary         `json:"summary"`

	StepsCompleted []string         `json:"steps_completed"`
	Errors         []api.StageError `json:"errors,omitempty"`
}

// Plan runs the pipeline and unpacks the final state into a PlanResult.
// Like Run, it returns both a result and an error for failed runs, so the
// caller can still see how far the run got.
func (r *Runner) Plan(ctx context.Context, params travel.Params) (*PlanResult, error) {
	result, err := r.Run(ctx, params)

	pr := &PlanResult{
		RunID:          result.ID,
		Status:         result.Status,
		Duration:       result.Duration,
		StepsCompleted: result.State.StepsCompleted,
		Errors:         result.State.Errors,
	}
	if v, ok := result.State.Get(travel.FieldPlan); ok {
		pr.Plan, _ = v.(travel.Plan)
	}
	if v, ok := result.State.Get(travel.FieldRecommendations); ok {
		pr.Recommendations, _ = v.(travel.Recommendations)
	}
	if v, ok := result.State.Get(travel.FieldInsights); ok {
		pr.Insights, _ = v.(travel.Insights)
	}
	if v, ok := result.State.Get(travel.FieldSummary); ok {
		pr.Summary, _ = v.(travel.Summary)
	}
	return pr, err
}

// CacheStats reports entry counts for one cache namespace.
type CacheStats struct {
	Namespace string `json:"namespace"`
	Entries   int64  `json:"entries"`
	Expired   int64  `json:"expired"`
	Hits      int64  `json:"hits"`
}

// CacheStats returns per-namespace statistics of the Runner's cache store.
func (r *Runner) CacheStats(ctx context.Context) ([]CacheStats, error) {
	namespaces := []cache.Namespace{cache.NamespaceEphemeral, cache.NamespaceDurable}
	out := make([]CacheStats, 0, len(namespaces))
	for _, ns := range namespaces {
		stats, err := r.store.Stats(ctx, ns)
		if err != nil {
			return nil, err
		}
		out = append(out, CacheStats{
			Namespace: string(ns),
			Entries:   int64(stats.Entries),
			Expired:   int64(stats.Expired),
			Hits:      stats.Hits,
		})
	}
	return out, nil
}

// EvictExpired removes expired entries from both cache namespaces and
// returns the total number of rows deleted.
func (r *Runner) EvictExpired(ctx context.Context) (int, error) {
	total := 0
	for _, ns := range []cache.Namespace{cache.NamespaceEphemeral, cache.NamespaceDurable} {
		n, err := r.store.EvictExpired(ctx, ns)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
