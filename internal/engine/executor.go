// Package engine implements the workflow executor: it schedules stage
// execution over a validated graph, runs independent stages concurrently,
// and merges their outputs into the shared run state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wayfarer-dev/wayfarer/pkg/api"
)

// DefaultMaxConcurrentStages bounds a fan-out when no explicit limit is
// configured.
const DefaultMaxConcurrentStages = 4

// ErrDeadlineExceeded marks a run that was cut short by the caller-supplied
// deadline. It is a distinct error kind from stage errors: "ran out of
// time" and "some stages failed" must be distinguishable by callers.
var ErrDeadlineExceeded = errors.New("run deadline exceeded")

// Executor schedules stages of a Graph respecting its partial order.
//
// One Execute call owns its State exclusively: all merges happen on the
// scheduler goroutine, so stage goroutines never touch shared state. Stage
// functions receive a snapshot taken at dispatch time; since every upstream
// result is merged before a stage becomes eligible, the snapshot always
// contains the fields the stage depends on.
type Executor struct {
	maxConcurrent int
	observer      api.Observer
}

// New creates an Executor. maxConcurrent bounds the number of stage
// functions running at once within one run; values <= 0 fall back to
// DefaultMaxConcurrentStages. A nil observer defaults to api.NoopObserver.
func New(maxConcurrent int, obs api.Observer) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentStages
	}
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Executor{maxConcurrent: maxConcurrent, observer: obs}
}

type stageState struct {
	def       api.StageDefinition
	status    api.StageStatus
	remaining int // upstream stages not yet in a terminal state
}

type completion struct {
	name   string
	update api.Fields
	err    error
}

// StageStatuses is the per-stage outcome map returned by Execute.
type StageStatuses map[string]api.StageStatus

// Execute runs the graph to completion, mutating state in place.
//
// Stage errors are contained: they are recorded on the state and execution
// continues with whatever partial data is available, so the sink stage is
// always reached. A nil error therefore only means the run itself finished;
// callers must inspect state.Errors.
//
// When ctx expires, no further stages are dispatched, in-flight stages are
// allowed to finish and their results merged, and Execute returns an error
// wrapping ErrDeadlineExceeded (or ctx.Err for plain cancellation).
func (e *Executor) Execute(ctx context.Context, runID string, g *api.Graph, state *api.State) (StageStatuses, error) {
	stages := make(map[string]*stageState, len(g.Stages()))
	for _, def := range g.Stages() {
		stages[def.Name] = &stageState{
			def:       def,
			status:    api.StageWaiting,
			remaining: len(def.Upstream),
		}
	}

	done := make(chan completion)
	sem := make(chan struct{}, e.maxConcurrent)

	ready := []string{g.Entry()}
	pending := len(stages)
	running := 0
	interrupted := false

	handle := func(c completion) {
		st := stages[c.name]
		running--
		pending--

		// Merge in completion order; a failed stage may still deliver a
		// partial update.
		if len(c.update) > 0 {
			state.Apply(c.update)
		}
		if c.err != nil {
			st.status = api.StageErrored
			state.RecordError(c.name, c.err)
		} else {
			st.status = api.StageDone
			state.MarkCompleted(c.name)
		}

		// Downstream stages become eligible once every upstream reached a
		// terminal state, Done or Errored alike. A convergent stage never
		// dispatches on partial completion.
		for _, name := range g.Downstream(c.name) {
			d := stages[name]
			d.remaining--
			if d.remaining == 0 {
				ready = append(ready, name)
			}
		}
	}

	for pending > 0 {
		if !interrupted {
			for _, name := range ready {
				st := stages[name]
				st.status = api.StageRunning
				running++
				e.dispatch(ctx, runID, st.def, state.Snapshot(), sem, done)
			}
			ready = ready[:0]
		}

		if running == 0 {
			break
		}

		if interrupted {
			handle(<-done)
			continue
		}

		select {
		case c := <-done:
			handle(c)
		case <-ctx.Done():
			interrupted = true
		}
	}

	statuses := make(StageStatuses, len(stages))
	for name, st := range stages {
		statuses[name] = st.status
	}

	if interrupted {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return statuses, fmt.Errorf("%w: %d stage(s) never dispatched", ErrDeadlineExceeded, pending)
		}
		return statuses, ctx.Err()
	}
	return statuses, nil
}

func (e *Executor) dispatch(ctx context.Context, runID string, def api.StageDefinition, snap *api.State, sem chan struct{}, done chan<- completion) {
	// Stages already dispatched are allowed to finish when the run deadline
	// expires: interrupting an adapter mid-call could leave the cache store
	// inconsistent. The deadline only stops further dispatching.
	stageCtx := context.WithoutCancel(ctx)

	go func() {
		sem <- struct{}{}
		defer func() { <-sem }()

		start := time.Now()
		e.observer.OnStageStart(stageCtx, runID, def.Name)

		update, err := invoke(stageCtx, def.Fn, snap)

		e.observer.OnStageCompleted(stageCtx, runID, def.Name, err, time.Since(start))
		done <- completion{name: def.Name, update: update, err: err}
	}()
}

// invoke runs a stage function, converting panics into stage errors so a
// misbehaving stage cannot take down the whole run.
func invoke(ctx context.Context, fn api.StageFunc, snap *api.State) (update api.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = fmt.Errorf("stage panic: %v", r)
		}
	}()
	return fn(ctx, snap)
}
