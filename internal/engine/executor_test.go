package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wayfarer-dev/wayfarer/pkg/api"
)

func setField(name string) api.StageFunc {
	return func(ctx context.Context, snap *api.State) (api.Fields, error) {
		return api.Fields{name: true}, nil
	}
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}

func TestExecute_LinearChainRunsInOrder(t *testing.T) {
	g := api.NewGraph("chain").
		Stage("a", setField("a")).
		Stage("b", setField("b"), "a").
		Stage("c", setField("c"), "b").
		MustBuild()

	state := api.NewState(nil)
	statuses, err := New(2, nil).Execute(context.Background(), "run-1", g, state)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(state.StepsCompleted) != len(want) {
		t.Fatalf("unexpected steps: %v", state.StepsCompleted)
	}
	for i, name := range want {
		if state.StepsCompleted[i] != name {
			t.Fatalf("expected step %d to be %q, got %v", i, name, state.StepsCompleted)
		}
		if statuses[name] != api.StageDone {
			t.Fatalf("expected %q DONE, got %q", name, statuses[name])
		}
	}
}

func TestExecute_DiamondRespectsPartialOrder(t *testing.T) {
	g := api.NewGraph("diamond").
		Stage("a", setField("a")).
		Stage("b", setField("b"), "a").
		Stage("c", setField("c"), "a").
		Stage("d", setField("d"), "b", "c").
		MustBuild()

	state := api.NewState(nil)
	if _, err := New(4, nil).Execute(context.Background(), "run-1", g, state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	steps := state.StepsCompleted
	if len(steps) != 4 {
		t.Fatalf("expected 4 completed steps, got %v", steps)
	}
	if steps[0] != "a" {
		t.Fatalf("entry must complete first, got %v", steps)
	}
	if steps[3] != "d" {
		t.Fatalf("sink must complete last, got %v", steps)
	}
}

func TestExecute_ConvergentStageSeesAllUpstreamFields(t *testing.T) {
	g := api.NewGraph("converge").
		Stage("a", setField("a")).
		Stage("b", setField("b"), "a").
		Stage("c", setField("c"), "a").
		Stage("d", func(ctx context.Context, snap *api.State) (api.Fields, error) {
			for _, name := range []string{"a", "b", "c"} {
				if _, ok := snap.Get(name); !ok {
					return nil, fmt.Errorf("missing upstream field %q", name)
				}
			}
			return api.Fields{"d": true}, nil
		}, "b", "c").
		MustBuild()

	state := api.NewState(nil)
	if _, err := New(4, nil).Execute(context.Background(), "run-1", g, state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(state.Errors) != 0 {
		t.Fatalf("unexpected stage errors: %v", state.Errors)
	}
}

func TestExecute_ConvergentStageDispatchesOnce(t *testing.T) {
	var dispatches atomic.Int64
	g := api.NewGraph("once").
		Stage("a", setField("a")).
		Stage("b", setField("b"), "a").
		Stage("c", setField("c"), "a").
		Stage("d", func(ctx context.Context, snap *api.State) (api.Fields, error) {
			dispatches.Add(1)
			return nil, nil
		}, "b", "c").
		MustBuild()

	if _, err := New(4, nil).Execute(context.Background(), "run-1", g, api.NewState(nil)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if n := dispatches.Load(); n != 1 {
		t.Fatalf("convergent stage must run exactly once, ran %d times", n)
	}
}

func TestExecute_StageErrorIsContained(t *testing.T) {
	g := api.NewGraph("contained").
		Stage("a", setField("a")).
		Stage("b", func(ctx context.Context, snap *api.State) (api.Fields, error) {
			return nil, errors.New("upstream service down")
		}, "a").
		Stage("c", setField("c"), "a").
		Stage("d", setField("d"), "a").
		Stage("e", setField("e"), "b", "c", "d").
		MustBuild()

	state := api.NewState(nil)
	statuses, err := New(4, nil).Execute(context.Background(), "run-1", g, state)
	if err != nil {
		t.Fatalf("a stage error must not fail the run: %v", err)
	}

	if statuses["b"] != api.StageErrored {
		t.Fatalf("expected b ERRORED, got %q", statuses["b"])
	}
	for _, name := range []string{"a", "c", "d", "e"} {
		if statuses[name] != api.StageDone {
			t.Fatalf("expected %q DONE, got %q", name, statuses[name])
		}
	}

	if len(state.Errors) != 1 || state.Errors[0].Stage != "b" {
		t.Fatalf("expected one error for b, got %v", state.Errors)
	}
	if !strings.Contains(state.Errors[0].Message, "upstream service down") {
		t.Fatalf("error message lost: %v", state.Errors[0])
	}
	if indexOf(state.StepsCompleted, "b") != -1 {
		t.Fatalf("errored stage must not appear in steps: %v", state.StepsCompleted)
	}
	if indexOf(state.StepsCompleted, "e") == -1 {
		t.Fatal("sink must still run after an upstream error")
	}
}

func TestExecute_FailedStageStillDeliversPartialUpdate(t *testing.T) {
	g := api.NewGraph("partial").
		Stage("a", setField("a")).
		Stage("b", func(ctx context.Context, snap *api.State) (api.Fields, error) {
			return api.Fields{"partial": "kept"}, errors.New("incomplete")
		}, "a").
		MustBuild()

	state := api.NewState(nil)
	if _, err := New(2, nil).Execute(context.Background(), "run-1", g, state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if v, ok := state.Get("partial"); !ok || v != "kept" {
		t.Fatalf("partial update from a failed stage must be merged, got %v", state.Fields)
	}
	if len(state.Errors) != 1 {
		t.Fatalf("expected the error recorded, got %v", state.Errors)
	}
}

func TestExecute_PanicBecomesStageError(t *testing.T) {
	g := api.NewGraph("panic").
		Stage("a", setField("a")).
		Stage("b", func(ctx context.Context, snap *api.State) (api.Fields, error) {
			panic("nil map write")
		}, "a").
		MustBuild()

	state := api.NewState(nil)
	statuses, err := New(2, nil).Execute(context.Background(), "run-1", g, state)
	if err != nil {
		t.Fatalf("a panicking stage must not fail the run: %v", err)
	}
	if statuses["b"] != api.StageErrored {
		t.Fatalf("expected b ERRORED, got %q", statuses["b"])
	}
	if len(state.Errors) != 1 || !strings.Contains(state.Errors[0].Message, "stage panic") {
		t.Fatalf("expected a stage panic error, got %v", state.Errors)
	}
}

func TestExecute_ConcurrencyIsBounded(t *testing.T) {
	var running, peak atomic.Int64
	parallel := func(ctx context.Context, snap *api.State) (api.Fields, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return nil, nil
	}

	b := api.NewGraph("bounded").Stage("a", setField("a"))
	for i := 0; i < 6; i++ {
		b.Stage(fmt.Sprintf("p%d", i), parallel, "a")
	}
	fanIn := make([]string, 6)
	for i := range fanIn {
		fanIn[i] = fmt.Sprintf("p%d", i)
	}
	g := b.Stage("z", setField("z"), fanIn...).MustBuild()

	if _, err := New(2, nil).Execute(context.Background(), "run-1", g, api.NewState(nil)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent stages, saw %d", p)
	}
}

func TestExecute_ParallelStagesActuallyOverlap(t *testing.T) {
	var mu sync.Mutex
	var running, peak int
	parallel := func(ctx context.Context, snap *api.State) (api.Fields, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	}

	g := api.NewGraph("overlap").
		Stage("a", setField("a")).
		Stage("b", parallel, "a").
		Stage("c", parallel, "a").
		Stage("d", setField("d"), "b", "c").
		MustBuild()

	if _, err := New(4, nil).Execute(context.Background(), "run-1", g, api.NewState(nil)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak < 2 {
		t.Fatalf("independent stages should overlap, peak concurrency was %d", peak)
	}
}

func TestExecute_DeadlineStopsDispatchButDrainsInFlight(t *testing.T) {
	slow := func(ctx context.Context, snap *api.State) (api.Fields, error) {
		time.Sleep(60 * time.Millisecond)
		return api.Fields{"slow": true}, nil
	}

	g := api.NewGraph("deadline").
		Stage("a", setField("a")).
		Stage("b", slow, "a").
		Stage("c", setField("c"), "b").
		MustBuild()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	state := api.NewState(nil)
	statuses, err := New(2, nil).Execute(ctx, "run-1", g, state)
	if !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("expected ErrDeadlineExceeded, got %v", err)
	}

	// The in-flight stage finished and its result was merged.
	if v, ok := state.Get("slow"); !ok || v != true {
		t.Fatalf("in-flight stage result must be merged, got %v", state.Fields)
	}
	if statuses["b"] != api.StageDone {
		t.Fatalf("expected b DONE, got %q", statuses["b"])
	}
	// Nothing downstream was dispatched after the deadline.
	if statuses["c"] != api.StageWaiting {
		t.Fatalf("expected c WAITING, got %q", statuses["c"])
	}
}

func TestExecute_ObserverSeesStageLifecycle(t *testing.T) {
	g := api.NewGraph("observed").
		Stage("a", setField("a")).
		Stage("b", func(ctx context.Context, snap *api.State) (api.Fields, error) {
			return nil, errors.New("boom")
		}, "a").
		Stage("c", setField("c"), "b").
		MustBuild()

	log := &api.EventLog{}
	if _, err := New(2, log).Execute(context.Background(), "run-1", g, api.NewState(nil)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	byType := map[api.EventType]int{}
	for _, ev := range log.Events() {
		byType[ev.Type]++
	}
	if byType[api.EventStageStarted] != 3 {
		t.Fatalf("expected 3 stage starts, got %d", byType[api.EventStageStarted])
	}
	if byType[api.EventStageCompleted] != 2 || byType[api.EventStageFailed] != 1 {
		t.Fatalf("expected 2 completions and 1 failure, got %+v", byType)
	}
}
