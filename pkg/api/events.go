package api

import (
	"context"
	"sync"
	"time"
)

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"

	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageFailed    EventType = "stage.failed"

	EventCacheHit  EventType = "cache.hit"
	EventCacheMiss EventType = "cache.miss"
)

// RunEvent is a minimal append-only record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  EventType

	// Optional context.
	Graph string
	Stage string

	// Small, human-oriented details (e.g. error string, operation name).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}

// EventLog is an Observer that records RunEvents in memory, in arrival
// order. It is primarily useful in tests and for debugging a single run.
type EventLog struct {
	NoopObserver

	mu     sync.Mutex
	events []RunEvent
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []RunEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RunEvent(nil), l.events...)
}

func (l *EventLog) append(ev RunEvent) {
	ev.At = time.Now()
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *EventLog) OnRunStart(ctx context.Context, runID, graph string) {
	l.append(RunEvent{RunID: runID, Type: EventRunStarted, Graph: graph})
}

func (l *EventLog) OnRunCompleted(ctx context.Context, runID string, state *State, d time.Duration) {
	l.append(RunEvent{RunID: runID, Type: EventRunCompleted})
}

func (l *EventLog) OnRunFailed(ctx context.Context, runID string, err error) {
	l.append(RunEvent{RunID: runID, Type: EventRunFailed, Detail: err.Error()})
}

func (l *EventLog) OnStageStart(ctx context.Context, runID, stage string) {
	l.append(RunEvent{RunID: runID, Type: EventStageStarted, Stage: stage})
}

func (l *EventLog) OnStageCompleted(ctx context.Context, runID, stage string, err error, d time.Duration) {
	typ := EventStageCompleted
	detail := ""
	if err != nil {
		typ = EventStageFailed
		detail = err.Error()
	}
	l.append(RunEvent{RunID: runID, Type: typ, Stage: stage, Detail: detail})
}

func (l *EventLog) OnCacheHit(ctx context.Context, namespace, collaborator, operation string) {
	l.append(RunEvent{Type: EventCacheHit, Detail: collaborator + ":" + operation})
}

func (l *EventLog) OnCacheMiss(ctx context.Context, namespace, collaborator, operation string) {
	l.append(RunEvent{Type: EventCacheMiss, Detail: collaborator + ":" + operation})
}
