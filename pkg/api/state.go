package api

import (
	"time"
)

// RunStatus represents the lifecycle state of a single run.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// StageStatus represents the lifecycle state of one stage within a run.
type StageStatus string

const (
	StageWaiting StageStatus = "WAITING"
	StageRunning StageStatus = "RUNNING"
	StageDone    StageStatus = "DONE"
	StageErrored StageStatus = "ERRORED"
)

// Fields is a partial state update returned by a stage. The executor merges
// updates into the run state in stage completion order (last writer wins).
type Fields map[string]any

// StageError records a stage-level failure. Stage errors never abort a run;
// they accumulate on the state so callers can judge the partial result.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// State is the shared state of one run: a field map written by stages plus
// the execution-tracking lists.
//
// The executor exclusively owns the live State for the duration of a run.
// Stages receive snapshots and must never retain or mutate them after
// returning. Mutating methods (Apply, MarkCompleted, RecordError) are not
// safe for concurrent use; the executor serializes them.
type State struct {
	Fields         Fields       `json:"fields"`
	StepsCompleted []string     `json:"steps_completed"`
	Errors         []StageError `json:"errors"`
}

// NewState creates a State seeded with the given initial fields.
func NewState(initial Fields) *State {
	f := make(Fields, len(initial))
	for k, v := range initial {
		f[k] = v
	}
	return &State{
		Fields:         f,
		StepsCompleted: []string{},
		Errors:         []StageError{},
	}
}

// Snapshot returns a copy of the state safe to hand to a concurrently
// running stage. Field values are shared (stages treat them as read-only
// by convention); the containers are copied.
func (s *State) Snapshot() *State {
	f := make(Fields, len(s.Fields))
	for k, v := range s.Fields {
		f[k] = v
	}
	return &State{
		Fields:         f,
		StepsCompleted: append([]string(nil), s.StepsCompleted...),
		Errors:         append([]StageError(nil), s.Errors...),
	}
}

// Apply merges a partial update into the state, overwriting existing fields.
func (s *State) Apply(update Fields) {
	for k, v := range update {
		s.Fields[k] = v
	}
}

// MarkCompleted appends a stage name to the completion sequence.
func (s *State) MarkCompleted(stage string) {
	s.StepsCompleted = append(s.StepsCompleted, stage)
}

// RecordError appends a stage error. The errors list is append-only within
// a run.
func (s *State) RecordError(stage string, err error) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: err.Error()})
}

// Get returns a field value by name.
func (s *State) Get(name string) (any, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// String returns a string field, or "" if absent or of another type.
func (s *State) String(name string) string {
	v, _ := s.Fields[name].(string)
	return v
}

// Int returns an integer field, or 0 if absent or of another type.
func (s *State) Int(name string) int {
	switch v := s.Fields[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// RunResult is the immutable outcome of one run.
//
// A result with Status RunCompleted may still carry stage errors in
// State.Errors; callers must inspect them to decide whether the (possibly
// partial) result is acceptable. RunFailed is reserved for structural
// errors and deadline expiry.
type RunResult struct {
	ID       string
	Graph    string
	Status   RunStatus
	State    *State
	Err      error
	Duration time.Duration
}

// Success reports whether the run completed without a run-level error.
func (r *RunResult) Success() bool {
	return r.Status == RunCompleted
}
