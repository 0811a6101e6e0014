package wayfarer

import (
	"github.com/wayfarer-dev/wayfarer/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	State                = api.State
	Fields               = api.Fields
	StageError           = api.StageError
	StageFunc            = api.StageFunc
	StageDefinition      = api.StageDefinition
	Graph                = api.Graph
	GraphBuilder         = api.GraphBuilder
	RunResult            = api.RunResult
	RunStatus            = api.RunStatus
	StageStatus          = api.StageStatus
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common constructors.

var (
	NewGraph             = api.NewGraph
	NewState             = api.NewState
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// ErrInvalidGraph is wrapped by all graph construction errors.
var ErrInvalidGraph = api.ErrInvalidGraph

// Re-export status values for convenience.

const (
	RunPending   = api.RunPending
	RunRunning   = api.RunRunning
	RunCompleted = api.RunCompleted
	RunFailed    = api.RunFailed

	StageWaiting = api.StageWaiting
	StageRunning = api.StageRunning
	StageDone    = api.StageDone
	StageErrored = api.StageErrored
)
