package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidGraph is wrapped by all graph construction errors.
var ErrInvalidGraph = errors.New("invalid graph")

// StageFunc is a single stage in a workflow graph. It receives a snapshot
// of the run state and returns a partial update to merge, or an error.
//
// Stages must treat the snapshot as read-only and put every result into the
// returned Fields. A stage that fails may still return partial Fields; the
// executor merges them before recording the error.
type StageFunc func(ctx context.Context, snap *State) (Fields, error)

// StageDefinition describes a named stage and its upstream dependencies.
type StageDefinition struct {
	Name     string
	Upstream []string
	Fn       StageFunc
}

// Graph is a validated directed acyclic graph of stages with exactly one
// entry and one sink. Graphs are immutable once built.
type Graph struct {
	name       string
	stages     []StageDefinition
	byName     map[string]int
	downstream map[string][]string
	entry      string
	sink       string
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Stages returns the stage definitions in registration order.
func (g *Graph) Stages() []StageDefinition { return g.stages }

// Stage returns the definition for a stage name.
func (g *Graph) Stage(name string) (StageDefinition, bool) {
	i, ok := g.byName[name]
	if !ok {
		return StageDefinition{}, false
	}
	return g.stages[i], true
}

// Downstream returns the names of stages that list name as an upstream.
func (g *Graph) Downstream(name string) []string { return g.downstream[name] }

// Entry returns the single entry stage name.
func (g *Graph) Entry() string { return g.entry }

// Sink returns the single terminal stage name.
func (g *Graph) Sink() string { return g.sink }

// GraphBuilder assembles a Graph:
//
//	g, err := api.NewGraph("plan").
//	    Stage("fetch", fetch).
//	    Stage("score", score, "fetch").
//	    Stage("report", report, "score").
//	    Build()
//
// Stages must be registered before they are referenced as upstream, which
// also guarantees the result is acyclic.
type GraphBuilder struct {
	name   string
	stages []StageDefinition
}

// NewGraph creates a builder for a graph with the given name.
func NewGraph(name string) *GraphBuilder {
	return &GraphBuilder{name: name}
}

// Stage appends a stage with the given upstream dependencies.
// Empty names and nil functions are programmer errors and panic, in line
// with builder misuse being unrecoverable.
func (b *GraphBuilder) Stage(name string, fn StageFunc, upstream ...string) *GraphBuilder {
	if name == "" {
		panic("wayfarer: stage name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("wayfarer: stage %q has nil function", name))
	}
	b.stages = append(b.stages, StageDefinition{
		Name:     name,
		Upstream: append([]string(nil), upstream...),
		Fn:       fn,
	})
	return b
}

// Build validates the assembled stages and returns an immutable Graph.
// All violations are structural errors wrapping ErrInvalidGraph.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.name == "" {
		return nil, fmt.Errorf("%w: graph name is required", ErrInvalidGraph)
	}
	if len(b.stages) == 0 {
		return nil, fmt.Errorf("%w: graph %q has no stages", ErrInvalidGraph, b.name)
	}

	byName := make(map[string]int, len(b.stages))
	downstream := make(map[string][]string)

	for i, st := range b.stages {
		if _, dup := byName[st.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", ErrInvalidGraph, st.Name)
		}
		for _, up := range st.Upstream {
			if up == st.Name {
				return nil, fmt.Errorf("%w: stage %q depends on itself", ErrInvalidGraph, st.Name)
			}
			if _, ok := byName[up]; !ok {
				// Forward references are rejected outright; registering in
				// dependency order keeps the graph acyclic by construction.
				return nil, fmt.Errorf("%w: stage %q references unregistered upstream %q", ErrInvalidGraph, st.Name, up)
			}
			downstream[up] = append(downstream[up], st.Name)
		}
		byName[st.Name] = i
	}

	var entries, sinks []string
	for _, st := range b.stages {
		if len(st.Upstream) == 0 {
			entries = append(entries, st.Name)
		}
		if len(downstream[st.Name]) == 0 {
			sinks = append(sinks, st.Name)
		}
	}
	if len(entries) != 1 {
		return nil, fmt.Errorf("%w: graph %q must have exactly one entry stage, found %d", ErrInvalidGraph, b.name, len(entries))
	}
	if len(sinks) != 1 {
		return nil, fmt.Errorf("%w: graph %q must have exactly one sink stage, found %d", ErrInvalidGraph, b.name, len(sinks))
	}

	g := &Graph{
		name:       b.name,
		stages:     append([]StageDefinition(nil), b.stages...),
		byName:     byName,
		downstream: downstream,
		entry:      entries[0],
		sink:       sinks[0],
	}

	// Every stage must sit on a path from the entry to the sink.
	reachable := g.walk(g.entry, func(name string) []string { return g.downstream[name] })
	reaching := g.walk(g.sink, func(name string) []string {
		st, _ := g.Stage(name)
		return st.Upstream
	})
	for _, st := range g.stages {
		if !reachable[st.Name] {
			return nil, fmt.Errorf("%w: stage %q is not reachable from entry %q", ErrInvalidGraph, st.Name, g.entry)
		}
		if !reaching[st.Name] {
			return nil, fmt.Errorf("%w: stage %q cannot reach sink %q", ErrInvalidGraph, st.Name, g.sink)
		}
	}

	return g, nil
}

// MustBuild is like Build but panics on error. Useful for fixed graphs
// assembled at startup.
func (b *GraphBuilder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) walk(from string, next func(string) []string) map[string]bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next(cur) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}
