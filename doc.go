// Package wayfarer provides an embeddable travel-planning pipeline for Go.
//
// Wayfarer turns a planning request (destination, budget, days, travelers)
// into a full travel plan by running a fixed workflow graph: data
// acquisition through cached collaborator adapters, four analysis stages
// executed in parallel, and converging planning and summary stages. It runs
// fully in-process and persists its cache in an embedded SQLite database.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Graph
//  2. Runner
//  3. Collaborator adapters
//  4. Observer
//
// # Graph
//
// A Graph is a validated directed acyclic graph of named stages with
// exactly one entry and one sink. Stages declare their upstream
// dependencies when registered; the builder rejects cycles, duplicate
// names, and stages that do not sit on a path from the entry to the sink.
//
// Stage errors never abort a run. A failed stage is recorded on the run
// state and execution continues with whatever partial data is available, so
// the sink always gets a chance to produce a (possibly degraded) result.
//
// # Runner
//
// A Runner owns one configured pipeline: the cache store, the collaborator
// adapters, and the executor. Run executes the travel-planning graph once
// and returns a RunResult; Plan additionally unpacks the final state into a
// typed PlanResult.
//
// # Collaborator adapters
//
// External services (place APIs, scrapers) are reached through adapters
// that add a read-through TTL cache, bounded exponential-backoff retry, and
// per-adapter rate limiting. Volatile data and stable reference data are
// cached in separate namespaces with independent TTLs.
//
// # Observer
//
// Observers receive run, stage, and cache lifecycle callbacks. The package
// ships a structured-logging observer (log/slog), a counter-based metrics
// observer, and a composite that fans out to several observers at once.
//
// # Example
//
//	runner, err := wayfarer.NewRunner(config.Default(), wayfarer.Collaborators{},
//	    wayfarer.NewLoggingObserver(nil))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer runner.Close()
//
//	result, err := runner.Plan(ctx, travel.Params{
//	    Destination: "Lisbon", Budget: 2400, Days: 5, Travelers: 2,
//	})
package wayfarer
