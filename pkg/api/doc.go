// Package api defines the core types of the wayfarer workflow engine:
// run state, stage definitions, validated stage graphs, run results, and
// the Observer interface used for logging and metrics.
//
// Most applications interact with the root wayfarer package, which
// re-exports the types defined here.
package api
