// Package trigger owns the data model of the trigger decision pipeline.
//
// Responsibilities: the immutable Primitive (TP), Activity (TA) and
// Candidate (TC) value types, their algorithm/type tags, the shared
// summary helpers used by every maker, and the trigger log streams.
// Key types: Primitive, Activity, ActivitySummary, Candidate.
//
// Dependency rule: this package depends only on the standard library and
// golang.org/x/time/rate. The window, adjacency, dbscan, activity,
// candidate, registry, pipeline, telemetry, tpio and report subpackages
// depend on it, never the other way around.
package trigger
