// Package defaults centralizes timeout values used across the pipeline.
//
// Keeping them in one place makes the relationships between them visible:
// the overall mirror timeout must exceed the conversion timeout, which in
// turn dominates everything else a run does.
package defaults
