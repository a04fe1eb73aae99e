// Package events defines the lifecycle events published while a batch run
// executes.
//
// Available event types:
//   - ChunkStarted: a chunk task got its scratch directory
//   - ChunkFinished: a chunk task reached its outcome
//   - RunFinished: every chunk of a run has been joined
package events
