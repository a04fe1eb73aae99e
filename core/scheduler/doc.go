// Package scheduler runs one chunk of one version as an asynchronous task:
// it prepares a scratch directory, runs the solver through an Executor,
// decodes the per-variant result files into series and delivers them to a
// ResultSink. Every task reaches exactly one Outcome, reported through its
// Handle.
package scheduler
