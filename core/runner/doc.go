// Package runner coordinates a batch run: it submits one scheduler task per
// version and chunk, joins them all and reports the run to a Listener.
package runner
