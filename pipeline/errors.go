package pipeline

import "fmt"

// ErrorKind classifies a stage failure for the propagation policy.
type ErrorKind string

const (
	// ErrSourceUnavailable marks an external source that could not be
	// reached. Recoverable when other sources produced data.
	ErrSourceUnavailable ErrorKind = "source_unavailable"
	// ErrNoUsableData marks a stage that produced nothing to continue
	// with. Always blocking.
	ErrNoUsableData ErrorKind = "no_usable_data"
	// ErrMalformedResponse marks a model response that could not be
	// parsed even leniently. Blocking.
	ErrMalformedResponse ErrorKind = "malformed_response"
	// ErrTimeout marks a run cut short by context cancellation.
	ErrTimeout ErrorKind = "timeout"
)

// RunError is a classified failure attached to the run state. Stages
// never return errors directly; they record one of these and return.
type RunError struct {
	Kind  ErrorKind
	Stage StageName
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Blocking reports whether the failure halts the run. Source and timing
// trouble is absorbed as a notice when the run still has material to
// work with; missing or unparseable data is not.
func (e *RunError) Blocking() bool {
	return e.Kind == ErrNoUsableData || e.Kind == ErrMalformedResponse
}

func newRunError(kind ErrorKind, stage StageName, format string, v ...any) *RunError {
	return &RunError{Kind: kind, Stage: stage, Err: fmt.Errorf(format, v...)}
}
