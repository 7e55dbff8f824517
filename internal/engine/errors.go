package engine

import "fmt"

// Session lifecycle states.
const (
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
)

// NotFoundError reports a missing session or concept.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// InvalidStateError reports an operation applied to a session whose
// state does not permit it.
type InvalidStateError struct {
	SessionID string
	State     string
	Op        string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: session %s is %s", e.Op, e.SessionID, e.State)
}

// ValidationError reports rejected input. No state is mutated when one
// is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
