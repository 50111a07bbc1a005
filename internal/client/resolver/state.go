package resolver

import (
	"errors"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
)

// State is the lifecycle state of one item's resolution.
type State string

const (
	StatePending     State = "pending"
	StateResolved    State = "resolved"
	StateNotFound    State = "not-found"
	StateUnavailable State = "unavailable"
	StateError       State = "error"
)

// Terminal reports whether s is a final outcome.
func (s State) Terminal() bool {
	return s != StatePending && s != ""
}

// StateFor maps a resolution error to its terminal state. A nil error is
// resolved. Unavailable and not-found are never retried automatically;
// everything else is a retryable error.
func StateFor(err error) State {
	switch {
	case err == nil:
		return StateResolved
	case errors.Is(err, client.ErrUnavailable):
		return StateUnavailable
	case errors.Is(err, client.ErrNotFound):
		return StateNotFound
	default:
		return StateError
	}
}
