package thumbnail

import (
	"errors"

	"github.com/snapthumb/snapthumb/internal/shared"
)

// ErrNotFound is an alias for shared.ErrNotFound so callers can match on
// either name; NotFound below always wraps the shared sentinel.
var ErrNotFound = shared.ErrNotFound

// ErrInvalidTransition is the sentinel behind every illegal Status change,
// raised by both Job.ApplyTransition and JobStore.SetStatus.
var ErrInvalidTransition = errors.New("invalid status transition")

// InvalidTransition wraps ErrInvalidTransition with the offending from/to pair.
func InvalidTransition(from, to Status) error {
	return shared.NewFieldError(ErrInvalidTransition, "status",
		string(from)+" -> "+string(to)+" is not a legal transition")
}

// NotFound wraps ErrNotFound with the entity kind that was missing.
func NotFound(kind string) error {
	return shared.NewDomainError(ErrNotFound, kind+" not found")
}
