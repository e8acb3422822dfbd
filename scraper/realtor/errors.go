package realtor

import (
	"context"
	"errors"
)

var (
	// ErrTransport marks a failed exchange with the session. It ends the
	// current search only.
	ErrTransport = errors.New("realtor: transport failure")
	// ErrParse marks a captured batch that could not be decoded. Such batches
	// are skipped.
	ErrParse = errors.New("realtor: malformed result batch")
	// ErrNavigation marks a failed navigation or page interaction. It ends
	// the current search only.
	ErrNavigation = errors.New("realtor: navigation failed")
	// ErrSessionLost marks a session that can no longer be driven. It ends
	// the whole run.
	ErrSessionLost = errors.New("realtor: browser session lost")
)

// IsFatal reports whether err must abort the run rather than the current
// search.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionLost) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
