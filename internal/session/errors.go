package session

import (
	"errors"
	"fmt"
)

// ErrSessionUsed is returned by Run on a session that is not idle.
var ErrSessionUsed = errors.New("session already started")

// SourceError reports a failure of the token source. The Result returned
// next to it still carries the template accumulated before the failure.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("token source failed: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsSourceError reports whether err is a token source failure.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
