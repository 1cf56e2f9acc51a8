package session

import "errors"

// ValidationError is a local precondition failure (password too short,
// confirmation mismatch). It is raised before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrMalformedCallback is returned when the callback route is invoked with
// neither fragment tokens nor an authorization code.
var ErrMalformedCallback = errors.New("callback carried neither tokens nor an authorization code")
