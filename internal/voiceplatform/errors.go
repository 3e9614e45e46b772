package voiceplatform

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindNotFound    ErrorKind = "not_found"
	ErrKindUnknown     ErrorKind = "unknown"
)

// PlatformError is a typed failure from the remote voice platform.
type PlatformError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("voice platform error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// IsAuthError reports whether err is, or wraps, a credential-rejected
// platform error.
func IsAuthError(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.Kind == ErrKindAuth
}

// IsNotFound reports whether err is, or wraps, a missing-registration
// platform error.
func IsNotFound(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.Kind == ErrKindNotFound
}

func kindFromStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrKindAuth
	case status == 404:
		return ErrKindNotFound
	case status == 429:
		return ErrKindRateLimited
	default:
		return ErrKindUnknown
	}
}
