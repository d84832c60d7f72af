package gateway

import (
	"errors"
	"net/http"
)

type Kind int

const (
	InvalidRequest Kind = iota + 1
	UpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case UpstreamFailure:
		return "upstream_failure"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a gateway error of this kind maps to.
func (k Kind) Status() int {
	if k == InvalidRequest {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is returned by Gateway.Complete. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

// StatusOf maps any error to an HTTP status. Errors that are not *Error are
// treated as upstream failures.
func StatusOf(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status()
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err is a gateway error of kind k.
func IsKind(err error, k Kind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == k
}
