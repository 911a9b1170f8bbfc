package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies API failures so callers can decide between a
// terminal view state and a manual retry affordance.
type ErrorKind int

const (
	// KindTransient covers timeouts and connection drops; worth retrying.
	KindTransient ErrorKind = iota
	// KindValidation covers rejected input; never retried.
	KindValidation
	// KindUnauthorized covers auth failures and non-participants; terminal.
	KindUnauthorized
	// KindNotFound covers missing conversations or messages; terminal.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// APIError is a classified failure from the conversation API.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf extracts the error kind; unclassified errors count as transient.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

func kindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindTransient
	}
}
