// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream marks failures of a dependency such as the database.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrUnavailable marks a feature switched off by configuration.
	ErrUnavailable = errors.New("service unavailable")
)

// StatusClientClosedRequest is the nginx convention for requests abandoned by
// the client.
const StatusClientClosedRequest = 499

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Timeout", "")
	case errors.Is(err, ErrUpstream):
		Problem(w, http.StatusBadGateway, "Upstream Unavailable", "")
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	case errors.Is(err, context.Canceled):
		// The client is gone; the status only reaches logs and metrics.
		Problem(w, StatusClientClosedRequest, "Client Closed Request", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
