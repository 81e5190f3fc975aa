// Package handler implements the HTTP and WebSocket endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
)

// APIFunc is an HTTP handler that reports failures by returning an error.
type APIFunc func(w http.ResponseWriter, r *http.Request) error

// StatusError is an error with the HTTP status it should be answered with.
type StatusError struct {
	Err    error
	Status int
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError returns a StatusError with message msg.
func NewStatusError(status int, msg string) *StatusError {
	return &StatusError{Err: errors.New(msg), Status: status}
}

// MakeHandler adapts an APIFunc. Returned errors are written as
// {"error": message} with a status derived from the error.
func MakeHandler(log *logger.Logger, f APIFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}

		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		} else {
			log.Debug("%s %s rejected (%d): %v", r.Method, r.URL.Path, status, err)
		}
		writeError(w, status, messageFor(err))
	}
}

// messageFor is the client-facing text of err. Image input errors are
// reported without the decoder detail they may wrap.
func messageFor(err error) string {
	for _, sentinel := range []error{common.ErrNoImage, common.ErrDecodeImage} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func statusFor(err error) int {
	var statusError *StatusError
	if errors.As(err, &statusError) {
		return statusError.Status
	}
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrNoImage),
		errors.Is(err, common.ErrDecodeImage),
		errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, common.ErrStoreDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return NewStatusError(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return NewStatusError(http.StatusBadRequest, "Invalid JSON body")
	}
	return nil
}
