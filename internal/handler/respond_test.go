package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewStatusError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{common.ErrNoImage, http.StatusBadRequest},
		{common.ErrDecodeImage, http.StatusBadRequest},
		{fmt.Errorf("%w: bad email", common.ErrInvalidInput), http.StatusBadRequest},
		{common.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", common.ErrNotFound), http.StatusNotFound},
		{common.ErrAlreadyExists, http.StatusConflict},
		{common.ErrNotSupported, http.StatusNotImplemented},
		{common.ErrStoreDisabled, http.StatusServiceUnavailable},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestMakeHandler(t *testing.T) {
	h := MakeHandler(logger.Discard(), func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("detector on fire")
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"detector on fire"}`, rec.Body.String())
}

func TestMakeHandler_NoError(t *testing.T) {
	h := MakeHandler(logger.Discard(), func(w http.ResponseWriter, r *http.Request) error {
		return writeJSON(w, http.StatusAccepted, map[string]int{"n": 1})
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestMessageFor(t *testing.T) {
	assert.Equal(t, "Failed to decode image", messageFor(fmt.Errorf("%w: imdecode failed", common.ErrDecodeImage)))
	assert.Equal(t, "No image provided", messageFor(fmt.Errorf("frame: %w", common.ErrNoImage)))
	assert.Equal(t, "model crashed", messageFor(errors.New("model crashed")))
}
