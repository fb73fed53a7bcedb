package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewNotFound("roadmap", "abc"), http.StatusNotFound},
		{NewInvalidInput("bad", nil), http.StatusBadRequest},
		{NewConfiguration("API key not found"), http.StatusServiceUnavailable},
		{NewGeneration("empty", nil), http.StatusBadGateway},
		{NewTransport("gemini", errors.New("boom")), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", NewUnauthorized("x", nil)), http.StatusUnauthorized},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToHTTPStatus(tc.err), tc.err.Error())
	}
}

func TestTrimBackendPrefix(t *testing.T) {
	assert.Equal(t, "API key not valid.", TrimBackendPrefix("googleapi: Error 400: API key not valid."))
	assert.Equal(t, "quota exceeded", TrimBackendPrefix("rpc error: code = ResourceExhausted desc = quota exceeded"))
	assert.Equal(t, "model not found", TrimBackendPrefix("error, status code: 404, status: 404 Not Found, message: model not found"))
	assert.Equal(t, "duplicate key", TrimBackendPrefix("  ERROR: duplicate key "))
	assert.Equal(t, "untouched text", TrimBackendPrefix("untouched text"))
}

func TestNewTransportKeepsTrimmedMessage(t *testing.T) {
	err := NewTransport("chat stream", errors.New("googleapi: Error 503: backend overloaded"))
	assert.Equal(t, "backend overloaded", err.Message)
	assert.ErrorIs(t, err, ErrTransport)
}
