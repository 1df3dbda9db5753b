package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-compass/internal/apperror"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func TestResponderError_StatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperror.ValidationFailed("page", "page must be at least 1"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad request keeps its code", apperror.BadRequest("MISSING_QUERY", "Search query is required"), http.StatusBadRequest, "MISSING_QUERY"},
		{"unauthorized", apperror.Unauthorized("Invalid token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"token expired", apperror.TokenExpired(), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{"wrapped not found", fmt.Errorf("service/catalog: %w", apperror.NotFound("template", "x")), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperror.Conflict("user", "email"), http.StatusConflict, "DUPLICATE_FIELD"},
		{"timeout", apperror.Timeout("sqlite: get", context.DeadlineExceeded), http.StatusServiceUnavailable, "TIMEOUT"},
		{"unavailable", apperror.Unavailable("sqlite: get", errors.New("closed")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	rs := NewResponder(quietLogger(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rs.Error(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestResponderError_Details(t *testing.T) {
	rs := NewResponder(quietLogger(), false)

	t.Run("validation lists fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rs.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperror.Validation([]apperror.FieldError{
			{Field: "page", Message: "page must be at least 1"},
			{Field: "limit", Message: "limit must be at most 100"},
		}))
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		var details []apperror.FieldError
		require.NoError(t, json.Unmarshal(env.Error.Details, &details))
		assert.Len(t, details, 2)
		assert.Equal(t, "Validation failed", env.Error.Message)
	})

	t.Run("conflict names the field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rs.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperror.Conflict("user", "email"))
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Contains(t, string(env.Error.Details), `"field":"email"`)
	})

	t.Run("internal text hidden outside development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rs.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("sqlite: table users is locked"))
		assert.NotContains(t, rec.Body.String(), "locked")
	})

	t.Run("internal text shown in development", func(t *testing.T) {
		dev := NewResponder(quietLogger(), true)
		rec := httptest.NewRecorder()
		dev.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("sqlite: table users is locked"))
		assert.Contains(t, rec.Body.String(), "locked")
	})
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"name":"x"}`, true},
		{"malformed", `{"name":`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), req, &v)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, "INVALID_JSON", apperror.Code(err))
		})
	}
}

func TestResponderNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponder(quietLogger(), false).NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Contains(t, env.Error.Message, "/nope")
}
