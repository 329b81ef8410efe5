package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatekeeper/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("validation error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "Max attempts must be between 1 and 10."))

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "Max attempts must be between 1 and 10.", body["error_description"])
	})

	t.Run("plain error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type nameRequest struct {
	Name string `json:"name"`
}

func (r *nameRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func decode(body string) (*nameRequest, *httptest.ResponseRecorder, bool) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	out, ok := DecodeAndPrepare[nameRequest](w, req, logger, context.Background(), "req-1")
	return out, w, ok
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("valid body is normalized", func(t *testing.T) {
		out, _, ok := decode(`{"name":"  gate  "}`)
		require.True(t, ok)
		assert.Equal(t, "gate", out.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		_, w, ok := decode("")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, w, ok := decode(`{"nickname":"x"}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		_, w, ok := decode(`{"name":" "}`)
		assert.False(t, ok)
		assert.Contains(t, w.Body.String(), "name is required")
	})
}
