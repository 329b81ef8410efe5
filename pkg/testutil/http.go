// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewRequestWithBody creates an HTTP request with a string body. An empty
// body sends no body at all.
func NewRequestWithBody(t *testing.T, method, path string, body string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse unmarshals the response body into the target struct.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "failed to unmarshal response")
	return &result
}

// ErrorDescription returns the error_description of a JSON error response.
func ErrorDescription(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var result map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "failed to unmarshal error response")
	return result["error_description"]
}
