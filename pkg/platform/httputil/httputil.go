// Package httputil holds the JSON helpers shared by HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
)

// maxBodyBytes bounds admin request bodies; every payload is a handful of ids.
const maxBodyBytes = 64 << 10

// Validatable is implemented by request bodies that check and normalize themselves.
type Validatable interface {
	Validate() error
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates err into a JSON error envelope. Internal and
// unavailable errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
	default:
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.HTTPStatus(code), resp)
}

// DecodeAndPrepare decodes the JSON body into T and validates it. On failure it
// writes the error response itself and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
			return nil, false
		}
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if err := PT(&req).Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
