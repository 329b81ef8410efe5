package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gatekeeper/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

type stubRevocations struct {
	revoked bool
	err     error
}

func (r stubRevocations) IsTokenRevoked(context.Context, string) (bool, error) {
	return r.revoked, r.err
}

func serve(t *testing.T, validator JWTValidator, revocations TokenRevocationChecker, header string) (*httptest.ResponseRecorder, context.Context) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	var seen context.Context
	h := RequireAuth(validator, revocations, logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Context()
	}))

	r := httptest.NewRequest(http.MethodGet, "/guilds/g1/config", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w, seen
}

func TestRequireAuth(t *testing.T) {
	valid := stubValidator{claims: &JWTClaims{Subject: "ops", Guilds: []string{"g1"}, JTI: "j1"}}

	t.Run("missing header", func(t *testing.T) {
		w, seen := serve(t, valid, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, seen)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		w, _ := serve(t, valid, nil, "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w, _ := serve(t, stubValidator{err: errors.New("bad")}, nil, "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("valid token sets admin scope", func(t *testing.T) {
		w, seen := serve(t, valid, nil, "Bearer x")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops", requestcontext.AdminSubject(seen))
		assert.Equal(t, []string{"g1"}, requestcontext.AdminGuilds(seen))
	})

	t.Run("revoked token", func(t *testing.T) {
		w, _ := serve(t, valid, stubRevocations{revoked: true}, "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "revoked")
	})

	t.Run("revocation lookup failure", func(t *testing.T) {
		w, _ := serve(t, valid, stubRevocations{err: errors.New("redis down")}, "Bearer x")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
