// internal/api/middleware/auth_test.go
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage-ledger/internal/util"
)

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator("s3cret", "idp", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestVerify(t *testing.T) {
	auth := newTestAuthenticator()
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}

	t.Run("round trip", func(t *testing.T) {
		raw, err := auth.Sign(Identity{UserID: "alice", Role: RoleAdmin}, valid)
		require.NoError(t, err)
		id, err := auth.Verify(raw)
		require.NoError(t, err)
		assert.Equal(t, "alice", id.UserID)
		assert.True(t, id.IsAdmin())
	})

	t.Run("expired", func(t *testing.T) {
		raw, err := auth.Sign(Identity{UserID: "alice"}, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})
		require.NoError(t, err)
		_, err = auth.Verify(raw)
		assert.True(t, util.IsError(err, util.ErrUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw, err := auth.Sign(Identity{UserID: "alice"}, jwt.RegisteredClaims{Issuer: "elsewhere"})
		require.NoError(t, err)
		_, err = auth.Verify(raw)
		assert.True(t, util.IsError(err, util.ErrUnauthorized))
	})

	t.Run("no subject", func(t *testing.T) {
		raw, err := auth.Sign(Identity{UserID: "  "}, valid)
		require.NoError(t, err)
		_, err = auth.Verify(raw)
		assert.True(t, util.IsError(err, util.ErrUnauthorized))
	})

	t.Run("unsigned token", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: "idp"}}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.Verify(raw)
		assert.True(t, util.IsError(err, util.ErrUnauthorized))
	})
}

func TestMiddleware(t *testing.T) {
	auth := newTestAuthenticator()
	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := auth.Authenticate(RequireAdmin(next))

	serve := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	user, err := auth.Sign(Identity{UserID: "bob"}, jwt.RegisteredClaims{})
	require.NoError(t, err)
	admin, err := auth.Sign(Identity{UserID: "root", Role: RoleAdmin}, jwt.RegisteredClaims{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(""))
	assert.Equal(t, http.StatusUnauthorized, serve("Basic Ym9iOnB3"))
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer garbage"))
	assert.Equal(t, http.StatusForbidden, serve("Bearer "+user))
	assert.Equal(t, http.StatusNoContent, serve("Bearer "+admin))
	assert.Equal(t, "root", seen.UserID)
}
