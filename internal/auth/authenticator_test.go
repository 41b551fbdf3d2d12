package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/booking-ledger/internal/common"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(Config{Secret: "super-secret-key", Issuer: "booking-ledger", Audience: "booking-web"})
	require.NoError(t, err)
	fixed := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	a.WithNow(func() time.Time { return fixed })
	return a
}

func TestAuthenticatorRoundTrip(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.Issue(common.Actor{UserID: "user-1", Admin: true}, time.Minute)
	require.NoError(t, err)
	actor, err := a.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", actor.UserID)
	require.True(t, actor.Admin)

	token, err = a.Issue(common.Actor{UserID: "user-2", Roles: []string{"partner"}}, time.Minute)
	require.NoError(t, err)
	actor, err = a.ParseAccessToken(token)
	require.NoError(t, err)
	require.False(t, actor.Admin)
	require.Equal(t, []string{"partner"}, actor.Roles)
}

func TestAuthenticatorRejects(t *testing.T) {
	a := newTestAuthenticator(t)

	_, err := a.ParseAccessToken("  ")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "UNAUTHORIZED", appErr.Code)

	token, err := a.Issue(common.Actor{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)
	a.WithNow(func() time.Time { return time.Date(2026, time.May, 1, 13, 0, 0, 0, time.UTC) })
	_, err = a.ParseAccessToken(token)
	require.Error(t, err, "expired")

	built, err := jwt.NewBuilder().Subject("user-1").Issuer("booking-ledger").Audience([]string{"booking-web"}).
		IssuedAt(time.Now()).Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, []byte("super-secret-key")))
	require.NoError(t, err)
	_, err = a.ParseAccessToken(string(signed))
	require.Error(t, err, "algorithm mismatch")

	_, err = NewAuthenticator(Config{})
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	mw := Middleware{Authenticator: a}
	var seen common.Actor
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = common.ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	mw.RequireAuth(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.False(t, ok)

	token, err := a.Issue(common.Actor{UserID: "admin-1", Admin: true}, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mw.RequireAuth(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.True(t, ok)
	require.Equal(t, "admin-1", seen.UserID)
	require.True(t, seen.Admin)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	mw := Middleware{Authenticator: newTestAuthenticator(t)}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, called)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr = httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rr, req)
	require.True(t, called, "non-bearer schemes are anonymous")
}
