package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/booking-ledger/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Authenticator *Authenticator
}

// Authenticate attaches the actor when a bearer token is present. Requests
// without a token pass through anonymously; a token that fails verification
// is rejected rather than silently downgraded.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(ctx))
		case errors.Is(err, errNoToken):
			next.ServeHTTP(w, r)
		default:
			unauthorized(w, err)
		}
	})
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.ActorFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err, http.StatusUnauthorized) {
		return
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	token := extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	if m.Authenticator == nil {
		return r.Context(), errors.New("auth: authenticator not configured")
	}
	actor, err := m.Authenticator.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	return common.WithActor(r.Context(), actor), nil
}

func extractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
