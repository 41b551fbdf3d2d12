package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/booking-ledger/internal/common"
)

// RolesClaim is the private claim carrying the caller's roles.
const RolesClaim = "roles"

// Config configures the authenticator.
type Config struct {
	Secret    string
	Issuer    string
	Audience  string
	AdminRole string
	ClockSkew time.Duration
}

// Authenticator turns bearer tokens into actors. Tokens are issued by the
// identity provider; this service only verifies them.
type Authenticator struct {
	secret    []byte
	adminRole string
	validator TokenValidator
	now       func() time.Time
}

// NewAuthenticator constructs an Authenticator with sane defaults.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	adminRole := strings.TrimSpace(cfg.AdminRole)
	if adminRole == "" {
		adminRole = "admin"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Authenticator{
		secret:    []byte(secret),
		adminRole: adminRole,
		now:       time.Now,
		validator: TokenValidator{
			Issuer:    strings.TrimSpace(cfg.Issuer),
			Audience:  strings.TrimSpace(cfg.Audience),
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
	}, nil
}

// WithNow overrides the clock, for tests.
func (a *Authenticator) WithNow(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// ParseAccessToken validates a bearer token and returns the actor it names.
func (a *Authenticator) ParseAccessToken(token string) (common.Actor, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Actor{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Actor{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if a.validator.Algorithm != "" && algorithm != a.validator.Algorithm {
		return common.Actor{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, a.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Actor{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := a.validator.Validate(parsed, algorithm, a.now()); err != nil {
		return common.Actor{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	roles := Roles(parsed)
	return common.Actor{
		UserID: parsed.Subject(),
		Roles:  roles,
		Admin:  slices.Contains(roles, a.adminRole),
	}, nil
}

// Issue signs a token for actor. It exists for local tooling and tests.
func (a *Authenticator) Issue(actor common.Actor, ttl time.Duration) (string, error) {
	now := a.now()
	builder := jwt.NewBuilder().
		Subject(actor.UserID).
		IssuedAt(now).
		NotBefore(now.Add(-a.validator.ClockSkew)).
		Expiration(now.Add(ttl))
	if a.validator.Issuer != "" {
		builder = builder.Issuer(a.validator.Issuer)
	}
	if a.validator.Audience != "" {
		builder = builder.Audience([]string{a.validator.Audience})
	}
	roles := append([]string(nil), actor.Roles...)
	if actor.Admin && !slices.Contains(roles, a.adminRole) {
		roles = append(roles, a.adminRole)
	}
	if len(roles) > 0 {
		builder = builder.Claim(RolesClaim, roles)
	}
	tok, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, a.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
