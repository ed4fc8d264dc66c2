package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultRoleClaim    = "role"
	defaultEmailClaim   = "email"
	defaultFallbackRole = RoleUser
	defaultLeeway       = 30 * time.Second

	// SessionHeader carries the anonymous session identifier for guest cart access.
	SessionHeader = "X-Session-ID"
)

var (
	// ErrTokenExpired signals that the provided bearer token has expired.
	ErrTokenExpired = errors.New("auth: bearer token expired")
	// ErrTokenInvalid signals that the provided bearer token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: bearer token invalid")
)

// Authenticator verifies HMAC-signed bearer tokens and resolves request identity.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string

	roleClaim    string
	emailClaim   string
	fallbackRole string
	leeway       time.Duration
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithIssuer requires tokens to carry the given issuer claim.
func WithIssuer(issuer string) Option {
	return func(a *Authenticator) {
		a.issuer = strings.TrimSpace(issuer)
	}
}

// WithAudience requires tokens to carry the given audience claim.
func WithAudience(audience string) Option {
	return func(a *Authenticator) {
		a.audience = strings.TrimSpace(audience)
	}
}

// WithRoleClaim overrides the custom claim used for role extraction.
func WithRoleClaim(claim string) Option {
	return func(a *Authenticator) {
		if claim = strings.TrimSpace(claim); claim != "" {
			a.roleClaim = claim
		}
	}
}

// WithLeeway sets the clock skew tolerance applied to token time claims.
func WithLeeway(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.leeway = d
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret:       []byte(secret),
		roleClaim:    defaultRoleClaim,
		emailClaim:   defaultEmailClaim,
		fallbackRole: defaultFallbackRole,
		leeway:       defaultLeeway,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Verify parses and validates a raw bearer token, returning the resolved identity.
func (a *Authenticator) Verify(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(a.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	uid, _ := claims["sub"].(string)
	if strings.TrimSpace(uid) == "" {
		return nil, ErrTokenInvalid
	}

	identity := &Identity{UID: strings.TrimSpace(uid), Role: a.fallbackRole}
	if email, ok := claims[a.emailClaim].(string); ok {
		identity.Email = strings.TrimSpace(email)
	}
	if role, ok := claims[a.roleClaim].(string); ok {
		if role = normaliseRole(role); role != "" {
			identity.Role = role
		}
	}
	return identity, nil
}

// Resolve is middleware that attaches the caller's identity and/or anonymous session to
// the request context. Requests without credentials pass through anonymously; handlers
// decide whether anonymity is acceptable for the operation.
func (a *Authenticator) Resolve() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if sessionID := strings.TrimSpace(r.Header.Get(SessionHeader)); sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
			}

			if raw, ok := bearerToken(r); ok {
				identity, err := a.Verify(raw)
				if err == nil {
					ctx = WithIdentity(ctx, identity)
				}
				// Invalid tokens degrade to anonymous; protected handlers reject them.
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func normaliseRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleUser, RoleAdmin:
		return role
	}
	return ""
}
