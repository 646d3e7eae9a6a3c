package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type contextKey string

const principalKey contextKey = "principal"

// Principal is the caller identified by a verified gateway bearer token.
type Principal struct {
	Subject string
	Email   string
	Scopes  []string
}

// HasScope reports whether the token granted scope.
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// PrincipalFromContext returns the principal stored by RequireBearer.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// Auth verifies bearer tokens presented to the gateway.
type Auth struct {
	verifier *oidc.IDTokenVerifier
	logger   Logger
	bypass   bool
}

// New creates an Auth for the issuer. It fetches the provider's discovery
// document. With an empty audience the aud claim is not checked, since
// access tokens often carry an API audience rather than a client id.
// With an empty issuer every request is let through as an anonymous
// principal holding all scopes.
func New(ctx context.Context, issuer, audience string, logger Logger) (*Auth, error) {
	if issuer == "" {
		return &Auth{logger: logger, bypass: true}, nil
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}

	cfg := &oidc.Config{ClientID: audience, SkipClientIDCheck: audience == ""}
	return &Auth{verifier: provider.Verifier(cfg), logger: logger}, nil
}

// RequireBearer is middleware that rejects requests without a valid bearer
// token and stores the resulting Principal in the request context.
func (a *Auth) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.bypass {
			p := &Principal{Subject: "anonymous", Scopes: AllScopes}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
			return
		}

		p, err := a.authenticate(r)
		if err != nil {
			if a.logger != nil {
				a.logger.Debug("rejected gateway request", "path", r.URL.Path, "error", err)
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="resolwe-gateway"`)
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func (a *Auth) authenticate(r *http.Request) (*Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	token, err := a.verifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return nil, err
	}

	// Okta puts scopes in "scp" as a list, most other providers in "scope"
	// as a space separated string.
	var claims struct {
		Email string   `json:"email"`
		Scope string   `json:"scope"`
		Scp   []string `json:"scp"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, errors.New("failed to parse token claims")
	}

	scopes := claims.Scp
	if len(scopes) == 0 && claims.Scope != "" {
		scopes = strings.Fields(claims.Scope)
	}
	return &Principal{Subject: token.Subject, Email: claims.Email, Scopes: scopes}, nil
}

// RequireScope is middleware that answers 403 unless the principal stored
// by RequireBearer holds scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok || !p.HasScope(scope) {
				http.Error(w, "missing scope "+scope, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
