package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"resolwe-go/sdk/internal/config"
)

// Resolwe's Django backend authenticates browser-style sessions with these.
const (
	sessionCookie = "sessionid"
	csrfCookie    = "csrftoken"
	csrfHeader    = "X-CSRFToken"
)

// NewHTTPClient returns an *http.Client that attaches the credentials
// selected by cfg.Auth.Mode to every outgoing request.
func NewHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	var client *http.Client

	switch cfg.Auth.Mode {
	case "", "none":
		client = &http.Client{}
	case "token":
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Auth.Token, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, src)
	case "session":
		client = &http.Client{Transport: &SessionTransport{
			SessionID: cfg.Auth.SessionID,
			CSRFToken: cfg.Auth.CSRFToken,
		}}
	case "oidc":
		provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to discover issuer %s: %w", cfg.Auth.Issuer, err)
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			TokenURL:     provider.Endpoint().TokenURL,
			Scopes:       cfg.Auth.Scopes,
		}
		client = cc.Client(ctx)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}

	client.Timeout = cfg.Server.Timeout
	return client, nil
}

// SessionTransport adds a Django session cookie and its CSRF token to each
// request.
type SessionTransport struct {
	SessionID string
	CSRFToken string
	Base      http.RoundTripper
}

func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: t.SessionID})
	if t.CSRFToken != "" {
		r.AddCookie(&http.Cookie{Name: csrfCookie, Value: t.CSRFToken})
		r.Header.Set(csrfHeader, t.CSRFToken)
	}
	// Django's CSRF check on HTTPS also requires a matching Referer.
	if r.Header.Get("Referer") == "" && r.URL != nil {
		r.Header.Set("Referer", r.URL.Scheme+"://"+r.URL.Host+"/")
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
