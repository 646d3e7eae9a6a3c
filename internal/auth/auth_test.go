package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolwe-go/sdk/internal/config"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

const testIssuer = "https://test-issuer.com"

func fakeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]any{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func testAuth() *Auth {
	verifier := oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{SkipClientIDCheck: true})
	return &Auth{verifier: verifier, logger: &NoOpLogger{}}
}

func validClaims() map[string]any {
	return map[string]any{
		"iss":   testIssuer,
		"aud":   "api://resolwe",
		"sub":   "analyst",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Add(-1 * time.Minute).Unix(),
		"email": "analyst@lab.org",
		"scp":   []string{ScopeResolweRead},
	}
}

func TestRequireBearer_StoresPrincipal(t *testing.T) {
	a := testAuth()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/data/42", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, validClaims()))
	rec := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		assert.True(t, ok, "principal should be in context")
		assert.Equal(t, "analyst", p.Subject)
		assert.Equal(t, "analyst@lab.org", p.Email)
		assert.True(t, p.HasScope(ScopeResolweRead))
		assert.False(t, p.HasScope(ScopeResolweWrite))
		w.WriteHeader(http.StatusOK)
	})

	a.RequireBearer(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Logf("Response Body: %s", rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireBearer_SpaceSeparatedScope(t *testing.T) {
	claims := validClaims()
	delete(claims, "scp")
	claims["scope"] = "openid resolwe:write"

	a := testAuth()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, claims))
	rec := httptest.NewRecorder()

	handler := a.RequireBearer(RequireScope(ScopeResolweWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRequireBearer_Rejects(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	otherIssuer := validClaims()
	otherIssuer["iss"] = "https://evil.example.com"

	cases := map[string]string{
		"missing header": "",
		"basic auth":     "Basic dXNlcjpwYXNz",
		"expired token":  "Bearer " + fakeToken(t, expired),
		"wrong issuer":   "Bearer " + fakeToken(t, otherIssuer),
		"malformed":      "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/processes", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			called := false
			testAuth().RequireBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestRequireScope_Forbidden(t *testing.T) {
	a := testAuth()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, validClaims()))
	rec := httptest.NewRecorder()

	a.RequireBearer(RequireScope(ScopeResolweWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNew_WithoutIssuerBypasses(t *testing.T) {
	a, err := New(context.Background(), "", "", &NoOpLogger{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/processes", nil)
	rec := httptest.NewRecorder()
	a.RequireBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.True(t, p.HasScope(ScopeResolweWrite))
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionTransportAddsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := r.Cookie("sessionid")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", session.Value)
		csrf, err := r.Cookie("csrftoken")
		require.NoError(t, err)
		assert.Equal(t, "csrf-1", csrf.Value)
		assert.Equal(t, "csrf-1", r.Header.Get("X-CSRFToken"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Auth.Mode = "session"
	cfg.Auth.SessionID = "sess-1"
	cfg.Auth.CSRFToken = "csrf-1"
	cfg.Server.Timeout = 5 * time.Second

	client, err := NewHTTPClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/data", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, req.Header.Get("X-CSRFToken"), "caller's request must not be modified")
}

func TestTokenModeSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = "s3cret"

	client, err := NewHTTPClient(context.Background(), cfg)
	require.NoError(t, err)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownModeFails(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Mode = "kerberos"
	_, err := NewHTTPClient(context.Background(), cfg)
	assert.Error(t, err)
}
