package mcp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMountedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	MountHTTPHandlers(mux, NewServer(new(MockRunService), "test").GetMCPServer())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, sessionID, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(payload)
}

func TestStreamableEndpointServesInitializeAndTools(t *testing.T) {
	srv := newMountedServer(t)

	resp, body := postJSON(t, srv.URL+"/mcp", "", `{"jsonrpc": "2.0", "id": 1, "method": "initialize",
		"params": {"protocolVersion": "2025-03-26", "capabilities": {}, "clientInfo": {"name": "test", "version": "1"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "Resolwe")
	session := resp.Header.Get("Mcp-Session-Id")
	require.NotEmpty(t, session)

	resp, body = postJSON(t, srv.URL+"/mcp", session, `{"jsonrpc": "2.0", "id": 2, "method": "tools/list"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "run_process")
}

func TestStreamableEndpointRejectsNonJSON(t *testing.T) {
	srv := newMountedServer(t)

	resp, err := http.Post(srv.URL+"/mcp", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSSEMessageEndpointIsMounted(t *testing.T) {
	srv := newMountedServer(t)

	resp, _ := postJSON(t, srv.URL+"/mcp/message", "", `{"jsonrpc": "2.0", "id": 1, "method": "ping"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "a message without sessionId is refused, not unrouted")
}
