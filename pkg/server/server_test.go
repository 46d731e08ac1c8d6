package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/config"
	"github.com/soundprediction/docgraph/pkg/embedder"
	"github.com/soundprediction/docgraph/pkg/vectorstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: "test",
		},
	}
}

func newTestClient(t *testing.T) *docgraph.Client {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"01_corporate/mission.md": "# Mission\nWe fly tourists to the moon. See the [hr policy](../03_hr/policy.md).",
		"03_hr/policy.md":         "# HR Policy\nEmployees get training.",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	client, err := docgraph.NewClient(vectorstore.NewMemoryStore(), embedder.NewHashingEmbedder(32), nil,
		&docgraph.Config{CorpusRoot: root}, nil)
	require.NoError(t, err)
	return client
}

func serve(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	server := New(cfg, nil, nil)
	require.NotNil(t, server)
	assert.Same(t, cfg, server.config)
	assert.NotNil(t, server.logger)
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		host         string
		port         int
		expectedAddr string
	}{
		{"localhost", 8080, "localhost:8080"},
		{"0.0.0.0", 3000, "0.0.0.0:3000"},
		{"127.0.0.1", 9090, "127.0.0.1:9090"},
	}

	for _, tt := range tests {
		t.Run(tt.expectedAddr, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.Host, cfg.Server.Port = tt.host, tt.port

			server := New(cfg, nil, nil)
			server.Setup()
			require.NotNil(t, server.router)
			assert.Equal(t, tt.expectedAddr, server.server.Addr)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	server := New(testConfig(), nil, nil)
	server.Setup()

	assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/live", "", nil).Code)
	// Without a client the service is never ready.
	assert.Equal(t, http.StatusServiceUnavailable, serve(server, http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(server, http.MethodGet, "/health/detailed", "", nil).Code)
}

func TestCORSMiddleware(t *testing.T) {
	server := New(testConfig(), nil, nil)
	server.Setup()

	w := serve(server, http.MethodOptions, "/api/v1/query", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestContextMiddlewareRequestID(t *testing.T) {
	server := New(testConfig(), nil, nil)
	server.Setup()

	w := serve(server, http.MethodGet, "/health", "", map[string]string{
		RequestIDHeader: "req-123",
		"X-Session-ID":  "session-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = serve(server, http.MethodGet, "/health", "", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestEndToEnd(t *testing.T) {
	server := New(testConfig(), newTestClient(t), nil)
	server.Setup()

	w := serve(server, http.MethodPost, "/api/v1/query", `{"question":"moon"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "query before build")

	w = serve(server, http.MethodPost, "/api/v1/graph/build", `{"index":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(server, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(server, http.MethodPost, "/api/v1/query", `{"question":"moon tourists","include_context":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Question           string `json:"question"`
		RetrievedDocuments []struct {
			DocID string `json:"doc_id"`
		} `json:"retrieved_documents"`
		Context string `json:"context"`
		Answer  string `json:"answer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "moon tourists", result.Question)
	assert.Len(t, result.RetrievedDocuments, 2)
	assert.Contains(t, result.Context, "Document: ")
	assert.Empty(t, result.Answer, "no language model configured")

	w = serve(server, http.MethodGet, "/api/v1/documents/01_corporate_mission/relationships", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "03_hr_policy")

	w = serve(server, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_documents":2`)

	w = serve(server, http.MethodGet, "/api/v1/index/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_relationships":1`)

	w = serve(server, http.MethodGet, "/api/v1/index/verify", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(server, http.MethodPost, "/api/v1/search", `{"query":"training","k":1}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(server, http.MethodPost, "/api/v1/index", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
