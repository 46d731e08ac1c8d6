package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/graph"
	"github.com/soundprediction/docgraph/pkg/types"
)

type fakeClient struct {
	built      bool
	indexed    bool
	queryErr   error
	indexErr   error
	lastQ      string
	lastCtx    bool
	lastK      int
	lastSample int
	usedLoad   bool
	indexCalls int
	problems   []string
}

var _ docgraph.DocGraph = (*fakeClient)(nil)

func (f *fakeClient) graph() (*graph.Graph, error) {
	return graph.New([]*types.DocumentNode{
		{DocID: "a", Title: "A", FilePath: "a.md", DocType: "policy", Category: "hr", ResolvedLinks: []string{"b"}},
		{DocID: "b", Title: "B", FilePath: "b.md", DocType: "policy", Category: "hr"},
	})
}

func (f *fakeClient) BuildGraph(ctx context.Context, root string) (*graph.Graph, error) {
	f.built = true
	return f.graph()
}

func (f *fakeClient) LoadGraph(ctx context.Context, root string) (*graph.Graph, error) {
	f.usedLoad = true
	return f.BuildGraph(ctx, root)
}

func (f *fakeClient) Index(ctx context.Context) error {
	f.indexCalls++
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = true
	return nil
}

func (f *fakeClient) Query(ctx context.Context, question string, includeContext bool) (*types.QueryResult, error) {
	f.lastQ, f.lastCtx = question, includeContext
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	res := &types.QueryResult{
		Question:           question,
		RetrievedDocuments: []types.DocumentSummary{{DocID: "a", Title: "A", DocType: "policy"}},
		RelatedDocuments:   map[string][]string{"policy": {"A"}},
	}
	if includeContext {
		res.Context = "Document: A"
		res.Answer = "answer"
	}
	return res, nil
}

func (f *fakeClient) TestSearch(ctx context.Context, query string, k int) ([]types.DocumentSummary, error) {
	f.lastK = k
	return nil, nil
}

func (f *fakeClient) Relationships(docID string) (*types.Relationships, error) {
	if !f.built {
		return nil, types.ErrGraphNotBuilt
	}
	if docID != "a" {
		return nil, fmt.Errorf("%w: %s", types.ErrDocumentNotFound, docID)
	}
	return &types.Relationships{
		Document: types.DocumentRef{ID: "a", Title: "A", Type: "policy"},
		Outgoing: []types.DocumentRef{{ID: "b", Title: "B", Type: "policy"}},
		Incoming: []types.DocumentRef{},
	}, nil
}

func (f *fakeClient) Stats() *types.GraphStats {
	if !f.built {
		return &types.GraphStats{}
	}
	return &types.GraphStats{TotalDocuments: 2, TotalRelationships: 1}
}

func (f *fakeClient) IndexStats(ctx context.Context) (*types.IndexStats, error) {
	if !f.indexed {
		return nil, types.ErrIndexNotReady
	}
	return &types.IndexStats{Collection: "docgraph__x", TotalDocuments: 2}, nil
}

func (f *fakeClient) VerifyIndex(ctx context.Context, sample int) (*types.VerifyReport, error) {
	f.lastSample = sample
	return &types.VerifyReport{Collection: "docgraph__x", Checked: 2, Dimension: 8, Problems: f.problems}, nil
}

func (f *fakeClient) Close(ctx context.Context) error { return nil }

func newTestRouter(client docgraph.DocGraph) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	health := NewHealthHandler(client)
	query := NewQueryHandler(client, nil)
	graphH := NewGraphHandler(client, nil)
	index := NewIndexHandler(client, nil)

	r.GET("/health", health.HealthCheck)
	r.GET("/ready", health.ReadinessCheck)
	r.GET("/live", health.LivenessCheck)
	r.GET("/health/detailed", health.DetailedHealthCheck)
	r.POST("/query", query.Query)
	r.POST("/search", query.Search)
	r.GET("/documents/:id/relationships", graphH.Relationships)
	r.GET("/stats", graphH.Stats)
	r.POST("/graph/build", graphH.Build)
	r.POST("/index", index.Index)
	r.GET("/index/stats", index.Stats)
	r.GET("/index/verify", index.Verify)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func TestHealthCheck(t *testing.T) {
	w, body := do(t, newTestRouter(nil), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "docgraph", body["service"])
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "version")
}

func TestLivenessCheck(t *testing.T) {
	w, body := do(t, newTestRouter(nil), http.MethodGet, "/live", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		w, body := do(t, newTestRouter(nil), http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", body["status"])
	})

	t.Run("graph not built", func(t *testing.T) {
		w, body := do(t, newTestRouter(&fakeClient{}), http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "unhealthy", checks["graph"].(map[string]any)["status"])
		assert.Equal(t, "unhealthy", checks["vector_index"].(map[string]any)["status"])
	})

	t.Run("built and indexed", func(t *testing.T) {
		w, body := do(t, newTestRouter(&fakeClient{built: true, indexed: true}), http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", body["status"])
	})
}

func TestDetailedHealthCheck(t *testing.T) {
	w, body := do(t, newTestRouter(&fakeClient{built: true, indexed: true}), http.MethodGet, "/health/detailed", "")

	assert.Equal(t, http.StatusOK, w.Code)
	checks := body["checks"].(map[string]any)
	assert.Contains(t, checks, "system")
	assert.Equal(t, "docgraph__x", checks["vector_index"].(map[string]any)["collection"])
}

func TestQuery(t *testing.T) {
	fc := &fakeClient{}
	r := newTestRouter(fc)

	w, body := do(t, r, http.MethodPost, "/query", `{"question":"What is the mission?","include_context":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "What is the mission?", fc.lastQ)
	assert.True(t, fc.lastCtx)
	assert.Equal(t, "answer", body["answer"])
	assert.Len(t, body["retrieved_documents"], 1)
	assert.Equal(t, []any{"A"}, body["related_documents"].(map[string]any)["policy"])

	w, body = do(t, r, http.MethodPost, "/query", `{"question":"mission"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, fc.lastCtx)
	assert.Equal(t, "", body["answer"])
}

func TestQueryValidation(t *testing.T) {
	r := newTestRouter(&fakeClient{})

	for name, body := range map[string]string{
		"malformed": `{"question":`,
		"missing":   `{}`,
		"blank":     `{"question":"   "}`,
		"too long":  fmt.Sprintf(`{"question":%q}`, strings.Repeat("x", 5000)),
	} {
		t.Run(name, func(t *testing.T) {
			w, resp := do(t, r, http.MethodPost, "/query", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid request", resp["error"])
		})
	}
}

func TestQueryErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{types.ErrGraphNotBuilt, http.StatusConflict},
		{fmt.Errorf("query: %w", types.ErrIndexNotReady), http.StatusConflict},
		{&types.EmbeddingError{Err: errors.New("down")}, http.StatusBadGateway},
		{&types.VectorStoreError{Op: "search", Err: errors.New("down")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := newTestRouter(&fakeClient{queryErr: tt.err})
			w, body := do(t, r, http.MethodPost, "/query", `{"question":"q"}`)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, float64(tt.code), body["code"])
		})
	}
}

func TestSearch(t *testing.T) {
	fc := &fakeClient{}
	r := newTestRouter(fc)

	w, body := do(t, r, http.MethodPost, "/search", `{"query":"leave"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, fc.lastK)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{}, body["data"])

	w, _ = do(t, r, http.MethodPost, "/search", `{"query":"leave","k":500}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRelationships(t *testing.T) {
	fc := &fakeClient{}
	r := newTestRouter(fc)

	w, _ := do(t, r, http.MethodGet, "/documents/a/relationships", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	fc.built = true
	w, body := do(t, r, http.MethodGet, "/documents/a/relationships", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["linked_documents"], 1)
	assert.Equal(t, []any{}, body["incoming_links"])

	w, _ = do(t, r, http.MethodGet, "/documents/missing/relationships", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	w, body := do(t, newTestRouter(&fakeClient{built: true}), http.MethodGet, "/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["total_documents"])
	assert.Equal(t, float64(1), body["total_relationships"])
}

func TestBuild(t *testing.T) {
	t.Run("build only", func(t *testing.T) {
		fc := &fakeClient{}
		w, body := do(t, newTestRouter(fc), http.MethodPost, "/graph/build", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := body["data"].(map[string]any)
		assert.Equal(t, float64(2), data["documents"])
		assert.Equal(t, float64(1), data["relationships"])
		assert.Equal(t, false, data["indexed"])
		assert.False(t, fc.usedLoad)
		assert.Zero(t, fc.indexCalls)
	})

	t.Run("from snapshot and index", func(t *testing.T) {
		fc := &fakeClient{}
		w, body := do(t, newTestRouter(fc), http.MethodPost, "/graph/build", `{"use_snapshot":true,"index":true}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, fc.usedLoad)
		assert.Equal(t, 1, fc.indexCalls)
		assert.Equal(t, true, body["data"].(map[string]any)["indexed"])
	})

	t.Run("index failure", func(t *testing.T) {
		fc := &fakeClient{indexErr: &types.EmbeddingError{Batch: 2, Err: errors.New("quota")}}
		w, body := do(t, newTestRouter(fc), http.MethodPost, "/graph/build", `{"index":true}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, body["message"], "embedding batch 2")
	})
}

func TestIndexEndpoints(t *testing.T) {
	fc := &fakeClient{built: true}
	r := newTestRouter(fc)

	w, _ := do(t, r, http.MethodGet, "/index/stats", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body := do(t, r, http.MethodPost, "/index", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, body = do(t, r, http.MethodGet, "/index/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "docgraph__x", body["collection_name"])
}

func TestVerify(t *testing.T) {
	fc := &fakeClient{built: true, indexed: true}
	r := newTestRouter(fc)

	w, body := do(t, r, http.MethodGet, "/index/verify", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, docgraph.DefaultVerifySample, fc.lastSample)
	assert.Equal(t, float64(8), body["dimension"])

	w, _ = do(t, r, http.MethodGet, "/index/verify?sample=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, fc.lastSample)

	w, _ = do(t, r, http.MethodGet, "/index/verify?sample=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	fc.problems = []string{"doc a: vector has NaN"}
	w, body = do(t, r, http.MethodGet, "/index/verify", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, body["problems"], 1)
}
