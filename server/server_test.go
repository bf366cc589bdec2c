package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grocery "github.com/allanbutler/kg-rag-grocery"
	"github.com/allanbutler/kg-rag-grocery/ai/mock"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/search"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeCatalog struct {
	suggest func(ctx context.Context, text string) (*grocery.SuggestResult, error)
	ask     func(ctx context.Context, question string) (*grocery.AskResult, error)
}

func (f *fakeCatalog) Suggest(ctx context.Context, text string) (*grocery.SuggestResult, error) {
	return f.suggest(ctx, text)
}

func (f *fakeCatalog) Ask(ctx context.Context, question string) (*grocery.AskResult, error) {
	return f.ask(ctx, question)
}

func demoProducts() []*core.Product {
	return []*core.Product{
		{ID: 1, Row: 0, Name: "Crunchy Oat Granola", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal",
			Price: 3.99, Ingredients: "oats, honey", Attributes: "nut_free;vegetarian"},
		{ID: 2, Row: 1, Name: "Almond Granola Clusters", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal",
			Price: 4.49, Ingredients: "oats, almonds", Attributes: "vegetarian"},
		{ID: 3, Row: 2, Name: "Maple Granola Deluxe", Brand: "Summit", Category: "Pantry", SubCategory: "Cereal",
			Price: 6.99, Ingredients: "oats, maple syrup", Attributes: "nut_free;vegan"},
		{ID: 4, Row: 3, Name: "Oat Milk", Brand: "Dairyless", Category: "Dairy", SubCategory: "Milk Alternatives",
			Price: 3.29, Ingredients: "oats, water", Attributes: "vegan;nut_free;gluten_free"},
	}
}

func newPreparedServer(t *testing.T, opts ...grocery.Option) *Server {
	t.Helper()
	cat, err := grocery.Open(filepath.Join(t.TempDir(), "db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	pipeline, err := cat.NewPipeline()
	require.NoError(t, err)
	_, err = pipeline.Prepare(context.Background(), demoProducts())
	require.NoError(t, err)

	srv, err := New(cat)
	require.NoError(t, err)
	return srv
}

func newFakeServer(t *testing.T, cat *fakeCatalog) *Server {
	t.Helper()
	srv, err := New(cat)
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func searchPath(q string) string {
	return "/search?q=" + url.QueryEscape(q)
}

func TestNewRequiresCatalog(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrCatalogRequired)
}

func TestHealth(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{})

	w := do(srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestSearch(t *testing.T) {
	srv := newPreparedServer(t, grocery.WithOffline())

	w := do(srv, http.MethodGet, searchPath("nut-free granola under $5"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "nut-free granola under $5", resp.Query)
	assert.NotEmpty(t, resp.QueryID)
	require.NotEmpty(t, resp.Candidates)
	for _, c := range resp.Candidates {
		assert.LessOrEqual(t, c.Price, 5.0)
		assert.Contains(t, c.Attributes, "nut_free")
	}
	assert.NotEmpty(t, resp.Suggestions)
	assert.True(t, resp.Fallback)
	assert.LessOrEqual(t, len(resp.Contexts), grocery.MaxAskContexts)
}

func TestSearchMissingQuery(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{})

	for _, target := range []string{"/search", searchPath("   ")} {
		w := do(srv, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, w.Body.String(), "q is required")
	}
}

func TestSearchCapsContexts(t *testing.T) {
	contexts := make([]string, search.MaxContextSnippets)
	for i := range contexts {
		contexts[i] = fmt.Sprintf("snippet %d", i)
	}
	srv := newFakeServer(t, &fakeCatalog{
		suggest: func(ctx context.Context, text string) (*grocery.SuggestResult, error) {
			return &grocery.SuggestResult{Result: &search.Result{Query: text, Contexts: contexts}}, nil
		},
	})

	w := do(srv, http.MethodGet, searchPath("oat"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, contexts[:grocery.MaxAskContexts], resp.Contexts)
	assert.NotNil(t, resp.Candidates)
	assert.NotNil(t, resp.Suggestions)
}

func TestSearchStoreLoadFailure(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{
		suggest: func(ctx context.Context, text string) (*grocery.SuggestResult, error) {
			return nil, fmt.Errorf("%w: graph: disk gone", grocery.ErrStoreLoad)
		},
	})

	w := do(srv, http.MethodGet, searchPath("oat"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "failed to load store")
}

func TestAsk(t *testing.T) {
	srv := newPreparedServer(t, grocery.WithProvider(mock.NewMockProvider()))

	w := do(srv, http.MethodPost, "/ask", []byte(`{"query": "oat milk"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "oat milk", resp.Query)
	assert.NotEmpty(t, resp.Answer)
	assert.False(t, resp.Fallback)
	require.NotEmpty(t, resp.Contexts)
	assert.LessOrEqual(t, len(resp.Contexts), grocery.MaxAskContexts)

	var names []string
	for _, c := range resp.Candidates {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Oat Milk")
}

func TestAskBadRequest(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `query=oat`},
		{"missing query", `{}`},
		{"blank query", `{"query": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/ask", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAskFailure(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{
		ask: func(ctx context.Context, question string) (*grocery.AskResult, error) {
			return nil, errors.New("boom")
		},
	})

	w := do(srv, http.MethodPost, "/ask", []byte(`{"query": "oat"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "boom"}`, w.Body.String())
}

func TestPanicRecovered(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{
		suggest: func(ctx context.Context, text string) (*grocery.SuggestResult, error) {
			panic("index exploded")
		},
	})

	w := do(srv, http.MethodGet, searchPath("oat"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := newFakeServer(t, &fakeCatalog{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
