package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/types"
)

// elasticHandler wraps a handler with the product header the v8 client
// verifies on every response.
func elasticHandler(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		h(w, r)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"invoice", "invoice"},
		{"  invoice  ", "invoice"},
		{"invoice.pdf", "invoice"},
		{"invoice.PDF", "invoice"},
		{"", ""},
		{"   ", ""},
		{".pdf", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeQuery(tt.in))
		})
	}
}

func TestSearchParsesHits(t *testing.T) {
	server := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/_search", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var query map[string]any
		require.NoError(t, json.Unmarshal(body, &query))
		multiMatch := query["query"].(map[string]any)["multi_match"].(map[string]any)
		assert.Equal(t, "invoice", multiMatch["query"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hits": {
				"hits": [
					{"_source": {"documentId": "id-1", "fileName": "invoice.pdf", "content": "total due"}},
					{"_source": {"documentId": "id-2", "fileName": "other.pdf", "content": "invoice copy"}}
				]
			}
		}`))
	}))
	defer server.Close()

	svc, err := New(server.URL, zap.NewNop())
	require.NoError(t, err)

	docs, err := svc.Search(context.Background(), "invoice.pdf")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "id-1", docs[0].DocumentID)
	assert.Equal(t, "invoice.pdf", docs[0].FileName)
}

func TestSearchEmptyQuery(t *testing.T) {
	svc, err := New("http://localhost:9200", zap.NewNop())
	require.NoError(t, err)

	docs, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIndexSendsDocument(t *testing.T) {
	var indexed types.IndexedDocument

	server := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/documents":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/documents/_doc/id-1":
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &indexed))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result": "created"}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	svc, err := New(server.URL, zap.NewNop())
	require.NoError(t, err)

	doc := types.IndexedDocument{
		DocumentID: "id-1",
		FileName:   "scan.pdf",
		Content:    "hello",
		Summary:    "- hi",
	}
	require.NoError(t, svc.Index(context.Background(), doc))
	assert.Equal(t, doc, indexed)
}

func TestDeleteMissingDocumentIsNotAnError(t *testing.T) {
	server := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"result": "not_found"}`))
	}))
	defer server.Close()

	svc, err := New(server.URL, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, svc.Delete(context.Background(), "gone"))
}
