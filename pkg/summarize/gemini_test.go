package summarize

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestClient(serverURL string) *Client {
	c := NewClient("test-key", zap.NewNop())
	c.baseURL = serverURL
	return c
}

func TestSummarizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var req generateRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, req.Contents[0].Parts[0].Text, "the document text")

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]string{{"text": "- first point\n- second point\n"}},
				},
			}},
		})
	}))
	defer server.Close()

	summary := newTestClient(server.URL).Summarize(context.Background(), "the document text")
	assert.Equal(t, "- first point\n- second point", summary)
}

func TestSummarizeEmptyInputSkipsNetworkCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, "", client.Summarize(context.Background(), ""))
	assert.Equal(t, "", client.Summarize(context.Background(), "   \n\t"))
	assert.Zero(t, calls)
}

func TestSummarizeFailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"non-success status",
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			"malformed JSON",
			func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("{not json"))
			},
		},
		{
			"no candidates",
			func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"candidates": []}`))
			},
		},
		{
			"candidate without parts",
			func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"candidates": [{"content": {"parts": []}}]}`))
			},
		},
		{
			"blank text part",
			func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "  "}]}}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			summary := newTestClient(server.URL).Summarize(context.Background(), "some text")
			assert.Equal(t, "", summary)
		})
	}
}

func TestSummarizeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.httpClient = &http.Client{Timeout: 20 * time.Millisecond}

	assert.Equal(t, "", client.Summarize(context.Background(), "some text"))
}

func TestPromptAsksForBulletPoints(t *testing.T) {
	assert.True(t, strings.Contains(promptTemplate, "bullet points"))
	assert.True(t, strings.Contains(promptTemplate, "same language"))
}
