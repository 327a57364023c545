// Package summarize calls the Gemini generateContent API to produce a short
// bullet-point summary of extracted document text. Summaries are strictly
// best-effort: every failure mode collapses to an empty string so the OCR
// pipeline never fails a job over a summary.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	requestTimeout = 30 * time.Second

	promptTemplate = "Please summarize the following text into 4-6 clear bullet points " +
		"(each starting with a dash, one key point per line, in the same language as the text):\n%s"
)

// Client talks to the Gemini API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a new Gemini client.
func NewClient(apiKey string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Summarize returns a bullet-point summary of text, or "" when the input is
// empty or the API call fails in any way. Empty input short-circuits without
// a network call.
func (c *Client) Summarize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("empty input text, skipping summarization")
		return ""
	}

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{{Text: fmt.Sprintf(promptTemplate, text)}},
		}},
	})
	if err != nil {
		c.logger.Error("failed to marshal summarization request", zap.Error(err))
		return ""
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		c.logger.Error("failed to build summarization request", zap.Error(err))
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("summarization request failed", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("summarization API returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return ""
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("invalid JSON in summarization response", zap.Error(err))
		return ""
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		c.logger.Warn("no summary text found in summarization response")
		return ""
	}

	summary := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if summary == "" {
		c.logger.Warn("summarization response carried an empty text part")
		return ""
	}

	c.logger.Info("summary generated", zap.Int("chars", len(summary)))
	return summary
}
