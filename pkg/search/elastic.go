// Package search indexes documents into Elasticsearch and serves full-text
// queries over OCR content, file names and summaries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/types"
)

const indexName = "documents"

// documentId is a keyword so results can be collapsed per document; all
// other fields are analyzed text.
const indexMapping = `{
	"mappings": {
		"properties": {
			"documentId":       {"type": "keyword"},
			"fileName":         {"type": "text"},
			"originalFileName": {"type": "text"},
			"content":          {"type": "text"},
			"summary":          {"type": "text"}
		}
	}
}`

// Service wraps the Elasticsearch client for the documents index.
type Service struct {
	client *elasticsearch.Client
	logger *zap.Logger
}

// New creates a Service for the given Elasticsearch address.
func New(address string, logger *zap.Logger) (*Service, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &Service{
		client: client,
		logger: logger,
	}, nil
}

// EnsureIndex creates the documents index with its mapping if it does not
// exist yet.
func (s *Service) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{indexName},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", indexName, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := s.client.Indices.Create(
		indexName,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index %s: %s", indexName, createRes.String())
	}

	s.logger.Info("created Elasticsearch index", zap.String("index", indexName))
	return nil
}

// Index writes the document into the index under its document id,
// overwriting any previous version.
func (s *Service) Index(ctx context.Context, doc types.IndexedDocument) error {
	if err := s.EnsureIndex(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal index document: %w", err)
	}

	res, err := s.client.Index(
		indexName,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(doc.DocumentID),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.DocumentID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index document %s: %s", doc.DocumentID, res.String())
	}

	s.logger.Info("indexed document", zap.String("documentId", doc.DocumentID))
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source types.IndexedDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a multi-field match over the index and returns at most 50
// documents, collapsed so each document id appears once.
func (s *Service) Search(ctx context.Context, query string) ([]types.IndexedDocument, error) {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"size": 50,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  normalized,
				"fields": []string{"content", "originalFileName", "summary", "fileName"},
			},
		},
		"collapse": map[string]any{
			"field": "documentId",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(indexName),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	docs := make([]types.IndexedDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// Delete removes a document from the index. Missing documents are not an
// error.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	res, err := s.client.Delete(
		indexName,
		documentID,
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document %s from index: %w", documentID, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("failed to delete document %s from index: %s", documentID, res.String())
	}
	return nil
}

// normalizeQuery trims the query and strips a trailing ".pdf" so searching
// for a file name matches the indexed display name.
func normalizeQuery(q string) string {
	q = strings.TrimSpace(q)
	if strings.HasSuffix(strings.ToLower(q), ".pdf") {
		q = q[:len(q)-4]
	}
	return q
}
