package listener

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ViVictory11/Paperless/pkg/resultstore"
	"github.com/ViVictory11/Paperless/pkg/types"
)

type fakeCatalog struct {
	saved map[uuid.UUID]string
	err   error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{saved: make(map[uuid.UUID]string)}
}

func (f *fakeCatalog) SaveSummary(_ context.Context, id uuid.UUID, summary string) error {
	if f.err != nil {
		return f.err
	}
	f.saved[id] = summary
	return nil
}

type fakeIndexer struct {
	docs []types.IndexedDocument
	err  error
}

func (f *fakeIndexer) Index(_ context.Context, doc types.IndexedDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

const testID = "7c041c2f-9e3a-47d8-8f94-6f3f0f8d2a11"

func resultBody(id, text, summary string) []byte {
	return []byte(fmt.Sprintf(`{
		"documentId": %q,
		"objectName": "%s.pdf",
		"originalFileName": "report.pdf",
		"ocrText": %q,
		"summary": %q
	}`, id, id, text, summary))
}

func TestHandleFansOutResult(t *testing.T) {
	store := resultstore.NewMemoryStore()
	catalog := newFakeCatalog()
	index := &fakeIndexer{}
	l := New(store, catalog, index, zap.NewNop())

	l.Handle(context.Background(), resultBody(testID, "the extracted text", "- a summary"))

	text, found, err := store.Get(context.Background(), testID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "the extracted text", text)

	assert.Equal(t, "- a summary", catalog.saved[uuid.MustParse(testID)])

	require.Len(t, index.docs, 1)
	doc := index.docs[0]
	assert.Equal(t, testID, doc.DocumentID)
	assert.Equal(t, "report.pdf", doc.FileName)
	assert.Equal(t, "the extracted text", doc.Content)
	assert.Equal(t, "- a summary", doc.Summary)
}

func TestHandleEmptyTextSkipsResultStore(t *testing.T) {
	store := resultstore.NewMemoryStore()
	index := &fakeIndexer{}
	l := New(store, newFakeCatalog(), index, zap.NewNop())

	l.Handle(context.Background(), resultBody(testID, "", ""))

	// A failed OCR stays "not ready" from the client's point of view.
	_, found, err := store.Get(context.Background(), testID)
	require.NoError(t, err)
	assert.False(t, found)

	// Indexing still happens, with empty content.
	require.Len(t, index.docs, 1)
	assert.Equal(t, "", index.docs[0].Content)
}

func TestHandleDisplayNameFallsBackToObjectName(t *testing.T) {
	index := &fakeIndexer{}
	l := New(resultstore.NewMemoryStore(), newFakeCatalog(), index, zap.NewNop())

	body := []byte(fmt.Sprintf(`{"documentId": %q, "objectName": "%s.pdf", "ocrText": "x"}`, testID, testID))
	l.Handle(context.Background(), body)

	require.Len(t, index.docs, 1)
	assert.Equal(t, testID+".pdf", index.docs[0].FileName)
}

func TestHandleCatalogFailureIsIsolated(t *testing.T) {
	store := resultstore.NewMemoryStore()
	catalog := newFakeCatalog()
	catalog.err = errors.New("database down")
	index := &fakeIndexer{}
	l := New(store, catalog, index, zap.NewNop())

	l.Handle(context.Background(), resultBody(testID, "text", "summary"))

	_, found, _ := store.Get(context.Background(), testID)
	assert.True(t, found)
	assert.Len(t, index.docs, 1)
}

func TestHandleNonUUIDIdSkipsSummaryOnly(t *testing.T) {
	store := resultstore.NewMemoryStore()
	catalog := newFakeCatalog()
	index := &fakeIndexer{}
	l := New(store, catalog, index, zap.NewNop())

	l.Handle(context.Background(), resultBody("not-a-uuid", "text", "summary"))

	_, found, _ := store.Get(context.Background(), "not-a-uuid")
	assert.True(t, found)
	assert.Empty(t, catalog.saved)
	assert.Len(t, index.docs, 1)
}

func TestHandleDropsUnparsableMessages(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"invalid JSON", []byte("{{{")},
		{"missing document id", []byte(`{"ocrText":"x"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndexer{}
			l := New(resultstore.NewMemoryStore(), newFakeCatalog(), index, zap.NewNop())

			l.Handle(context.Background(), tt.body)

			assert.Empty(t, index.docs)
		})
	}
}

func TestHandleLastWriteWins(t *testing.T) {
	store := resultstore.NewMemoryStore()
	l := New(store, newFakeCatalog(), &fakeIndexer{}, zap.NewNop())

	l.Handle(context.Background(), resultBody(testID, "first version", ""))
	l.Handle(context.Background(), resultBody(testID, "second version", ""))

	text, found, _ := store.Get(context.Background(), testID)
	require.True(t, found)
	assert.Equal(t, "second version", text)
}
