// Package resultstore holds extracted OCR text between result delivery and
// client polling. Entries live for the process lifetime and are only ever
// overwritten, never expired.
package resultstore

import (
	"context"
	"sync"
)

// Store maps a document id to its extracted OCR text. Save overwrites
// (last write wins); Get reports absence through its second return value.
type Store interface {
	Save(ctx context.Context, documentID, text string) error
	Get(ctx context.Context, documentID string) (string, bool, error)
}

// MemoryStore is the default in-process implementation backing the poll
// endpoint without a database round-trip.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]string),
	}
}

func (s *MemoryStore) Save(_ context.Context, documentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[documentID] = text
	return nil
}

func (s *MemoryStore) Get(_ context.Context, documentID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.results[documentID]
	return text, ok, nil
}
