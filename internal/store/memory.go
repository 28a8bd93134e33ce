package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory [Store] for single-process use and tests. The
// zero value is not usable; construct it with [NewMemoryStore].
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[uuid.UUID]Recording
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[uuid.UUID]Recording)}
}

// Create inserts a new recording.
func (s *MemoryStore) Create(_ context.Context, rec *Recording) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; ok {
		return fmt.Errorf("store: recording %s already exists", rec.ID)
	}
	s.recs[rec.ID] = *rec
	return nil
}

// Get retrieves a recording by ID.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// SetTranscription attaches a transcription to an existing recording.
func (s *MemoryStore) SetTranscription(_ context.Context, id uuid.UUID, text, provider, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Text = text
	rec.Provider = provider
	rec.Language = language
	s.recs[id] = rec
	return nil
}

// List returns the most recent recordings, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Recording, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a recording by ID.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}
