package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aomorin/hibiki/pkg/types"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps chunk results and transcripts in process memory. Suitable
// for tests and for one-shot CLI runs where durability across restarts is not
// needed.
type MemoryStore struct {
	mu          sync.Mutex
	chunks      map[string]map[int]json.RawMessage
	transcripts map[string]*types.Transcript
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:      make(map[string]map[int]json.RawMessage),
		transcripts: make(map[string]*types.Transcript),
	}
}

// SaveChunkResult implements Store.
func (s *MemoryStore) SaveChunkResult(_ context.Context, runID string, index int, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.chunks[runID]
	if !ok {
		run = make(map[int]json.RawMessage)
		s.chunks[runID] = run
	}
	if _, exists := run[index]; exists {
		return ErrAlreadyStored
	}
	run[index] = append(json.RawMessage(nil), result...)
	return nil
}

// ChunkResult implements Store.
func (s *MemoryStore) ChunkResult(_ context.Context, runID string, index int) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.chunks[runID][index]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

// DeleteChunkResults implements Store.
func (s *MemoryStore) DeleteChunkResults(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chunks, runID)
	return nil
}

// SaveTranscript implements Store.
func (s *MemoryStore) SaveTranscript(_ context.Context, runID string, t *types.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcripts[runID] = t
	return nil
}

// Transcript implements Store.
func (s *MemoryStore) Transcript(_ context.Context, runID string) (*types.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transcripts[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}
