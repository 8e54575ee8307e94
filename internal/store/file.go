package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aomorin/hibiki/pkg/types"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists run artifacts as JSON files under a per-run directory:
// one chunk_<i>_result.json per chunk and combined_result.json for the
// aggregated transcript. Chunk files are removed by DeleteChunkResults once
// the aggregator has consumed them.
type FileStore struct {
	root string

	// mu serialises the exists-check-then-write in SaveChunkResult. Writes
	// land on distinct files, but write-once semantics need the check and the
	// create to be atomic with respect to each other.
	mu sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir. The directory is created if
// it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root %q: %w", dir, err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) runDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *FileStore) chunkPath(runID string, index int) string {
	return filepath.Join(s.runDir(runID), fmt.Sprintf("chunk_%d_result.json", index))
}

func (s *FileStore) transcriptPath(runID string) string {
	return filepath.Join(s.runDir(runID), "combined_result.json")
}

// SaveChunkResult implements Store.
func (s *FileStore) SaveChunkResult(_ context.Context, runID string, index int, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.runDir(runID), 0o755); err != nil {
		return fmt.Errorf("store: create run dir: %w", err)
	}

	path := s.chunkPath(runID, index)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyStored
		}
		return fmt.Errorf("store: create %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(result); err != nil {
		return fmt.Errorf("store: write %q: %w", path, err)
	}
	return nil
}

// ChunkResult implements Store.
func (s *FileStore) ChunkResult(_ context.Context, runID string, index int) (json.RawMessage, error) {
	data, err := os.ReadFile(s.chunkPath(runID, index))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read chunk %d: %w", index, err)
	}
	return data, nil
}

// DeleteChunkResults implements Store.
func (s *FileStore) DeleteChunkResults(_ context.Context, runID string) error {
	matches, err := filepath.Glob(filepath.Join(s.runDir(runID), "chunk_*_result.json"))
	if err != nil {
		return fmt.Errorf("store: list chunk files: %w", err)
	}
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			errs = append(errs, fmt.Errorf("store: remove %q: %w", m, err))
		}
	}
	return errors.Join(errs...)
}

// SaveTranscript implements Store.
func (s *FileStore) SaveTranscript(_ context.Context, runID string, t *types.Transcript) error {
	if err := os.MkdirAll(s.runDir(runID), 0o755); err != nil {
		return fmt.Errorf("store: create run dir: %w", err)
	}

	path := s.transcriptPath(runID)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %q: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("store: encode transcript: %w", err)
	}
	return nil
}

// Transcript implements Store.
func (s *FileStore) Transcript(_ context.Context, runID string) (*types.Transcript, error) {
	data, err := os.ReadFile(s.transcriptPath(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read transcript: %w", err)
	}
	t := types.NewTranscript()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("store: decode transcript: %w", err)
	}
	return t, nil
}
