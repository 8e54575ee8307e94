// Package store persists per-chunk recognition results and the aggregated
// transcript of a run.
//
// Three backends are provided: an in-memory store for tests and one-shot
// runs, a file store writing per-run JSON artifacts, and a PostgreSQL store
// for durable multi-run deployments. All backends key chunk results by
// (run ID, chunk index) and enforce write-once semantics — a chunk result is
// never overwritten.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aomorin/hibiki/pkg/types"
)

// ErrNotFound is returned when a requested chunk result or transcript does
// not exist.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyStored is returned when a chunk result for the same run and index
// has already been recorded.
var ErrAlreadyStored = errors.New("store: chunk result already recorded")

// Store holds chunk results from the moment their job reaches a terminal
// status until the aggregator consumes them, and the combined transcript
// afterwards.
//
// Implementations must be safe for concurrent use — per-chunk jobs write
// results from parallel goroutines.
type Store interface {
	// SaveChunkResult records the raw terminal result for one chunk.
	// Returns ErrAlreadyStored if a result for (runID, index) exists.
	SaveChunkResult(ctx context.Context, runID string, index int, result json.RawMessage) error

	// ChunkResult returns the raw result for one chunk, or ErrNotFound.
	ChunkResult(ctx context.Context, runID string, index int) (json.RawMessage, error)

	// DeleteChunkResults reclaims all per-chunk storage for a run. Deleting
	// a run with no stored chunks is not an error.
	DeleteChunkResults(ctx context.Context, runID string) error

	// SaveTranscript persists the run's aggregated transcript artifact.
	SaveTranscript(ctx context.Context, runID string, t *types.Transcript) error

	// Transcript returns a run's aggregated transcript, or ErrNotFound.
	Transcript(ctx context.Context, runID string) (*types.Transcript, error)
}
