package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aomorin/hibiki/pkg/types"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint error.
const uniqueViolation = "23505"

const ddlChunkResults = `
CREATE TABLE IF NOT EXISTS chunk_results (
    run_id      TEXT        NOT NULL,
    chunk_index INT         NOT NULL,
    payload     JSONB       NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (run_id, chunk_index)
);`

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    run_id     TEXT        PRIMARY KEY,
    payload    JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore persists chunk results and transcripts in PostgreSQL via a
// pgx connection pool. All operations are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn, verifies the connection,
// and ensures the required tables exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	for _, ddl := range []string{ddlChunkResults, ddlTranscripts} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: migrate: %w", err)
		}
	}
	return &PostgresStore{pool: pool}, nil
}

// Ping reports whether the database is reachable. Used as a readiness check.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// SaveChunkResult implements Store. The primary key enforces write-once
// semantics; a duplicate insert maps to ErrAlreadyStored.
func (s *PostgresStore) SaveChunkResult(ctx context.Context, runID string, index int, result json.RawMessage) error {
	const q = `
		INSERT INTO chunk_results (run_id, chunk_index, payload)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, q, runID, index, result)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyStored
		}
		return fmt.Errorf("store: save chunk %d: %w", index, err)
	}
	return nil
}

// ChunkResult implements Store.
func (s *PostgresStore) ChunkResult(ctx context.Context, runID string, index int) (json.RawMessage, error) {
	const q = `
		SELECT payload
		FROM   chunk_results
		WHERE  run_id = $1 AND chunk_index = $2`

	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, q, runID, index).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load chunk %d: %w", index, err)
	}
	return payload, nil
}

// DeleteChunkResults implements Store.
func (s *PostgresStore) DeleteChunkResults(ctx context.Context, runID string) error {
	const q = `DELETE FROM chunk_results WHERE run_id = $1`

	if _, err := s.pool.Exec(ctx, q, runID); err != nil {
		return fmt.Errorf("store: delete chunk results: %w", err)
	}
	return nil
}

// SaveTranscript implements Store.
func (s *PostgresStore) SaveTranscript(ctx context.Context, runID string, t *types.Transcript) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("store: marshal transcript: %w", err)
	}

	const q = `
		INSERT INTO transcripts (run_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET payload = EXCLUDED.payload`

	if _, err := s.pool.Exec(ctx, q, runID, payload); err != nil {
		return fmt.Errorf("store: save transcript: %w", err)
	}
	return nil
}

// Transcript implements Store.
func (s *PostgresStore) Transcript(ctx context.Context, runID string) (*types.Transcript, error) {
	const q = `SELECT payload FROM transcripts WHERE run_id = $1`

	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, q, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load transcript: %w", err)
	}

	t := types.NewTranscript()
	if err := json.Unmarshal(payload, t); err != nil {
		return nil, fmt.Errorf("store: decode transcript: %w", err)
	}
	return t, nil
}
