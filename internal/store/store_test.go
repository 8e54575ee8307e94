package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aomorin/hibiki/pkg/types"
)

// backends lists the store implementations exercised by the shared contract
// tests. The postgres backend needs a live database and is left out here.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestChunkResultRoundtrip(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := json.RawMessage(`{"status": "completed", "segments": []}`)

			if err := st.SaveChunkResult(ctx, "run-1", 0, want); err != nil {
				t.Fatalf("SaveChunkResult: %v", err)
			}
			got, err := st.ChunkResult(ctx, "run-1", 0)
			if err != nil {
				t.Fatalf("ChunkResult: %v", err)
			}
			if string(got) != string(want) {
				t.Errorf("ChunkResult = %s, want %s", got, want)
			}
		})
	}
}

func TestChunkResultWriteOnce(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := st.SaveChunkResult(ctx, "run-1", 2, json.RawMessage(`{"a": 1}`)); err != nil {
				t.Fatalf("SaveChunkResult: %v", err)
			}
			err := st.SaveChunkResult(ctx, "run-1", 2, json.RawMessage(`{"a": 2}`))
			if !errors.Is(err, ErrAlreadyStored) {
				t.Fatalf("second save err = %v, want ErrAlreadyStored", err)
			}

			// The original result must survive.
			got, err := st.ChunkResult(ctx, "run-1", 2)
			if err != nil {
				t.Fatalf("ChunkResult: %v", err)
			}
			if string(got) != `{"a": 1}` {
				t.Errorf("ChunkResult = %s, want first write", got)
			}

			// Same index under another run is independent.
			if err := st.SaveChunkResult(ctx, "run-2", 2, json.RawMessage(`{"b": 1}`)); err != nil {
				t.Errorf("save under other run: %v", err)
			}
		})
	}
}

func TestChunkResultNotFound(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.ChunkResult(context.Background(), "missing-run", 0)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteChunkResults(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := st.SaveChunkResult(ctx, "run-1", i, json.RawMessage(`{}`)); err != nil {
					t.Fatalf("SaveChunkResult(%d): %v", i, err)
				}
			}
			if err := st.DeleteChunkResults(ctx, "run-1"); err != nil {
				t.Fatalf("DeleteChunkResults: %v", err)
			}
			for i := 0; i < 3; i++ {
				if _, err := st.ChunkResult(ctx, "run-1", i); !errors.Is(err, ErrNotFound) {
					t.Errorf("chunk %d err = %v, want ErrNotFound after delete", i, err)
				}
			}

			// Deleting an unknown run is a no-op.
			if err := st.DeleteChunkResults(ctx, "missing-run"); err != nil {
				t.Errorf("delete missing run: %v", err)
			}
		})
	}
}

func TestTranscriptRoundtrip(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			want := types.NewTranscript()
			want.AppendText("speaker0", types.TextSpan{Text: "hello", Start: 0, End: 1000})
			want.AppendText("speaker1", types.TextSpan{Text: " there"})
			want.AppendSentiment("speaker0", types.SentimentSpan{
				Start: 0, End: 5000, Scores: map[string]float64{"excitement": 12},
			})

			if err := st.SaveTranscript(ctx, "run-1", want); err != nil {
				t.Fatalf("SaveTranscript: %v", err)
			}
			got, err := st.Transcript(ctx, "run-1")
			if err != nil {
				t.Fatalf("Transcript: %v", err)
			}

			if len(got.Order) != 2 || got.Order[0] != "speaker0" || got.Order[1] != "speaker1" {
				t.Errorf("Order = %v", got.Order)
			}
			if len(got.Speakers["speaker0"]) != 1 || got.Speakers["speaker0"][0].Text != "hello" {
				t.Errorf("Speakers[speaker0] = %+v", got.Speakers["speaker0"])
			}
			if got.Sentiments["speaker0"][0].Scores["excitement"] != 12 {
				t.Errorf("Sentiments[speaker0] = %+v", got.Sentiments["speaker0"])
			}
		})
	}
}

func TestTranscriptNotFound(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Transcript(context.Background(), "missing-run")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	if err := fs.SaveChunkResult(ctx, "run-1", 0, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("SaveChunkResult: %v", err)
	}
	if err := fs.SaveTranscript(ctx, "run-1", types.NewTranscript()); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}

	for _, name := range []string{"chunk_0_result.json", "combined_result.json"} {
		if _, err := os.Stat(filepath.Join(dir, "run-1", name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}

	// Reclaiming chunk storage must not touch the transcript.
	if err := fs.DeleteChunkResults(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteChunkResults: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-1", "combined_result.json")); err != nil {
		t.Errorf("transcript should survive chunk deletion: %v", err)
	}
}
