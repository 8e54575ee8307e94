// Package aggregate folds the per-chunk results of a recognition run into a
// single speaker-keyed transcript with a per-speaker sentiment timeline.
//
// Chunks are folded in ascending index order; that order — not any cross-chunk
// timestamp — defines the final span ordering. Timestamps stay chunk-local.
//
// Known limitation: the remote schema carries no speaker field on sentiment
// segments, so every sentiment segment is attributed to the speaker label most
// recently seen in the diarization stream (carrying over across chunks), not
// matched by timestamp overlap. Sentiment segments arriving before any
// diarized token fall back to the "Unknown Speaker" label.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aomorin/hibiki/internal/store"
	"github.com/aomorin/hibiki/pkg/types"
)

// unknownSpeaker labels tokens without a diarization label and sentiment
// segments with no preceding speaker.
const unknownSpeaker = "Unknown Speaker"

// IntegrityError reports missing or malformed data for an expected chunk.
// It aborts aggregation — a partial transcript is never produced.
type IntegrityError struct {
	// Chunk is the index of the offending chunk.
	Chunk int

	// Err is the underlying store or decode failure.
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("aggregate: chunk %d: %v", e.Chunk, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Fold reads the results of chunks 0..numChunks-1 for runID from st and
// merges them into one transcript. All chunk results must be present; a
// missing or undecodable chunk yields an *IntegrityError and no transcript.
//
// Fold only reads — persisting the transcript and reclaiming the per-chunk
// storage is the caller's responsibility, so a persistence failure cannot
// leave the store half-reclaimed.
func Fold(ctx context.Context, st store.Store, runID string, numChunks int) (*types.Transcript, error) {
	t := types.NewTranscript()
	lastSpeaker := ""

	for i := 0; i < numChunks; i++ {
		raw, err := st.ChunkResult(ctx, runID, i)
		if err != nil {
			return nil, &IntegrityError{Chunk: i, Err: err}
		}

		var payload chunkPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, &IntegrityError{Chunk: i, Err: fmt.Errorf("decode result: %w", err)}
		}

		for _, seg := range payload.Segments {
			for _, res := range seg.Results {
				for _, tok := range res.Tokens {
					speaker := tok.Label
					if speaker == "" {
						speaker = unknownSpeaker
					}
					t.AppendText(speaker, types.TextSpan{
						Text:  tok.Written,
						Start: millis(tok.Start),
						End:   millis(tok.End),
					})
					lastSpeaker = speaker
				}
			}
		}

		if payload.SentimentAnalysis == nil {
			continue
		}
		speaker := lastSpeaker
		if speaker == "" {
			speaker = unknownSpeaker
		}
		for _, seg := range payload.SentimentAnalysis.Segments {
			t.AppendSentiment(speaker, types.SentimentSpan{
				Start:  millis(seg.Start),
				End:    millis(seg.End),
				Scores: seg.Scores,
			})
		}
	}

	return t, nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
