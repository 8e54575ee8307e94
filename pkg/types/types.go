// Package types defines the shared types used across all hibiki packages.
//
// These types form the lingua franca between the recognition provider, the
// chunk-result store, the aggregator, and the markup engine. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// TextSpan is a single diarized token of recognised speech: the written text
// plus its start and end offsets. Offsets are chunk-local — they are not
// re-based across chunk boundaries, so spans from different chunks may carry
// overlapping time ranges. Ordering is positional, never timestamp-based.
type TextSpan struct {
	// Text is the written form of the token as produced by the recognition
	// service. For Latin-script tokens it usually carries a leading space.
	Text string `json:"text"`

	// Start is the token's start offset within its source chunk.
	Start time.Duration `json:"starttime"`

	// End is the token's end offset within its source chunk.
	End time.Duration `json:"endtime"`
}

// SentimentSpan is a time-bounded set of named numeric scores describing
// inferred emotional signal over that interval. Like TextSpan, offsets are
// chunk-local.
type SentimentSpan struct {
	Start time.Duration `json:"starttime"`
	End   time.Duration `json:"endtime"`

	// Scores maps sentiment parameter names (e.g. "excitement", "stress")
	// to their numeric values for this interval.
	Scores map[string]float64 `json:"scores"`
}

// Transcript is the merged output of one recognition run: every chunk's
// diarized tokens folded into per-speaker span sequences, plus a per-speaker
// sentiment timeline. It is built exactly once per run, after the last chunk
// reaches a terminal status.
//
// Span order within a speaker is append order: chunks are folded in ascending
// index order, tokens in stream order within a chunk. Chunk order is
// authoritative — timestamps are never consulted for ordering.
type Transcript struct {
	// Speakers maps a diarization label (e.g. "speaker0") to that speaker's
	// ordered token spans.
	Speakers map[string][]TextSpan `json:"speakers"`

	// Sentiments maps a speaker label to the sentiment spans attributed to it.
	Sentiments map[string][]SentimentSpan `json:"sentiments"`

	// Order lists speaker labels in first-seen order. JSON objects do not
	// preserve key order, so the rendering order is carried explicitly.
	Order []string `json:"speaker_order"`
}

// NewTranscript returns an empty Transcript ready for folding.
func NewTranscript() *Transcript {
	return &Transcript{
		Speakers:   make(map[string][]TextSpan),
		Sentiments: make(map[string][]SentimentSpan),
	}
}

// AppendText appends span to the given speaker's sequence, creating the
// speaker entry (and recording its position in Order) on first sight.
func (t *Transcript) AppendText(speaker string, span TextSpan) {
	if _, ok := t.Speakers[speaker]; !ok {
		t.Order = append(t.Order, speaker)
	}
	t.Speakers[speaker] = append(t.Speakers[speaker], span)
}

// AppendSentiment appends span to the given speaker's sentiment timeline.
// A speaker that only ever receives sentiment spans (never text) is still
// recorded in Order so the timeline is not silently dropped.
func (t *Transcript) AppendSentiment(speaker string, span SentimentSpan) {
	if _, ok := t.Speakers[speaker]; !ok {
		if _, seen := t.Sentiments[speaker]; !seen {
			t.Order = append(t.Order, speaker)
		}
	}
	t.Sentiments[speaker] = append(t.Sentiments[speaker], span)
}
