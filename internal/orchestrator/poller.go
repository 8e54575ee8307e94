package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aomorin/hibiki/internal/observe"
	"github.com/aomorin/hibiki/pkg/audio"
	"github.com/aomorin/hibiki/pkg/provider/recognition"
)

// pollProgressStep is the coarse per-poll progress increment reported while a
// job is still pending. Progress is held below 100 until the job is terminal.
const pollProgressStep = 10

// progressCeiling caps pre-terminal progress reporting.
const progressCeiling = 90

// processChunk owns one chunk's full job lifecycle:
//
//	Submitting → AwaitingResult → {Completed, Failed}
//
// Submission sends the chunk's audio with diarization and sentiment analysis
// enabled. Polling repeats at the configured fixed interval until the remote
// job reports a terminal status; there is no retry at any step — a transport
// failure or rejection fails the chunk immediately. A remote job ending in
// status "error" is still terminal-with-result: its body is persisted like a
// completed one.
//
// On a terminal status the result is persisted keyed by chunk index, progress
// jumps to 100, and the run's completed counter is incremented atomically.
func (o *Orchestrator) processChunk(ctx context.Context, state *RunState, chunk audio.Chunk) error {
	ctx, span := observe.StartSpan(ctx, "hibiki.chunk", trace.WithAttributes(
		attribute.Int("chunk", chunk.Index),
	))
	defer span.End()

	log := observe.Logger(ctx).With("run_id", state.ID, "chunk", chunk.Index)

	o.metrics.ActiveJobs.Add(ctx, 1)
	defer o.metrics.ActiveJobs.Add(ctx, -1)

	contentID := fmt.Sprintf("chunk_%d.wav", chunk.Index)

	submitStart := time.Now()
	sessionID, err := o.svc.Submit(ctx, recognition.SubmitRequest{
		ContentID:    contentID,
		Grammar:      o.cfg.Grammar,
		SpeakerCount: o.cfg.Speakers,
		Audio:        chunk.Data,
	})
	o.metrics.SubmitDuration.Record(ctx, time.Since(submitStart).Seconds())
	// The audio buffer is dead weight past submission on every path.
	chunk.Data = nil
	if err != nil {
		o.recordFailure(ctx, state)
		return err
	}
	log.Debug("job submitted", "session_id", sessionID, "duration", chunk.Duration)

	progress := 0
	for {
		jobState, err := o.svc.Poll(ctx, sessionID)
		if err != nil {
			o.metrics.PollRequests.Add(ctx, 1, metric.WithAttributes(
				attribute.String("status", "transport_error"),
			))
			o.recordFailure(ctx, state)
			return err
		}
		o.metrics.PollRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(jobState.Status)),
		))

		if jobState.Status.Terminal() {
			if err := o.store.SaveChunkResult(ctx, state.ID, chunk.Index, jobState.Raw); err != nil {
				o.recordFailure(ctx, state)
				return fmt.Errorf("persist result: %w", err)
			}

			o.sink.ChunkProgress(chunk.Index, 100)
			o.sink.ChunkCompleted(chunk.Index)
			done := state.completed.Add(1)

			outcome := "completed"
			if jobState.Status == recognition.StatusError {
				outcome = "remote_error"
			}
			o.metrics.ChunkOutcomes.Add(ctx, 1, metric.WithAttributes(
				attribute.String("outcome", outcome),
			))
			log.Info("chunk terminal",
				"status", jobState.Status,
				"completed", done,
				"total", state.NumChunks,
			)
			return nil
		}

		if progress < progressCeiling {
			progress += pollProgressStep
		}
		o.sink.ChunkProgress(chunk.Index, progress)
		log.Debug("job pending", "status", jobState.Status, "progress", progress)

		select {
		case <-ctx.Done():
			o.recordFailure(ctx, state)
			return ctx.Err()
		case <-time.After(o.cfg.PollInterval):
		}
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, state *RunState) {
	state.failed.Add(1)
	o.metrics.ChunkOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "failed"),
	))
}
