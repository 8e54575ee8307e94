// Package orchestrator drives a chunked recognition run: it dispatches one
// concurrent job per audio chunk, polls every job to a terminal status,
// persists per-chunk results, and — once every chunk is terminal — folds the
// results into a single transcript exactly once and renders the final markup.
//
// Per-chunk failures are isolated: a failed chunk never cancels its siblings.
// All chunk goroutines run to a terminal outcome (result stored or error
// recorded), so a run always terminates; aggregation only happens when every
// chunk produced a result. Cancellation is honoured at every suspension
// point via the run context.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aomorin/hibiki/internal/aggregate"
	"github.com/aomorin/hibiki/internal/markup"
	"github.com/aomorin/hibiki/internal/observe"
	"github.com/aomorin/hibiki/internal/store"
	"github.com/aomorin/hibiki/pkg/audio"
	"github.com/aomorin/hibiki/pkg/provider/recognition"
	"github.com/aomorin/hibiki/pkg/types"
)

// defaultPollInterval is the fixed wait between job status polls.
const defaultPollInterval = 10 * time.Second

// Config holds the per-run recognition parameters.
type Config struct {
	// Grammar is the resolved recognition model identifier. Required.
	Grammar string

	// Speakers is the diarization speaker count. Must be >= 1.
	Speakers int

	// PollInterval is the fixed wait between status polls. Zero selects the
	// 10 s default.
	PollInterval time.Duration

	// MaxInFlight caps concurrently processed chunks. Zero means unbounded:
	// every chunk's job is in flight at once.
	MaxInFlight int
}

// Orchestrator coordinates one recognition run at a time. It is safe to run
// sequential runs from the same instance.
type Orchestrator struct {
	svc     recognition.Service
	store   store.Store
	engine  *markup.Engine
	sink    EventSink
	metrics *observe.Metrics
	cfg     Config
}

// New creates an Orchestrator. svc, st and engine are required; sink may be
// nil to discard events; metrics may be nil to use the globally registered
// meter provider.
func New(svc recognition.Service, st store.Store, engine *markup.Engine, sink EventSink, metrics *observe.Metrics, cfg Config) (*Orchestrator, error) {
	if svc == nil {
		return nil, errors.New("orchestrator: recognition service is required")
	}
	if st == nil {
		return nil, errors.New("orchestrator: store is required")
	}
	if engine == nil {
		return nil, errors.New("orchestrator: markup engine is required")
	}
	if cfg.Grammar == "" {
		return nil, errors.New("orchestrator: grammar is required")
	}
	if cfg.Speakers < 1 {
		return nil, fmt.Errorf("orchestrator: speaker count %d is out of range (must be >= 1)", cfg.Speakers)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if sink == nil {
		sink = NopSink{}
	}
	if metrics == nil {
		m, err := observe.NewMetrics(otel.GetMeterProvider())
		if err != nil {
			return nil, fmt.Errorf("orchestrator: init metrics: %w", err)
		}
		metrics = m
	}
	return &Orchestrator{
		svc:     svc,
		store:   st,
		engine:  engine,
		sink:    sink,
		metrics: metrics,
		cfg:     cfg,
	}, nil
}

// Report is the outcome of a successful run.
type Report struct {
	// RunID keys the run's stored artifacts.
	RunID string

	// NumChunks is the number of chunks processed.
	NumChunks int

	// Elapsed is the wall-clock duration from dispatch to final transcript.
	Elapsed time.Duration

	// Transcript is the merged per-speaker transcript.
	Transcript *types.Transcript

	// Text is the final annotated per-speaker text.
	Text string
}

// Run processes all chunks to a terminal state, then aggregates and renders.
//
// Aggregation happens exactly once, strictly after every chunk goroutine has
// returned. When one or more chunks failed, Run returns their joined errors
// and produces no transcript — partial aggregation is never exposed. Sibling
// chunks of a failed chunk still run to completion.
func (o *Orchestrator) Run(ctx context.Context, chunks []audio.Chunk) (*Report, error) {
	if len(chunks) == 0 {
		return nil, errors.New("orchestrator: no chunks to process")
	}

	state := &RunState{
		ID:        uuid.NewString(),
		NumChunks: len(chunks),
		Grammar:   o.cfg.Grammar,
		Speakers:  o.cfg.Speakers,
		StartedAt: time.Now(),
	}

	ctx, span := observe.StartSpan(ctx, "hibiki.run", trace.WithAttributes(
		attribute.String("run_id", state.ID),
		attribute.Int("chunks", state.NumChunks),
		attribute.String("grammar", state.Grammar),
	))
	defer span.End()

	log := observe.Logger(ctx).With("run_id", state.ID)
	log.Info("run starting",
		"chunks", state.NumChunks,
		"grammar", state.Grammar,
		"speakers", state.Speakers,
		"max_in_flight", o.cfg.MaxInFlight,
	)

	// One slot per chunk: workers record their own failure and always return
	// nil to the group, so one chunk's failure never cancels its siblings.
	chunkErrs := make([]error, len(chunks))

	var g errgroup.Group
	if o.cfg.MaxInFlight > 0 {
		g.SetLimit(o.cfg.MaxInFlight)
	}
	for _, chunk := range chunks {
		g.Go(func() error {
			if err := o.processChunk(ctx, state, chunk); err != nil {
				chunkErrs[chunk.Index] = fmt.Errorf("chunk %d: %w", chunk.Index, err)
				o.sink.ChunkFailed(chunk.Index, err)
				log.Error("chunk failed", "chunk", chunk.Index, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(chunkErrs...); err != nil {
		return nil, fmt.Errorf("orchestrator: run %s: %w", state.ID, err)
	}

	// Every chunk is terminal with a stored result: fold exactly once.
	transcript, err := aggregate.Fold(ctx, o.store, state.ID, state.NumChunks)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: run %s: %w", state.ID, err)
	}
	if err := o.store.SaveTranscript(ctx, state.ID, transcript); err != nil {
		return nil, fmt.Errorf("orchestrator: run %s: %w", state.ID, err)
	}
	if err := o.store.DeleteChunkResults(ctx, state.ID); err != nil {
		// The transcript is already durable; leaking chunk artifacts is not
		// worth failing the run over.
		log.Warn("failed to reclaim chunk results", "err", err)
	}

	text := o.engine.Render(transcript)
	elapsed := time.Since(state.StartedAt)
	o.metrics.RunDuration.Record(ctx, elapsed.Seconds())
	o.sink.RunCompleted(elapsed, text)
	log.Info("run completed", "elapsed", elapsed, "speakers", len(transcript.Order))

	return &Report{
		RunID:      state.ID,
		NumChunks:  state.NumChunks,
		Elapsed:    elapsed,
		Transcript: transcript,
		Text:       text,
	}, nil
}
