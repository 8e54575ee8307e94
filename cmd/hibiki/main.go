// Command hibiki transcribes long-form audio: it splits a WAV recording into
// bounded-duration chunks, runs one asynchronous recognition job per chunk
// against the AmiVoice API, and merges the diarized, sentiment-scored results
// into a single annotated per-speaker transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aomorin/hibiki/internal/config"
	"github.com/aomorin/hibiki/internal/health"
	"github.com/aomorin/hibiki/internal/markup"
	"github.com/aomorin/hibiki/internal/observe"
	"github.com/aomorin/hibiki/internal/orchestrator"
	"github.com/aomorin/hibiki/internal/store"
	"github.com/aomorin/hibiki/pkg/audio"
	"github.com/aomorin/hibiki/pkg/provider/recognition/amivoice"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	audioPath := flag.String("audio", "", "path to the source WAV recording")
	model := flag.String("model", "", "recognition model, overriding run.model")
	speakers := flag.Int("speakers", 0, "diarization speaker count, overriding run.speakers")
	flag.Parse()

	in := *audioPath
	if in == "" && flag.NArg() > 0 {
		in = flag.Arg(0)
	}
	if in == "" {
		fmt.Fprintln(os.Stderr, "usage: hibiki [-config config.yaml] [-model name] [-speakers n] <recording.wav>")
		return 2
	}

	// Best-effort .env loading so AMIVOICE_API_KEY can live next to the binary.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hibiki: config file %q not found (copy configs/example.yaml to get started)\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hibiki: %v\n", err)
		}
		return 1
	}
	if *model != "" {
		cfg.Run.Model = *model
	}
	if *speakers > 0 {
		cfg.Run.Speakers = *speakers
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "hibiki: %v\n", err)
		return 1
	}
	if cfg.Service.APIKey == "" {
		fmt.Fprintf(os.Stderr, "hibiki: no API key — set service.api_key or the %s environment variable\n", config.EnvAPIKey)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Result store ──────────────────────────────────────────────────────────
	st, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise store", "backend", cfg.Storage.Backend, "err", err)
		return 1
	}
	defer closeStore()

	// ── Admin endpoint (optional) ─────────────────────────────────────────────
	if cfg.Server.AdminAddr != "" {
		srv := newAdminServer(cfg.Server.AdminAddr, st)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("admin server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		slog.Info("admin endpoint listening", "addr", cfg.Server.AdminAddr)
	}

	// ── Recognition client ────────────────────────────────────────────────────
	var opts []amivoice.Option
	if cfg.Service.Endpoint != "" {
		opts = append(opts, amivoice.WithEndpoint(cfg.Service.Endpoint))
	}
	client, err := amivoice.New(cfg.Service.APIKey, opts...)
	if err != nil {
		slog.Error("failed to create recognition client", "err", err)
		return 1
	}
	grammar, err := amivoice.ResolveGrammar(cfg.Run.Model)
	if err != nil {
		slog.Error("failed to resolve model", "model", cfg.Run.Model, "err", err)
		return 1
	}

	// ── Markup engine ─────────────────────────────────────────────────────────
	engine, err := markup.NewEngine(config.MarkupRules(cfg),
		markup.WithWideSpacingNormalization(*cfg.Markup.NormalizeWideSpacing))
	if err != nil {
		slog.Error("failed to build markup engine", "err", err)
		return 1
	}

	// ── Segmentation ──────────────────────────────────────────────────────────
	f, err := os.Open(in)
	if err != nil {
		slog.Error("failed to open recording", "path", in, "err", err)
		return 1
	}
	chunks, err := audio.Segment(f, cfg.Run.ChunkDuration.Std())
	f.Close()
	if err != nil {
		slog.Error("failed to segment recording", "path", in, "err", err)
		return 1
	}
	slog.Info("recording segmented",
		"path", in,
		"chunks", len(chunks),
		"chunk_duration", cfg.Run.ChunkDuration.Std(),
	)

	// ── Run ───────────────────────────────────────────────────────────────────
	orch, err := orchestrator.New(client, st, engine, &consoleSink{}, nil, orchestrator.Config{
		Grammar:      grammar,
		Speakers:     cfg.Run.Speakers,
		PollInterval: cfg.Service.PollInterval.Std(),
		MaxInFlight:  cfg.Run.MaxInFlight,
	})
	if err != nil {
		slog.Error("failed to initialise orchestrator", "err", err)
		return 1
	}

	report, err := orch.Run(ctx, chunks)
	if err != nil {
		slog.Error("run failed", "err", err)
		return 1
	}

	fmt.Print(report.Text)
	fmt.Printf("\nrun %s: %d chunk(s) in %.2f seconds\n", report.RunID, report.NumChunks, report.Elapsed.Seconds())
	return 0
}

// newStore builds the configured store backend and its cleanup func.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return store.NewMemoryStore(), func() {}, nil
	case config.StorageFile:
		fs, err := store.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case config.StoragePostgres:
		ps, err := store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return ps, ps.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// newAdminServer wires the health and metrics handlers.
func newAdminServer(addr string, st store.Store) *http.Server {
	var checks []health.Check
	if ps, ok := st.(*store.PostgresStore); ok {
		checks = append(checks, health.Check{Name: "store", Probe: ps.Ping})
	}

	mux := http.NewServeMux()
	health.New(checks...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
