package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
run:
  model: 会話_汎用
`

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, LogInfo)
	}
	if cfg.Service.PollInterval.Std() != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", cfg.Service.PollInterval.Std())
	}
	if cfg.Run.Speakers != 1 {
		t.Errorf("Speakers = %d, want 1", cfg.Run.Speakers)
	}
	if cfg.Run.ChunkDuration.Std() != 3*time.Hour {
		t.Errorf("ChunkDuration = %v, want 3h", cfg.Run.ChunkDuration.Std())
	}
	if cfg.Run.MaxInFlight != 4 {
		t.Errorf("MaxInFlight = %d, want 4", cfg.Run.MaxInFlight)
	}
	if cfg.Storage.Backend != StorageFile {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, StorageFile)
	}
	if cfg.Storage.Dir != "runs" {
		t.Errorf("Dir = %q, want %q", cfg.Storage.Dir, "runs")
	}
	if cfg.Markup.NormalizeWideSpacing == nil || !*cfg.Markup.NormalizeWideSpacing {
		t.Error("NormalizeWideSpacing should default to true")
	}
}

func TestLoadFromReaderFullConfig(t *testing.T) {
	yaml := `
server:
  log_level: debug
  admin_addr: ":9090"
service:
  endpoint: "https://example.com/v1/recognitions"
  api_key: "from-file"
  poll_interval: 5s
run:
  model: "-a-general-en"
  speakers: 3
  chunk_duration: 30m
  max_in_flight: 2
storage:
  backend: memory
markup:
  normalize_wide_spacing: false
  rules:
    - parameter: excitement
      threshold: 15
      enabled: true
    - parameter: stress
      threshold: 60
      enabled: false
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != LogDebug || cfg.Server.AdminAddr != ":9090" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Service.PollInterval.Std() != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Service.PollInterval.Std())
	}
	if cfg.Run.Speakers != 3 || cfg.Run.ChunkDuration.Std() != 30*time.Minute || cfg.Run.MaxInFlight != 2 {
		t.Errorf("run = %+v", cfg.Run)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if *cfg.Markup.NormalizeWideSpacing {
		t.Error("NormalizeWideSpacing should stay false, not be overridden by defaults")
	}

	rules := MarkupRules(cfg)
	if len(rules) != 2 {
		t.Fatalf("len(rules) = %d, want 2", len(rules))
	}
	if rules[0].Parameter != "excitement" || rules[0].Threshold != 15 || !rules[0].Enabled {
		t.Errorf("rules[0] = %+v", rules[0])
	}
	if rules[1].Enabled {
		t.Errorf("rules[1] = %+v, want disabled", rules[1])
	}
}

func TestLoadFromReaderRejections(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "unknown field",
			yaml:    "run:\n  model: 会話_汎用\n  modell: typo\n",
			wantMsg: "field modell not found",
		},
		{
			name:    "missing model",
			yaml:    "run:\n  speakers: 1\n",
			wantMsg: "run.model is required",
		},
		{
			name:    "unknown model",
			yaml:    "run:\n  model: bogus\n",
			wantMsg: "unknown model",
		},
		{
			name:    "negative speakers",
			yaml:    "run:\n  model: 会話_汎用\n  speakers: -1\n",
			wantMsg: "run.speakers",
		},
		{
			name:    "bad log level",
			yaml:    "server:\n  log_level: loud\nrun:\n  model: 会話_汎用\n",
			wantMsg: "server.log_level",
		},
		{
			name:    "bad storage backend",
			yaml:    "run:\n  model: 会話_汎用\nstorage:\n  backend: redis\n",
			wantMsg: "storage.backend",
		},
		{
			name:    "postgres without dsn",
			yaml:    "run:\n  model: 会話_汎用\nstorage:\n  backend: postgres\n",
			wantMsg: "storage.postgres_dsn is required",
		},
		{
			name:    "unknown markup parameter",
			yaml:    "run:\n  model: 会話_汎用\nmarkup:\n  rules:\n    - parameter: happiness\n      threshold: 1\n",
			wantMsg: "unknown sentiment parameter",
		},
		{
			name:    "threshold out of range",
			yaml:    "run:\n  model: 会話_汎用\nmarkup:\n  rules:\n    - parameter: excitement\n      threshold: 99\n",
			wantMsg: "out of range",
		},
		{
			name:    "bad duration",
			yaml:    "run:\n  model: 会話_汎用\n  chunk_duration: threeish\n",
			wantMsg: "invalid duration",
		},
	}

	// Neutralise ambient credentials so the postgres case fails as intended.
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvPostgresDSN, "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("LoadFromReader should fail")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadFromReaderEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvPostgresDSN, "postgres://env")

	yaml := `
service:
  api_key: file-key
run:
  model: 会話_汎用
storage:
  backend: postgres
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Service.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Service.APIKey)
	}
	if cfg.Storage.PostgresDSN != "postgres://env" {
		t.Errorf("PostgresDSN = %q, want env override", cfg.Storage.PostgresDSN)
	}
}

func TestLoadFromReaderEmptyInput(t *testing.T) {
	// An empty config decodes to defaults; validation then reports the
	// missing model rather than a YAML error.
	_, err := LoadFromReader(strings.NewReader(""))
	if err == nil {
		t.Fatal("empty config should fail validation")
	}
	if !strings.Contains(err.Error(), "run.model is required") {
		t.Errorf("err = %q, want missing-model validation failure", err)
	}
}
