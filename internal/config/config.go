// Package config provides the configuration schema and loader for the hibiki
// transcription orchestrator.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the hibiki CLI.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StorageBackend selects where chunk results and transcripts are persisted.
type StorageBackend string

const (
	// StorageMemory keeps results in process memory for the duration of the run.
	StorageMemory StorageBackend = "memory"

	// StorageFile writes per-run JSON artifacts under storage.dir.
	StorageFile StorageBackend = "file"

	// StoragePostgres persists results in PostgreSQL via storage.postgres_dsn.
	StoragePostgres StorageBackend = "postgres"
)

// IsValid reports whether b is a recognised storage backend.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageMemory, StorageFile, StoragePostgres:
		return true
	}
	return false
}

// Duration is a time.Duration that decodes from YAML duration strings such
// as "10s" or "3h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for hibiki. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Service ServiceConfig `yaml:"service"`
	Run     RunConfig     `yaml:"run"`
	Storage StorageConfig `yaml:"storage"`
	Markup  MarkupConfig  `yaml:"markup"`
}

// ServerConfig holds logging and admin-endpoint settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AdminAddr is the optional TCP address for the /healthz, /readyz and
	// /metrics endpoints (e.g. ":9090"). Empty disables the admin server.
	AdminAddr string `yaml:"admin_addr"`
}

// ServiceConfig describes the remote recognition service.
type ServiceConfig struct {
	// Endpoint overrides the recognition API endpoint. Empty uses the
	// provider's built-in default.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against the service. Usually supplied via the
	// AMIVOICE_API_KEY environment variable rather than the config file.
	APIKey string `yaml:"api_key"`

	// PollInterval is the fixed wait between job status polls. Default: 10s.
	PollInterval Duration `yaml:"poll_interval"`
}

// RunConfig holds the recognition parameters for a run.
type RunConfig struct {
	// Model is the recognition model: a catalogue name (e.g. "会話_汎用") or
	// a raw grammar identifier (e.g. "-a-general").
	Model string `yaml:"model"`

	// Speakers is the diarization speaker count, used as both the minimum
	// and maximum. Must be >= 1. Default: 1.
	Speakers int `yaml:"speakers"`

	// ChunkDuration is the maximum audible length of one chunk. Default: 3h.
	ChunkDuration Duration `yaml:"chunk_duration"`

	// MaxInFlight caps concurrently processed chunks. Default: 4.
	MaxInFlight int `yaml:"max_in_flight"`
}

// StorageConfig selects and configures the chunk result store.
type StorageConfig struct {
	// Backend selects the store implementation. Default: "file".
	Backend StorageBackend `yaml:"backend"`

	// Dir is the artifact root for the file backend. Default: "runs".
	Dir string `yaml:"dir"`

	// PostgresDSN is the connection string for the postgres backend. Usually
	// supplied via the HIBIKI_POSTGRES_DSN environment variable.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MarkupConfig configures the transcript markup engine.
type MarkupConfig struct {
	// NormalizeWideSpacing drops a space immediately followed by a non-ASCII
	// rune when speaker text is joined. Defaults to true.
	NormalizeWideSpacing *bool `yaml:"normalize_wide_spacing"`

	// Rules lists per-parameter annotation rules.
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is one markup rule: annotate spans whose sentiment score for
// Parameter strictly exceeds Threshold.
type RuleConfig struct {
	Parameter string  `yaml:"parameter"`
	Threshold float64 `yaml:"threshold"`
	Enabled   bool    `yaml:"enabled"`
}
