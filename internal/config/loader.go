package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aomorin/hibiki/internal/markup"
	"github.com/aomorin/hibiki/pkg/provider/recognition/amivoice"
)

// Environment variables consulted by [Load] after decoding, so secrets can
// stay out of the config file.
const (
	EnvAPIKey      = "AMIVOICE_API_KEY"
	EnvPostgresDSN = "HIBIKI_POSTGRES_DSN"
)

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secret-bearing fields from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Service.APIKey = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Storage.PostgresDSN = v
	}
}

// applyDefaults fills zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Service.PollInterval == 0 {
		cfg.Service.PollInterval = Duration(10 * time.Second)
	}
	if cfg.Run.Speakers == 0 {
		cfg.Run.Speakers = 1
	}
	if cfg.Run.ChunkDuration == 0 {
		cfg.Run.ChunkDuration = Duration(3 * time.Hour)
	}
	if cfg.Run.MaxInFlight == 0 {
		cfg.Run.MaxInFlight = 4
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageFile
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "runs"
	}
	if cfg.Markup.NormalizeWideSpacing == nil {
		enabled := true
		cfg.Markup.NormalizeWideSpacing = &enabled
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Service.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("service.poll_interval %v must not be negative", cfg.Service.PollInterval.Std()))
	}

	if cfg.Run.Model == "" {
		errs = append(errs, errors.New("run.model is required"))
	} else if _, err := amivoice.ResolveGrammar(cfg.Run.Model); err != nil {
		errs = append(errs, fmt.Errorf("run.model: %w (known models: %v)", err, amivoice.ModelNames()))
	}
	if cfg.Run.Speakers < 1 {
		errs = append(errs, fmt.Errorf("run.speakers %d is out of range (must be >= 1)", cfg.Run.Speakers))
	}
	if cfg.Run.ChunkDuration <= 0 {
		errs = append(errs, fmt.Errorf("run.chunk_duration %v must be positive", cfg.Run.ChunkDuration.Std()))
	}
	if cfg.Run.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("run.max_in_flight %d must not be negative", cfg.Run.MaxInFlight))
	}

	if !cfg.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, file, postgres", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("storage.postgres_dsn is required when storage.backend is postgres (or set %s)", EnvPostgresDSN))
	}

	if err := markup.ValidateRules(MarkupRules(cfg)); err != nil {
		errs = append(errs, fmt.Errorf("markup: %w", err))
	}

	return errors.Join(errs...)
}

// MarkupRules converts the configured rule list into markup engine rules.
func MarkupRules(cfg *Config) []markup.Rule {
	rules := make([]markup.Rule, 0, len(cfg.Markup.Rules))
	for _, r := range cfg.Markup.Rules {
		rules = append(rules, markup.Rule{
			Parameter: r.Parameter,
			Threshold: r.Threshold,
			Enabled:   r.Enabled,
		})
	}
	return rules
}
