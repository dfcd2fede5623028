// CLAUDE:SUMMARY App-wide YAML configuration: server, digest, triage, llm, storage sections.
// Package config loads the application configuration from YAML, merging the
// file over defaults that work out of the box for public repositories.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/llm"
	"github.com/nnamdiodozi/gitdigest/triage"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Digest  DigestConfig  `yaml:"digest"`
	Triage  TriageConfig  `yaml:"triage"`
	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen     string `yaml:"listen"`
	CORSOrigin string `yaml:"cors_origin"`
	MaxBodyKB  int    `yaml:"max_body_kb"`
	RatePerMin int    `yaml:"rate_per_min"`
	RateBurst  int    `yaml:"rate_burst"`
}

// DigestConfig configures ingestion defaults.
type DigestConfig struct {
	Binary           string        `yaml:"binary"`
	OutputDir        string        `yaml:"output_dir"`
	DefaultMaxSize   int64         `yaml:"default_max_size"`
	DefaultWordCount int           `yaml:"default_word_count"`
	ExcludePatterns  []string      `yaml:"default_exclude_patterns"`
	MaxSummaries     int           `yaml:"max_summaries"`
	Timeout          time.Duration `yaml:"timeout"`
}

// TriageConfig wraps the engine configuration with an on/off switch. When
// disabled the full digest goes to the model as-is.
type TriageConfig struct {
	Enabled bool          `yaml:"enabled"`
	Engine  triage.Config `yaml:",inline"`
}

// LLMConfig selects a provider and holds the per-provider settings.
type LLMConfig struct {
	Provider  string                `yaml:"provider"`
	Timeout   time.Duration         `yaml:"timeout"`
	Providers map[string]llm.Config `yaml:"providers"`
}

// StorageConfig locates the SQLite databases.
type StorageConfig struct {
	RunsDB   string `yaml:"runs_db"`
	EventsDB string `yaml:"events_db"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:     ":8001",
			CORSOrigin: "http://localhost:3000",
			MaxBodyKB:  64,
			RatePerMin: 30,
			RateBurst:  10,
		},
		Digest: DigestConfig{
			Binary:           "gitingest",
			OutputDir:        "git_summaries",
			DefaultMaxSize:   ingest.DefaultMaxFileSize,
			DefaultWordCount: llm.DefaultWordCount,
			ExcludePatterns:  ingest.DefaultExcludePatterns,
			MaxSummaries:     20,
			Timeout:          5 * time.Minute,
		},
		Triage: TriageConfig{
			Enabled: true,
			Engine: triage.Config{
				TokenThreshold: triage.DefaultTokenThreshold,
				Tiers:          triage.DefaultTiers(),
				Format:         triage.DefaultFormat(),
			},
		},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  5 * time.Minute,
			Providers: map[string]llm.Config{
				"openai": {
					BaseURL: "https://api.openai.com/v1",
					Model:   "gpt-4.1-mini",
					AuthEnv: "OPENAI_API_KEY",
				},
			},
		},
		Storage: StorageConfig{
			RunsDB:   "gitdigest.db",
			EventsDB: "gitdigest_events.db",
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Digest.OutputDir == "" {
		return fmt.Errorf("digest.output_dir is required")
	}
	if c.Digest.DefaultMaxSize <= 0 {
		return fmt.Errorf("digest.default_max_size must be > 0")
	}
	if c.Digest.DefaultWordCount <= 0 {
		return fmt.Errorf("digest.default_word_count must be > 0")
	}
	if c.Digest.MaxSummaries <= 0 {
		return fmt.Errorf("digest.max_summaries must be > 0")
	}
	if c.Triage.Enabled {
		if err := engineConfig(c.Triage.Engine).Validate(); err != nil {
			return fmt.Errorf("triage: %w", err)
		}
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if _, ok := c.LLM.Providers[c.LLM.Provider]; !ok {
		return fmt.Errorf("llm.provider %q has no providers entry", c.LLM.Provider)
	}
	if c.Storage.RunsDB == "" {
		return fmt.Errorf("storage.runs_db is required")
	}
	return nil
}

// ProviderConfig returns the selected provider's settings with the shared
// timeout applied.
func (c *Config) ProviderConfig() llm.Config {
	pc := c.LLM.Providers[c.LLM.Provider]
	if pc.Timeout <= 0 {
		pc.Timeout = c.LLM.Timeout
	}
	return pc
}

// IngestConfig maps the digest section onto the runner configuration.
func (c *Config) IngestConfig() ingest.Config {
	return ingest.Config{
		Binary:          c.Digest.Binary,
		OutputDir:       c.Digest.OutputDir,
		MaxFileSize:     c.Digest.DefaultMaxSize,
		ExcludePatterns: c.Digest.ExcludePatterns,
		Timeout:         c.Digest.Timeout,
	}
}

// engineConfig copies the triage config so Validate sees merged defaults
// without mutating the loaded value. The tier map inherits the engine's
// defaults for missing keys, the same merge triage.New applies, so a partial
// map of disabled tiers validates the way it will run.
func engineConfig(ec triage.Config) *triage.Config {
	cp := ec
	cp.Tiers = triage.DefaultTiers()
	for k, v := range ec.Tiers {
		cp.Tiers[k] = v
	}
	if cp.TokenThreshold == 0 {
		cp.TokenThreshold = triage.DefaultTokenThreshold
	}
	if cp.Format == (triage.Format{}) {
		cp.Format = triage.DefaultFormat()
	}
	return &cp
}
