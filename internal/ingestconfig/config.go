// Package ingestconfig loads the YAML configuration consumed by
// cmd/imdb-ingest: source file locations and the ingest-time tokenizer
// and external-sort knobs (spec.md §10). This is separate from the
// on-disk config.toml an index directory itself carries (spec.md §6),
// which records build-time facts rather than operator-supplied options.
package ingestconfig

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/invindex"
)

// Config is the top-level ingest configuration.
type Config struct {
	IndexDir         string        `yaml:"indexDir"`
	Sources          SourcesConfig `yaml:"sources"`
	NGramSize        int           `yaml:"ngramSize"`
	SpillBudgetBytes int           `yaml:"spillBudgetBytes"`
	SpillWorkers     int           `yaml:"spillWorkers"`
	Logging          LoggingConfig `yaml:"logging"`
}

// SourcesConfig locates the four IMDb TSV dumps consumed at ingest.
type SourcesConfig struct {
	Titles   string `yaml:"titles"`
	Episodes string `yaml:"episodes"`
	Akas     string `yaml:"akas"`
	Ratings  string `yaml:"ratings"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if path is non-empty) over a set of
// defaults, then applies IMDBIDX_* environment-variable overrides. It does
// not validate the result, so a caller can apply further overrides (such as
// command-line flags) before calling Validate.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading ingest config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing ingest config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		IndexDir:         "./imdb-index",
		NGramSize:        3,
		SpillBudgetBytes: invindex.DefaultSpillBudgetBytes,
		SpillWorkers:     invindex.DefaultSpillWorkers,
		Logging:          LoggingConfig{Level: "info", Format: "json"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IMDBIDX_INDEX_DIR"); v != "" {
		cfg.IndexDir = v
	}
	if v := os.Getenv("IMDBIDX_SOURCES_TITLES"); v != "" {
		cfg.Sources.Titles = v
	}
	if v := os.Getenv("IMDBIDX_SOURCES_EPISODES"); v != "" {
		cfg.Sources.Episodes = v
	}
	if v := os.Getenv("IMDBIDX_SOURCES_AKAS"); v != "" {
		cfg.Sources.Akas = v
	}
	if v := os.Getenv("IMDBIDX_SOURCES_RATINGS"); v != "" {
		cfg.Sources.Ratings = v
	}
	if v := os.Getenv("IMDBIDX_NGRAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NGramSize = n
		}
	}
	if v := os.Getenv("IMDBIDX_SPILL_BUDGET_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SpillBudgetBytes = n
		}
	}
	if v := os.Getenv("IMDBIDX_SPILL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SpillWorkers = n
		}
	}
	if v := os.Getenv("IMDBIDX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IMDBIDX_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate rejects a configuration missing required source paths or
// carrying out-of-range numeric options.
func (c *Config) Validate() error {
	if c.IndexDir == "" {
		return indexerr.New(indexerr.ErrConfigInvalid, indexerr.ExitUsage, "indexDir is required")
	}
	if c.Sources.Titles == "" {
		return indexerr.New(indexerr.ErrConfigInvalid, indexerr.ExitUsage, "sources.titles is required")
	}
	if c.NGramSize < 1 {
		return indexerr.New(indexerr.ErrConfigInvalid, indexerr.ExitUsage, "ngramSize must be >= 1")
	}
	if c.SpillBudgetBytes < 1 {
		return indexerr.New(indexerr.ErrConfigInvalid, indexerr.ExitUsage, "spillBudgetBytes must be >= 1")
	}
	if c.SpillWorkers < 1 {
		return indexerr.New(indexerr.ErrConfigInvalid, indexerr.ExitUsage, "spillWorkers must be >= 1")
	}
	return nil
}
