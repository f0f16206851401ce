package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFile is the build-metadata file written last-but-one by a build,
// just before the READY marker (spec.md §2 item 9).
const ConfigFile = "config.toml"

// RejectCounts tallies rows dropped during ingest, keyed by source file
// (e.g. "titles", "akas").
type RejectCounts map[string]int64

// BuildStats accumulates the counters a build reports in config.toml,
// supplementing the distilled spec with the build-statistics behavior
// carried over from the original Rust implementation.
type BuildStats struct {
	RowsSeen     int64        `toml:"rows_seen"`
	RowsRejected RejectCounts `toml:"rows_rejected"`
	SpillFiles   int64        `toml:"spill_files"`
	MergePasses  int64        `toml:"merge_passes"`
}

// BuildConfig is the full contents of an index directory's config.toml.
type BuildConfig struct {
	NGramSize   int        `toml:"ngram_size"`
	BuiltAt     time.Time  `toml:"built_at"`
	DatasetHash string     `toml:"dataset_hash"`
	Stats       BuildStats `toml:"stats"`
}

// WriteConfig atomically writes cfg to dir/config.toml via a temp file,
// fsync, and rename, following the same durability pattern as the other
// index files (spec.md §4.4).
func WriteConfig(dir string, cfg BuildConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling build config: %w", err)
	}
	path := filepath.Join(dir, ConfigFile)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating build config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing build config: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing build config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing build config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming build config: %w", err)
	}
	return nil
}

// ReadConfig reads dir/config.toml, the build metadata a completed index
// directory carries alongside its data files.
func ReadConfig(dir string) (BuildConfig, error) {
	var cfg BuildConfig
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return cfg, fmt.Errorf("reading build config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing build config: %w", err)
	}
	return cfg, nil
}
