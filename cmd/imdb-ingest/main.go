// Command imdb-ingest builds an imdbindex index directory from a set of
// IMDb TSV dumps.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/ingest"
	"github.com/distributed-search/imdb-index/internal/ingestconfig"
	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/logx"
	"github.com/distributed-search/imdb-index/internal/metrics"
	"github.com/distributed-search/imdb-index/pkg/imdbindex"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to ingest config YAML (optional; flags override it)")
	indexDir := flag.String("index-dir", "", "directory to build the index into")
	titlesPath := flag.String("titles", "", "path to title.basics.tsv")
	episodesPath := flag.String("episodes", "", "path to title.episode.tsv")
	akasPath := flag.String("akas", "", "path to title.akas.tsv")
	ratingsPath := flag.String("ratings", "", "path to title.ratings.tsv")
	ngramSize := flag.Int("ngram-size", 0, "character n-gram width (0 = use config default)")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address until the build completes")
	flag.Parse()

	cfg, err := ingestconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading ingest config: %v\n", err)
		return indexerr.ExitUsage
	}
	applyFlagOverrides(cfg, *indexDir, *titlesPath, *episodesPath, *akasPath, *ratingsPath, *ngramSize)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return indexerr.ExitUsage
	}

	logx.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log := logx.WithComponent("ingest")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if *metricsAddr != "" {
		m = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	sources := ingest.Sources{
		Titles:   cfg.Sources.Titles,
		Episodes: cfg.Sources.Episodes,
		Akas:     cfg.Sources.Akas,
		Ratings:  cfg.Sources.Ratings,
	}
	opts := imdbindex.BuildOptions{
		BuildOptions: invindex.BuildOptions{
			NGramSize:        cfg.NGramSize,
			SpillBudgetBytes: cfg.SpillBudgetBytes,
			SpillWorkers:     cfg.SpillWorkers,
		},
	}

	log.Info("starting build", "index_dir", cfg.IndexDir, "titles", sources.Titles)
	stats, err := imdbindex.Build(ctx, cfg.IndexDir, sources, opts)
	if err != nil {
		log.Error("build failed", "error", err)
		return indexerr.ExitCode(err)
	}

	log.Info("build complete",
		"rows_seen", stats.RowsSeen,
		"rows_rejected", stats.RowsRejected,
		"spill_files", stats.SpillFiles,
		"merge_passes", stats.MergePasses,
	)
	if m != nil {
		var rejected int64
		for _, n := range stats.RowsRejected {
			rejected += n
		}
		m.IngestRowsTotal.WithLabelValues("accepted").Add(float64(stats.RowsSeen - rejected))
		m.IngestRowsTotal.WithLabelValues("rejected").Add(float64(rejected))
	}
	return indexerr.ExitOK
}

func applyFlagOverrides(cfg *ingestconfig.Config, indexDir, titles, episodes, akas, ratings string, ngramSize int) {
	if indexDir != "" {
		cfg.IndexDir = indexDir
	}
	if titles != "" {
		cfg.Sources.Titles = titles
	}
	if episodes != "" {
		cfg.Sources.Episodes = episodes
	}
	if akas != "" {
		cfg.Sources.Akas = akas
	}
	if ratings != "" {
		cfg.Sources.Ratings = ratings
	}
	if ngramSize > 0 {
		cfg.NGramSize = ngramSize
	}
}
