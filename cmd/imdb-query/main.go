// Command imdb-query runs ad hoc searches against a built imdbindex
// index directory and prints the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/logx"
	"github.com/distributed-search/imdb-index/internal/metrics"
	"github.com/distributed-search/imdb-index/internal/query"
	"github.com/distributed-search/imdb-index/internal/scorer"
	"github.com/distributed-search/imdb-index/internal/similarity"
	"github.com/distributed-search/imdb-index/internal/tokenizer"
	"github.com/distributed-search/imdb-index/pkg/health"
	"github.com/distributed-search/imdb-index/pkg/imdbindex"
)

func main() {
	os.Exit(run())
}

func run() int {
	indexDir := flag.String("index", "", "path to a built index directory")
	text := flag.String("q", "", "query text")
	fromFile := flag.String("filename", "", "interpret this filename instead of -q")
	year := flag.Int("year", 0, "filter by start year (+/- 1)")
	size := flag.Int("size", 0, "max results (0 = engine default)")
	scorerName := flag.String("scorer", "bm25", "relevance scorer: bm25, tfidf, jaccard, qgram")
	similarityName := flag.String("similarity", "levenshtein", "re-rank similarity: none, levenshtein, jaccard")
	logLevel := flag.String("log-level", "info", "debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "json or text")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address until the query completes")
	flag.Parse()

	logx.Setup(*logLevel, *logFormat)
	log := logx.WithComponent("query")

	if *indexDir == "" {
		fmt.Fprintln(os.Stderr, "-index is required")
		return indexerr.ExitUsage
	}

	idx, err := imdbindex.Open(*indexDir)
	if err != nil {
		log.Error("opening index", "error", err)
		return indexerr.ExitCode(err)
	}
	defer idx.Close()

	var m *metrics.Metrics
	var srv *http.Server
	if *metricsAddr != "" {
		m = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		checker := health.NewChecker()
		checker.Register("index", func(ctx context.Context) health.ComponentHealth {
			if err := idx.Healthy(); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
		srv = &http.Server{Addr: *metricsAddr, Handler: mux}
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

	q, err := buildQuery(*text, *fromFile, *year, *size, *scorerName, *similarityName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return indexerr.ExitUsage
	}
	// Tokenize the query with the n-gram width the index was built with.
	if n := idx.Config().NGramSize; n > 0 {
		q.NGramSize = n
	}

	if m != nil {
		tokenizeStart := time.Now()
		tokenizer.Tokenize(q.Text, idx.Config().NGramSize)
		m.TokenizeDuration.Observe(time.Since(tokenizeStart).Seconds())
	}

	start := time.Now()
	results, err := idx.Search(q)
	elapsed := time.Since(start)
	if m != nil {
		m.QueryLatency.WithLabelValues(q.Scorer.String()).Observe(elapsed.Seconds())
		m.CandidatesGenerated.Observe(float64(len(results)))
	}
	if err != nil {
		log.Error("search failed", "error", err)
		if m != nil {
			m.QueriesTotal.WithLabelValues("error").Inc()
		}
		return indexerr.ExitCode(err)
	}
	if len(results) == 0 {
		if m != nil {
			m.QueriesTotal.WithLabelValues("zero_result").Inc()
		}
		fmt.Println("[]")
		return indexerr.ExitNoResults
	}
	if m != nil {
		m.QueriesTotal.WithLabelValues("hit").Inc()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		log.Error("encoding results", "error", err)
		return indexerr.ExitGeneric
	}
	return indexerr.ExitOK
}

func buildQuery(text, fromFile string, year, size int, scorerName, similarityName string) (query.Query, error) {
	if fromFile != "" {
		hints := imdbindex.InterpretFilename(fromFile)
		q := query.DefaultQuery(hints.Text)
		q.Year = hints.Year
		q.Season = hints.Season
		q.Episode = hints.Episode
		q.KindFilter = hints.KindGuess
		return finishQuery(q, year, size, scorerName, similarityName), nil
	}
	if text == "" {
		return query.Query{}, fmt.Errorf("-q or -filename is required")
	}
	q := query.DefaultQuery(text)
	return finishQuery(q, year, size, scorerName, similarityName), nil
}

func finishQuery(q query.Query, year, size int, scorerName, similarityName string) query.Query {
	if year > 0 {
		y := uint16(year)
		q.Year = &y
	}
	if size > 0 {
		q.Size = size
	}
	q.Scorer = scorer.ParseKind(scorerName)
	q.Similarity = similarity.ParseKind(similarityName)
	return q
}
