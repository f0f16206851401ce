package query

import (
	"fmt"
	"sort"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/record"
	"github.com/distributed-search/imdb-index/internal/scorer"
	"github.com/distributed-search/imdb-index/internal/similarity"
	"github.com/distributed-search/imdb-index/internal/store"
)

// Engine runs the search pipeline over an opened index. It holds no
// state beyond its store/reader handles — every Search call is
// independent and never logs (spec.md §7: "the engine itself never
// writes to stdout or a log sink").
type Engine struct {
	Index    *invindex.Reader
	Names    *store.NameStore
	Titles   *store.TitleStore
	Episodes *store.EpisodeStore
}

type ranked struct {
	nameID     uint32
	titleID    string
	boost      float64
	relevance  float64
	similarity float64
	final      float64
}

// Search runs the pipeline described in spec.md §4.8: tokenize, score,
// re-rank, filter, resolve and dedupe by title, trim to Query.Size.
func (e *Engine) Search(q Query) ([]SearchResult, error) {
	if q.Text == "" {
		return nil, indexerr.New(indexerr.ErrEmptyQuery, indexerr.ExitUsage, "query text is empty")
	}
	if q.TVShowID != "" {
		parent, err := e.Titles.Get(q.TVShowID)
		if err != nil {
			return nil, indexerr.Newf(indexerr.ErrUnknownParent, indexerr.ExitUsage, "tvshow id %s", q.TVShowID)
		}
		if !parent.Kind.IsSeries() {
			return nil, indexerr.Newf(indexerr.ErrUnknownParent, indexerr.ExitUsage, "%s is not a series", q.TVShowID)
		}
	}

	q = applyDefaults(q)

	candidates, err := scorer.GenerateAndScore(e.Index, q.Text, q.NGramSize, q.Scorer, q.MinTokenOverlap)
	if err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Relevance != candidates[j].Relevance {
			return candidates[i].Relevance > candidates[j].Relevance
		}
		return candidates[i].ID < candidates[j].ID
	})
	top := candidates
	if q.RerankTop > 0 && len(top) > q.RerankTop {
		top = top[:q.RerankTop]
	}

	results := make([]ranked, 0, len(top))
	for _, c := range top {
		entry, err := e.Names.Get(c.ID)
		if err != nil {
			continue
		}
		title, err := e.Titles.Get(entry.TitleID)
		if err != nil {
			continue
		}
		if !passesFilters(q, title, e.Episodes) {
			continue
		}
		sim := similarity.Score(q.Similarity, q.Text, entry.Name)
		final := similarity.Blend(c.Relevance, sim, q.SimilarityWeight)
		results = append(results, ranked{
			nameID: c.ID, titleID: entry.TitleID, boost: entry.ScoreBoost,
			relevance: c.Relevance, similarity: sim, final: final,
		})
	}

	best := dedupeByTitle(results)
	sortFinal(best)
	if q.Size > 0 && len(best) > q.Size {
		best = best[:q.Size]
	}

	out := make([]SearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, SearchResult{
			TitleID:     r.titleID,
			NameEntryID: r.nameID,
			Score:       r.final,
			Components:  Components{Relevance: r.relevance, Similarity: r.similarity, Final: r.final},
		})
	}
	return out, nil
}

func applyDefaults(q Query) Query {
	d := DefaultQuery(q.Text)
	if q.Size == 0 {
		q.Size = d.Size
	}
	if q.NGramSize == 0 {
		q.NGramSize = d.NGramSize
	}
	if q.MinTokenOverlap == 0 {
		q.MinTokenOverlap = d.MinTokenOverlap
	}
	if q.RerankTop == 0 {
		q.RerankTop = d.RerankTop
	}
	if q.SimilarityWeight == 0 {
		q.SimilarityWeight = d.SimilarityWeight
	}
	return q
}

func passesFilters(q Query, title record.Title, episodes *store.EpisodeStore) bool {
	if q.Year != nil {
		if title.StartYear == nil {
			return false
		}
		diff := int(*title.StartYear) - int(*q.Year)
		if diff < -1 || diff > 1 {
			return false
		}
	}
	if q.KindFilter != nil && title.Kind != *q.KindFilter {
		return false
	}
	if q.TVShowID != "" || q.Season != nil || q.Episode != nil {
		if title.Kind != record.KindTVEpisode {
			return false
		}
		ep, err := episodes.Get(title.ID)
		if err != nil {
			return false
		}
		if q.TVShowID != "" && ep.TVShowID != q.TVShowID {
			return false
		}
		if q.Season != nil && (ep.Season == nil || *ep.Season != *q.Season) {
			return false
		}
		if q.Episode != nil && (ep.Episode == nil || *ep.Episode != *q.Episode) {
			return false
		}
	}
	return true
}

// dedupeByTitle keeps, for each title_id, only its best-scoring name
// variant (spec.md §4.8 step 5).
func dedupeByTitle(results []ranked) []ranked {
	best := make(map[string]ranked, len(results))
	for _, r := range results {
		cur, ok := best[r.titleID]
		if !ok || r.final > cur.final {
			best[r.titleID] = r
		}
	}
	out := make([]ranked, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	return out
}

// sortFinal orders results by (score desc, score_boost desc,
// name_entry_id asc), the total order spec.md §8 requires for search
// stability.
func sortFinal(results []ranked) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].final != results[j].final {
			return results[i].final > results[j].final
		}
		if results[i].boost != results[j].boost {
			return results[i].boost > results[j].boost
		}
		return results[i].nameID < results[j].nameID
	})
}
