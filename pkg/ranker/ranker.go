package ranker

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/internal/types"
)

// RRF constant; dampens the weight gap between neighboring ranks.
const rrfK = 60

type Method string

const (
	MethodRRF      Method = "rrf"
	MethodPairwise Method = "pairwise"
)

// Ranker deduplicates and re-scores channel-tagged hits into one ranked
// list, either by reciprocal rank fusion alone or refined by a pairwise
// relevance model.
type Ranker struct {
	method Method
	scorer types.PairScorer
}

// NewWithMethod fails fast on a pairwise configuration without a scorer;
// a reranker discovered to be missing at query time would degrade every
// query silently.
func NewWithMethod(method Method, scorer types.PairScorer) (*Ranker, error) {
	switch method {
	case "", MethodRRF:
		return &Ranker{method: MethodRRF}, nil
	case MethodPairwise:
		if scorer == nil {
			return nil, fmt.Errorf("pairwise reranking selected but no pair scorer configured")
		}
		return &Ranker{method: MethodPairwise, scorer: scorer}, nil
	default:
		return nil, fmt.Errorf("unknown reranker method %q", method)
	}
}

// Rank fuses the hits and, for the pairwise method, re-scores the fused
// candidates with the relevance model. A scorer failure keeps the fusion
// order; reranking never fails the query.
func (r *Ranker) Rank(ctx context.Context, query string, hits []models.RetrievalHit, topK int) []models.FusedResult {
	if len(hits) == 0 {
		return nil
	}

	fused := Fuse(hits)

	if r.method == MethodPairwise {
		reranked, err := r.pairwise(ctx, query, fused)
		if err != nil {
			log.Printf("pairwise rerank failed, keeping fusion order: %v", err)
		} else {
			fused = reranked
		}
	}

	return truncate(fused, topK)
}

// Fuse merges the hits with reciprocal rank fusion: every channel a record
// appears in contributes 1/(k+rank) to its score. Exact score ties keep
// first-encounter order, so repeated runs produce the same ordering.
func Fuse(hits []models.RetrievalHit) []models.FusedResult {
	index := make(map[string]int, len(hits))
	var fused []models.FusedResult

	for _, hit := range hits {
		i, ok := index[hit.Record.ID]
		if !ok {
			i = len(fused)
			index[hit.Record.ID] = i
			fused = append(fused, models.FusedResult{Record: hit.Record})
		}
		fused[i].Score += 1.0 / float64(rrfK+hit.ChannelRank)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	for i := range fused {
		fused[i].Rank = i + 1
	}
	return fused
}

// pairwise replaces the fused scores entirely with the relevance model's
// pair scores; no blending.
func (r *Ranker) pairwise(ctx context.Context, query string, candidates []models.FusedResult) ([]models.FusedResult, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Record.Text
	}

	scores, err := r.scorer.ScorePairs(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("pair scorer returned %d scores for %d candidates", len(scores), len(candidates))
	}

	reranked := make([]models.FusedResult, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	for i := range reranked {
		reranked[i].Rank = i + 1
	}
	return reranked, nil
}

func truncate(results []models.FusedResult, topK int) []models.FusedResult {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}
