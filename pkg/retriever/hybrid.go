package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/internal/types"
)

// ErrRetrievalUnavailable is returned only when every search channel
// failed; a single failed channel degrades to the survivors instead.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Each channel over-fetches topK*overFetch hits so the fusion ranker has
// material to work with.
const overFetch = 2

// HybridRetriever issues the vector and lexical channels of one query
// against the index store and returns the channel-tagged union of hits.
type HybridRetriever struct {
	store    types.IndexStore
	embedder types.Embedder
}

func NewHybrid(store types.IndexStore, embedder types.Embedder) *HybridRetriever {
	return &HybridRetriever{store: store, embedder: embedder}
}

// HybridSearch embeds the query and runs both channels concurrently. Hits
// carry their originating channel, 1-based channel rank and raw channel
// score. Per-query state only; nothing is shared between in-flight queries.
func (h *HybridRetriever) HybridSearch(ctx context.Context, query string, topK int) ([]models.RetrievalHit, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := topK * overFetch

	var (
		wg      sync.WaitGroup
		vector  []models.SearchResult
		lexical []models.SearchResult
		vecErr  error
		lexErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		qvec, err := h.embedder.EmbedQuery(ctx, query)
		if err != nil {
			vecErr = err
			return
		}
		vector, vecErr = h.store.VectorSearch(ctx, qvec, limit)
	}()
	go func() {
		defer wg.Done()
		lexical, lexErr = h.store.LexicalSearch(ctx, query, limit)
	}()
	wg.Wait()

	if vecErr != nil && lexErr != nil {
		return nil, fmt.Errorf("%w: vector: %v; lexical: %v", ErrRetrievalUnavailable, vecErr, lexErr)
	}
	if vecErr != nil {
		log.Printf("vector channel failed, degrading to lexical results: %v", vecErr)
	}
	if lexErr != nil {
		log.Printf("lexical channel failed, degrading to vector results: %v", lexErr)
	}

	hits := make([]models.RetrievalHit, 0, len(vector)+len(lexical))
	for i, r := range vector {
		hits = append(hits, models.RetrievalHit{
			Record:       r.Record,
			Channel:      models.ChannelVector,
			ChannelRank:  i + 1,
			ChannelScore: r.Score,
		})
	}
	for i, r := range lexical {
		hits = append(hits, models.RetrievalHit{
			Record:       r.Record,
			Channel:      models.ChannelLexical,
			ChannelRank:  i + 1,
			ChannelScore: r.Score,
		})
	}
	return hits, nil
}
