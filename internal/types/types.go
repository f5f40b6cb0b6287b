package types

import (
	"context"

	"github.com/docsift/docsift/internal/models"
)

// Embedder maps texts to fixed-length dense vectors, one per input text,
// preserving order. Deterministic for a fixed model configuration.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IndexStore is a hybrid lexical+vector store keyed by record identity.
type IndexStore interface {
	Upsert(ctx context.Context, records []models.IndexedRecord) (models.UpsertResult, error)
	LexicalSearch(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	VectorSearch(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int64, error)
	SizeBytes(ctx context.Context) (int64, error)
	Close()
}

// Chunker splits raw text into bounded, overlapping chunks, copying the
// supplied metadata into every chunk.
type Chunker interface {
	Split(text string, meta models.ChunkMeta) []models.Chunk
}

// Searcher issues a hybrid query against the index and returns the raw,
// channel-tagged union of hits.
type Searcher interface {
	HybridSearch(ctx context.Context, query string, topK int) ([]models.RetrievalHit, error)
}

// Ranker fuses channel-tagged hits into one ranked, deduplicated list.
type Ranker interface {
	Rank(ctx context.Context, query string, hits []models.RetrievalHit, topK int) []models.FusedResult
}

// PairScorer scores (query, text) pairs with a pairwise relevance model,
// one score per text, preserving order.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error)
}

// AnswerGenerator produces an answer from the top fused results. The
// boolean reports whether the degraded non-generative fallback was used.
// It never fails: on model errors it degrades instead.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, results []models.FusedResult) (string, bool)
}
