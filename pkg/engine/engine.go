package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/internal/types"
)

type Config struct {
	IndexName     string
	BatchSize     int     // upsert sub-batch size
	TopK          int     // default result count per query
	RateLimit     float64 // ingestion model/store calls per second, 0 disables
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	AnswerTimeout time.Duration
}

// Engine wires the retrieval pipeline together: chunking and indexing on
// the write path, hybrid search, fusion and answer synthesis on the read
// path. All collaborators are passed in at construction so they can be
// replaced by test doubles.
type Engine struct {
	config   Config
	chunker  types.Chunker
	embedder types.Embedder
	store    types.IndexStore
	searcher types.Searcher
	ranker   types.Ranker
	answers  types.AnswerGenerator
	limiter  *rate.Limiter
}

func New(config Config, chunker types.Chunker, embedder types.Embedder, store types.IndexStore,
	searcher types.Searcher, ranker types.Ranker, answers types.AnswerGenerator) *Engine {

	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.TopK == 0 {
		config.TopK = 10
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Engine{
		config:   config,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		searcher: searcher,
		ranker:   ranker,
		answers:  answers,
		limiter:  limiter,
	}
}

// IngestDocument chunks every page, embeds the whole document in one batch
// call and upserts the records in sub-batches. Identities derive from
// (source, page, chunk id), so re-ingesting the same document with the
// same chunking parameters overwrites instead of duplicating.
func (e *Engine) IngestDocument(ctx context.Context, doc models.DocumentInput) (models.IngestReport, error) {
	report := models.IngestReport{Source: doc.Source}

	var chunks []models.Chunk
	for _, page := range doc.Pages {
		meta := models.ChunkMeta{Source: doc.Source, Page: page.Page, Method: page.Method}
		chunks = append(chunks, e.chunker.Split(page.Text, meta)...)
	}
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return report, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	if err := e.wait(ctx); err != nil {
		return report, err
	}
	embedCtx, cancel := e.withTimeout(ctx, e.config.EmbedTimeout)
	vectors, err := e.embedder.EmbedTexts(embedCtx, texts)
	cancel()
	if err != nil {
		return report, fmt.Errorf("embedding %s: %w", doc.Source, err)
	}

	records := make([]models.IndexedRecord, len(chunks))
	for i, ch := range chunks {
		records[i] = models.IndexedRecord{
			ID:       models.RecordID(ch.Source, ch.Page, ch.ChunkID),
			Text:     ch.Text,
			Vector:   vectors[i],
			Page:     ch.Page,
			Source:   ch.Source,
			ChunkID:  ch.ChunkID,
			Metadata: recordMetadata(ch),
		}
	}

	for start := 0; start < len(records); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(records) {
			end = len(records)
		}

		if err := e.wait(ctx); err != nil {
			return report, err
		}
		result, err := e.store.Upsert(ctx, records[start:end])
		report.Indexed += result.Indexed
		report.Failed = append(report.Failed, result.Failed...)
		if err != nil {
			return report, fmt.Errorf("indexing %s: %w", doc.Source, err)
		}
	}

	return report, nil
}

// IngestAll processes documents sequentially and checks for cancellation
// between them, so stopping never leaves a torn document behind. One
// document failing does not abort the rest; per-document errors are
// joined into the returned error.
func (e *Engine) IngestAll(ctx context.Context, docs []models.DocumentInput) ([]models.IngestReport, error) {
	reports := make([]models.IngestReport, 0, len(docs))
	var errs []error

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := e.IngestDocument(ctx, doc)
		reports = append(reports, report)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return reports, err
			}
			errs = append(errs, err)
		}
	}

	return reports, errors.Join(errs...)
}

type QueryOptions struct {
	TopK           int
	UseReranker    bool
	GenerateAnswer bool
}

func DefaultQueryOptions() QueryOptions {
	return QueryOptions{TopK: 0, UseReranker: true, GenerateAnswer: true}
}

// Query runs the full read path: hybrid search, fusion/reranking, answer
// synthesis. It always returns a structured result, possibly with a
// degraded answer; the only error it surfaces is retrieval being wholly
// unavailable.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (models.QueryResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = e.config.TopK
	}
	result := models.QueryResult{Question: question}

	searchCtx, cancel := e.withTimeout(ctx, e.config.SearchTimeout)
	hits, err := e.searcher.HybridSearch(searchCtx, question, opts.TopK)
	cancel()
	if err != nil {
		return result, err
	}

	var fused []models.FusedResult
	if opts.UseReranker {
		fused = e.ranker.Rank(ctx, question, hits, opts.TopK)
	} else {
		fused = rawOrder(hits, opts.TopK)
	}
	result.Results = fused
	result.NumResults = len(fused)

	if opts.GenerateAnswer {
		answerCtx, cancel := e.withTimeout(ctx, e.config.AnswerTimeout)
		result.Answer, result.Degraded = e.answers.GenerateAnswer(answerCtx, question, fused)
		cancel()
	}

	return result, nil
}

// Stats reports the observable state of the index.
func (e *Engine) Stats(ctx context.Context) (models.IndexStats, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return models.IndexStats{}, err
	}
	size, err := e.store.SizeBytes(ctx)
	if err != nil {
		return models.IndexStats{}, err
	}
	return models.IndexStats{
		IndexName:     e.config.IndexName,
		DocumentCount: count,
		SizeBytes:     size,
	}, nil
}

// rawOrder keeps the retrieval encounter order, deduplicated by identity,
// for callers that opted out of reranking.
func rawOrder(hits []models.RetrievalHit, topK int) []models.FusedResult {
	seen := make(map[string]bool, len(hits))
	var results []models.FusedResult
	for _, hit := range hits {
		if seen[hit.Record.ID] {
			continue
		}
		seen[hit.Record.ID] = true
		results = append(results, models.FusedResult{
			Record: hit.Record,
			Score:  hit.ChannelScore,
			Rank:   len(results) + 1,
		})
		if topK > 0 && len(results) == topK {
			break
		}
	}
	return results
}

func recordMetadata(ch models.Chunk) map[string]string {
	meta := make(map[string]string, len(ch.Metadata)+2)
	for k, v := range ch.Metadata {
		meta[k] = v
	}
	meta["method"] = ch.Method
	meta["chunk_len"] = strconv.Itoa(len([]rune(ch.Text)))
	return meta
}

func (e *Engine) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func (e *Engine) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
