package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docsift/docsift/internal/models"
)

type Config struct {
	ConnString string
	IndexName  string // table name, one table per index
	VectorDim  int
	BatchSize  int
}

// HybridStore keeps chunks in a single Postgres table that serves both
// retrieval channels: a pgvector column for cosine similarity and a
// generated tsvector column for lexical relevance.
type HybridStore struct {
	config Config
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config Config) (*HybridStore, error) {
	if config.IndexName == "" {
		config.IndexName = "rag_documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	hs := &HybridStore{config: config, pool: pool}

	if err := hs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return hs, nil
}

func (hs *HybridStore) initialize(ctx context.Context) error {
	_, err := hs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	// An index declares its dimensionality once at creation. Opening an
	// existing index with a different dimensionality is a configuration
	// error, not something to silently recreate.
	dim, err := hs.existingDim(ctx)
	if err != nil {
		return err
	}
	if dim > 0 && dim != hs.config.VectorDim {
		return fmt.Errorf("index %q already exists with vector dimension %d, configured %d",
			hs.config.IndexName, dim, hs.config.VectorDim)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			chunk_id INTEGER NOT NULL DEFAULT 0,
			text TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB,
			text_search tsvector GENERATED ALWAYS AS (to_tsvector('simple', text)) STORED
		)`, hs.config.IndexName, hs.config.VectorDim)

	if _, err := hs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		hs.config.IndexName, hs.config.IndexName)

	if _, err := hs.pool.Exec(ctx, createVectorIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %v", err)
	}

	createLexicalIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_text_search_idx
		ON %s
		USING gin (text_search)`,
		hs.config.IndexName, hs.config.IndexName)

	if _, err := hs.pool.Exec(ctx, createLexicalIndex); err != nil {
		return fmt.Errorf("failed to create lexical index: %v", err)
	}

	return nil
}

// existingDim reads the declared dimension of the embedding column, or 0
// when the table does not exist yet. For vector columns atttypmod holds
// the dimension directly.
func (hs *HybridStore) existingDim(ctx context.Context) (int, error) {
	var dim int
	err := hs.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		WHERE c.relname = $1 AND a.attname = 'embedding'`,
		hs.config.IndexName).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to inspect existing index: %v", err)
	}
	return dim, nil
}

// Upsert writes records in sub-batches, overwriting by identity. Records
// that fail are reported by id in the result; the remaining batches still
// run. Returns an error only when nothing could be attempted.
func (hs *HybridStore) Upsert(ctx context.Context, records []models.IndexedRecord) (models.UpsertResult, error) {
	var result models.UpsertResult

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, page, chunk_id, text, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		hs.config.IndexName)

	for _, sub := range SubBatches(len(records), hs.config.BatchSize) {
		batch := &pgx.Batch{}
		var queued []string

		for _, rec := range records[sub.Start:sub.End] {
			if len(rec.Vector) != hs.config.VectorDim {
				result.Failed = append(result.Failed, rec.ID)
				continue
			}
			batch.Queue(stmt,
				rec.ID,
				rec.Source,
				rec.Page,
				rec.ChunkID,
				rec.Text,
				pgvector.NewVector(rec.Vector),
				rec.Metadata,
			)
			queued = append(queued, rec.ID)
		}
		if len(queued) == 0 {
			continue
		}

		br := hs.pool.SendBatch(ctx, batch)
		for _, id := range queued {
			if _, err := br.Exec(); err != nil {
				result.Failed = append(result.Failed, id)
				continue
			}
			result.Indexed++
		}
		_ = br.Close()

		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (hs *HybridStore) LexicalSearch(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	q := fmt.Sprintf(`
		SELECT id, source, page, chunk_id, text, metadata,
			ts_rank_cd(text_search, plainto_tsquery('simple', $1)) AS score
		FROM %s
		WHERE text_search @@ plainto_tsquery('simple', $1)
		ORDER BY score DESC
		LIMIT $2`,
		hs.config.IndexName)

	rows, err := hs.pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %v", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (hs *HybridStore) VectorSearch(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error) {
	if len(vector) != hs.config.VectorDim {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), hs.config.VectorDim)
	}

	// <=> is cosine distance; similarity = 1 - distance.
	q := fmt.Sprintf(`
		SELECT id, source, page, chunk_id, text, metadata,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		hs.config.IndexName)

	rows, err := hs.pool.Query(ctx, q, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %v", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]models.SearchResult, error) {
	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		err := rows.Scan(
			&r.Record.ID,
			&r.Record.Source,
			&r.Record.Page,
			&r.Record.ChunkID,
			&r.Record.Text,
			&r.Record.Metadata,
			&r.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}
	return results, nil
}

func (hs *HybridStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := hs.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.config.IndexName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %v", err)
	}
	return count, nil
}

func (hs *HybridStore) SizeBytes(ctx context.Context) (int64, error) {
	var size int64
	err := hs.pool.QueryRow(ctx, "SELECT pg_total_relation_size($1::regclass)", hs.config.IndexName).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to read index size: %v", err)
	}
	return size, nil
}

func (hs *HybridStore) Close() {
	if hs.pool != nil {
		hs.pool.Close()
	}
}
