package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/pkg/retriever"
)

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeStore struct {
	vectorResults  []models.SearchResult
	lexicalResults []models.SearchResult
	vectorErr      error
	lexicalErr     error
	vectorLimit    int
	lexicalLimit   int
}

func (f *fakeStore) Upsert(context.Context, []models.IndexedRecord) (models.UpsertResult, error) {
	return models.UpsertResult{}, nil
}

func (f *fakeStore) VectorSearch(_ context.Context, _ []float32, limit int) ([]models.SearchResult, error) {
	f.vectorLimit = limit
	return f.vectorResults, f.vectorErr
}

func (f *fakeStore) LexicalSearch(_ context.Context, _ string, limit int) ([]models.SearchResult, error) {
	f.lexicalLimit = limit
	return f.lexicalResults, f.lexicalErr
}

func (f *fakeStore) Count(context.Context) (int64, error)     { return 0, nil }
func (f *fakeStore) SizeBytes(context.Context) (int64, error) { return 0, nil }
func (f *fakeStore) Close()                                   {}

func result(id string, score float64) models.SearchResult {
	return models.SearchResult{Record: models.IndexedRecord{ID: id, Text: "t-" + id}, Score: score}
}

func TestHybridSearch_TagsChannelsAndRanks(t *testing.T) {
	st := &fakeStore{
		vectorResults:  []models.SearchResult{result("v1", 0.9), result("both", 0.8)},
		lexicalResults: []models.SearchResult{result("both", 3.1), result("l2", 1.2)},
	}
	h := retriever.NewHybrid(st, fakeEmbedder{})

	hits, err := h.HybridSearch(context.Background(), "question", 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, models.ChannelVector, hits[0].Channel)
	assert.Equal(t, 1, hits[0].ChannelRank)
	assert.Equal(t, 0.9, hits[0].ChannelScore)
	assert.Equal(t, 2, hits[1].ChannelRank)

	assert.Equal(t, models.ChannelLexical, hits[2].Channel)
	assert.Equal(t, 1, hits[2].ChannelRank)
	assert.Equal(t, "both", hits[2].Record.ID)
}

func TestHybridSearch_OverFetchesPerChannel(t *testing.T) {
	st := &fakeStore{}
	h := retriever.NewHybrid(st, fakeEmbedder{})

	_, err := h.HybridSearch(context.Background(), "question", 7)
	require.NoError(t, err)

	assert.Equal(t, 14, st.vectorLimit)
	assert.Equal(t, 14, st.lexicalLimit)
}

func TestHybridSearch_VectorFailureDegradesToLexical(t *testing.T) {
	st := &fakeStore{
		vectorErr:      errors.New("vector index down"),
		lexicalResults: []models.SearchResult{result("l1", 2.0), result("l2", 1.0)},
	}
	h := retriever.NewHybrid(st, fakeEmbedder{})

	hits, err := h.HybridSearch(context.Background(), "question", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, models.ChannelLexical, hits[0].Channel)
	assert.Equal(t, 1, hits[0].ChannelRank)
	assert.Equal(t, 2, hits[1].ChannelRank)
}

func TestHybridSearch_EmbeddingFailureDegradesToLexical(t *testing.T) {
	st := &fakeStore{
		lexicalResults: []models.SearchResult{result("l1", 2.0)},
	}
	h := retriever.NewHybrid(st, fakeEmbedder{err: errors.New("model not loaded")})

	hits, err := h.HybridSearch(context.Background(), "question", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, models.ChannelLexical, hits[0].Channel)
}

func TestHybridSearch_AllChannelsFailing(t *testing.T) {
	st := &fakeStore{
		vectorErr:  errors.New("vector down"),
		lexicalErr: errors.New("lexical down"),
	}
	h := retriever.NewHybrid(st, fakeEmbedder{})

	_, err := h.HybridSearch(context.Background(), "question", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, retriever.ErrRetrievalUnavailable)
}

func TestHybridSearch_EmptyIndex(t *testing.T) {
	h := retriever.NewHybrid(&fakeStore{}, fakeEmbedder{})

	hits, err := h.HybridSearch(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
