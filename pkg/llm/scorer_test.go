package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/docsift/docsift/pkg/llm"
)

// scriptedModel replies with a fixed sequence of raw strings, one per call.
type scriptedModel struct {
	replies []string
	err     error
	calls   int
}

func (s *scriptedModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (s *scriptedModel) Call(ctx context.Context, _ string, options ...llms.CallOption) (string, error) {
	resp, err := s.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestScorePairs_PreservesOrder(t *testing.T) {
	model := &scriptedModel{replies: []string{"7", "2.5", "10"}}
	scorer := llm.NewCrossScorerWithModel(llm.ScorerConfig{Model: "judge"}, model)

	scores, err := scorer.ScorePairs(context.Background(), "how to anchor",
		[]string{"anchoring guide", "sail trim", "anchor types"})
	require.NoError(t, err)

	assert.Equal(t, []float64{7, 2.5, 10}, scores)
	assert.Equal(t, 3, model.calls)
}

func TestScorePairs_ParsesScoreOutOfProse(t *testing.T) {
	model := &scriptedModel{replies: []string{"I would rate this passage 8 out of 10."}}
	scorer := llm.NewCrossScorerWithModel(llm.ScorerConfig{Model: "judge"}, model)

	scores, err := scorer.ScorePairs(context.Background(), "q", []string{"passage"})
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, scores)
}

func TestScorePairs_NoNumberInReply(t *testing.T) {
	model := &scriptedModel{replies: []string{"highly relevant"}}
	scorer := llm.NewCrossScorerWithModel(llm.ScorerConfig{Model: "judge"}, model)

	_, err := scorer.ScorePairs(context.Background(), "q", []string{"passage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no score")
}

func TestScorePairs_ModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("model offline")}
	scorer := llm.NewCrossScorerWithModel(llm.ScorerConfig{Model: "judge"}, model)

	_, err := scorer.ScorePairs(context.Background(), "q", []string{"a", "b"})
	require.Error(t, err)
}

func TestScorePairs_EmptyTexts(t *testing.T) {
	scorer := llm.NewCrossScorerWithModel(llm.ScorerConfig{Model: "judge"}, &scriptedModel{})

	scores, err := scorer.ScorePairs(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestNewCrossScorerWithConfig_RequiresModel(t *testing.T) {
	_, err := llm.NewCrossScorerWithConfig(llm.ScorerConfig{})
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "reranker model")
}
