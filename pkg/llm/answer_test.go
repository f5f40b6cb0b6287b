package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/pkg/llm"
)

// fakeModel records the prompt it was given and returns a canned response.
type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func fused(source string, page int, text string) models.FusedResult {
	return models.FusedResult{
		Record: models.IndexedRecord{
			ID:     models.RecordID(source, page, 0),
			Text:   text,
			Source: source,
			Page:   page,
		},
	}
}

func TestGenerateAnswer_EmptyResults(t *testing.T) {
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{}, &fakeModel{response: "unused"})

	answer, degraded := engine.GenerateAnswer(context.Background(), "anything?", nil)

	assert.Equal(t, llm.NoContentAnswer, answer)
	assert.True(t, degraded)
}

func TestGenerateAnswer_UsesModel(t *testing.T) {
	model := &fakeModel{response: "Reef early in rising wind."}
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{}, model)

	results := []models.FusedResult{
		fused("sailing.pdf", 12, "Reefing reduces sail area in strong wind."),
		fused("sailing.pdf", 13, "A preventer guards against accidental gybes."),
	}
	answer, degraded := engine.GenerateAnswer(context.Background(), "When should I reef?", results)

	assert.False(t, degraded)
	assert.Equal(t, "Reef early in rising wind.", answer)

	require.NotEmpty(t, model.prompts)
	joined := strings.Join(model.prompts, "\n")
	assert.Contains(t, joined, "When should I reef?")
	assert.Contains(t, joined, "[sailing.pdf, page 12]")
	assert.Contains(t, joined, "Reefing reduces sail area")
}

func TestGenerateAnswer_ContextLimitBoundsPrompt(t *testing.T) {
	model := &fakeModel{response: "ok"}
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{ContextLimit: 2}, model)

	results := []models.FusedResult{
		fused("a.pdf", 1, "first block"),
		fused("a.pdf", 2, "second block"),
		fused("a.pdf", 3, "third block"),
	}
	_, degraded := engine.GenerateAnswer(context.Background(), "q", results)
	require.False(t, degraded)

	joined := strings.Join(model.prompts, "\n")
	assert.Contains(t, joined, "first block")
	assert.Contains(t, joined, "second block")
	assert.NotContains(t, joined, "third block")
}

func TestGenerateAnswer_NilModelFallsBack(t *testing.T) {
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{}, nil)

	results := []models.FusedResult{fused("a.pdf", 1, "the top ranked excerpt")}
	answer, degraded := engine.GenerateAnswer(context.Background(), "q", results)

	assert.True(t, degraded)
	assert.True(t, strings.HasPrefix(answer, llm.FallbackMarker))
	assert.Contains(t, answer, "the top ranked excerpt")
}

func TestGenerateAnswer_ModelErrorFallsBack(t *testing.T) {
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{}, &fakeModel{err: errors.New("connection refused")})

	results := []models.FusedResult{fused("a.pdf", 1, "excerpt text")}
	answer, degraded := engine.GenerateAnswer(context.Background(), "q", results)

	assert.True(t, degraded)
	assert.Contains(t, answer, llm.FallbackMarker)
	assert.Contains(t, answer, "excerpt text")
}

func TestGenerateAnswer_EmptyResponseFallsBack(t *testing.T) {
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{}, &fakeModel{response: ""})

	results := []models.FusedResult{fused("a.pdf", 1, "excerpt text")}
	answer, degraded := engine.GenerateAnswer(context.Background(), "q", results)

	assert.True(t, degraded)
	assert.Contains(t, answer, llm.FallbackMarker)
}

func TestGenerateAnswer_FallbackBudgetTruncates(t *testing.T) {
	engine := llm.NewAnswerEngineWithModel(llm.AnswerConfig{FallbackBudget: 20}, nil)

	long := strings.Repeat("0123456789", 10)
	answer, degraded := engine.GenerateAnswer(context.Background(), "q",
		[]models.FusedResult{fused("a.pdf", 1, long)})

	assert.True(t, degraded)
	body := strings.TrimPrefix(answer, llm.FallbackMarker+"\n")
	assert.Len(t, []rune(body), 20)
}
