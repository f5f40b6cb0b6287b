package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

type ScorerConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// CrossScorer scores (query, passage) pairs with a relevance model. Each
// pair is judged together, unlike the independent channel scores.
type CrossScorer struct {
	config ScorerConfig
	llm    llms.Model
}

func NewCrossScorerWithConfig(config ScorerConfig) (*CrossScorer, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("pairwise reranking requires a reranker model")
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reranker model: %w", err)
	}

	return &CrossScorer{config: config, llm: model}, nil
}

// NewCrossScorerWithModel builds a scorer around an existing model.
func NewCrossScorerWithModel(config ScorerConfig, model llms.Model) *CrossScorer {
	return &CrossScorer{config: config, llm: model}
}

const scorerPrompt = "Rate how relevant the passage is to the query on a scale from 0 to 10. Reply with a single number.\n\nQuery: %s\n\nPassage: %s"

// ScorePairs returns one relevance score per text, preserving order.
func (s *CrossScorer) ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, text := range texts {
		content := []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeHuman,fmt.Sprintf(scorerPrompt, query, text)),
		}
		response, err := s.llm.GenerateContent(ctx, content, llms.WithTemperature(0))
		if err != nil {
			return nil, fmt.Errorf("pair scoring failed: %w", err)
		}
		if len(response.Choices) == 0 {
			return nil, fmt.Errorf("pair scoring returned no choices")
		}
		score, err := parseScore(response.Choices[0].Content)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}
	return scores, nil
}

var scorePattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// parseScore pulls the first number out of the model's reply; chat models
// rarely answer with a bare numeral.
func parseScore(reply string) (float64, error) {
	match := scorePattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("no score in reranker reply %q", reply)
	}
	return strconv.ParseFloat(match, 64)
}
