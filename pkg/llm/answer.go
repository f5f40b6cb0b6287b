package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/docsift/docsift/internal/models"
)

// FallbackMarker prefixes every degraded answer so callers can tell a
// retrieval-only excerpt apart from generated text.
const FallbackMarker = "[no generative model: retrieval excerpt]"

// NoContentAnswer is returned when a query matched nothing in the index.
const NoContentAnswer = "No relevant content found in the index."

const contextSeparator = "\n\n---\n\n"

type AnswerConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	BaseURL        string // Ollama server URL
	SystemTemplate string
	ContextLimit   int // fused results rendered into the prompt
	FallbackBudget int // characters of excerpt in a degraded answer
}

// AnswerEngine assembles top-ranked chunks into a bounded context and asks
// a language model for an answer. Without a model, or when the model call
// fails, it degrades to a marked retrieval excerpt instead of failing.
type AnswerEngine struct {
	config AnswerConfig
	llm    llms.Model
}

func NewAnswerEngineWithConfig(config AnswerConfig) (*AnswerEngine, error) {
	applyAnswerDefaults(&config)

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	return &AnswerEngine{config: config, llm: model}, nil
}

// NewAnswerEngineWithModel builds an engine around an existing model. A nil
// model yields an engine that always produces degraded answers.
func NewAnswerEngineWithModel(config AnswerConfig, model llms.Model) *AnswerEngine {
	applyAnswerDefaults(&config)
	return &AnswerEngine{config: config, llm: model}
}

func applyAnswerDefaults(config *AnswerConfig) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are an assistant that answers questions from the provided documents. If the documents do not contain the answer, say so. Be accurate and concise."
	}
	if config.ContextLimit == 0 {
		config.ContextLimit = 5
	}
	if config.FallbackBudget == 0 {
		config.FallbackBudget = 500
	}
}

// GenerateAnswer returns the answer text and whether the degraded fallback
// path was taken. It never returns an error: empty results yield a fixed
// no-content message, model failures yield a marked excerpt.
func (a *AnswerEngine) GenerateAnswer(ctx context.Context, question string, results []models.FusedResult) (string, bool) {
	if len(results) == 0 {
		return NoContentAnswer, true
	}

	limit := a.config.ContextLimit
	if limit > len(results) {
		limit = len(results)
	}

	blocks := make([]string, 0, limit)
	for _, r := range results[:limit] {
		blocks = append(blocks, fmt.Sprintf("[%s, page %d]\n%s", r.Record.Source, r.Record.Page, r.Record.Text))
	}

	if a.llm == nil {
		return a.fallbackAnswer(blocks[0]), true
	}

	prompt := fmt.Sprintf(
		"Answer the question using only the documents below.\n\nQuestion: %s\n\nDocuments:\n%s",
		question, strings.Join(blocks, contextSeparator),
	)
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, a.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := a.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(a.config.MaxTokens),
		llms.WithTemperature(a.config.Temperature),
	)
	if err != nil {
		log.Printf("answer generation failed, using retrieval excerpt: %v", err)
		return a.fallbackAnswer(blocks[0]), true
	}
	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		log.Printf("answer generation returned no content, using retrieval excerpt")
		return a.fallbackAnswer(blocks[0]), true
	}

	return response.Choices[0].Content, false
}

func (a *AnswerEngine) fallbackAnswer(block string) string {
	excerpt := block
	if runes := []rune(excerpt); len(runes) > a.config.FallbackBudget {
		excerpt = string(runes[:a.config.FallbackBudget])
	}
	return FallbackMarker + "\n" + excerpt
}
