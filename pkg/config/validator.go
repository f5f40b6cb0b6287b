package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "model server base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid base URL",
		})
	}

	if c.LLM.EmbedModel == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.embed_model",
			Message: "embedding model is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Chunker config
	if c.Chunker.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Search config
	if c.Search.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.top_k",
			Message: "top_k must be positive",
		})
	}

	switch c.Search.RerankerMethod {
	case RerankerRRF:
	case RerankerPairwise:
		if c.LLM.RerankerModel == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.reranker_model",
				Message: "reranker_model is required when reranker_method is pairwise",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "search.reranker_method",
			Message: fmt.Sprintf("unknown reranker method: %s", c.Search.RerankerMethod),
		})
	}

	if c.Search.ContextLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.context_limit",
			Message: "context_limit must be positive",
		})
	}

	if c.Search.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "search.rate_limit",
			Message: "rate_limit cannot be negative",
		})
	}

	return errors
}
