package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL       string  `yaml:"base_url"`
		Model         string  `yaml:"model"`
		EmbedModel    string  `yaml:"embed_model"`
		RerankerModel string  `yaml:"reranker_model"`
		MaxTokens     int     `yaml:"max_tokens"`
		Temperature   float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		IndexName string `yaml:"index_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Chunker struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"chunker"`

	Search struct {
		TopK           int     `yaml:"top_k"`
		RerankerMethod string  `yaml:"reranker_method"`
		ContextLimit   int     `yaml:"context_limit"`
		RateLimit      float64 `yaml:"rate_limit"` // ingestion model calls per second, 0 disables
	} `yaml:"search"`

	Timeouts struct {
		Embed  time.Duration `yaml:"embed"`
		Search time.Duration `yaml:"search"`
		Answer time.Duration `yaml:"answer"`
	} `yaml:"timeouts"`
}

// Reranker methods recognized in search.reranker_method.
const (
	RerankerRRF      = "rrf"
	RerankerPairwise = "pairwise"
)

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docsift/config.yaml"),
			"/etc/docsift/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Database.IndexName == "" {
		config.Database.IndexName = "rag_documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 500
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 50
	}

	if config.Search.TopK == 0 {
		config.Search.TopK = 10
	}
	if config.Search.RerankerMethod == "" {
		config.Search.RerankerMethod = RerankerRRF
	}
	if config.Search.ContextLimit == 0 {
		config.Search.ContextLimit = 5
	}

	if config.Timeouts.Embed == 0 {
		config.Timeouts.Embed = 60 * time.Second
	}
	if config.Timeouts.Search == 0 {
		config.Timeouts.Search = 15 * time.Second
	}
	if config.Timeouts.Answer == 0 {
		config.Timeouts.Answer = 60 * time.Second
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
