package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/internal/types"
	"github.com/docsift/docsift/pkg/chunker"
	cfgPkg "github.com/docsift/docsift/pkg/config"
	"github.com/docsift/docsift/pkg/engine"
	"github.com/docsift/docsift/pkg/extract"
	"github.com/docsift/docsift/pkg/llm"
	"github.com/docsift/docsift/pkg/ranker"
	"github.com/docsift/docsift/pkg/retriever"
	"github.com/docsift/docsift/pkg/store"
	"github.com/docsift/docsift/server"
)

type flags struct {
	configPath string
	ingest     string
	query      string
	serve      bool
	addr       string

	baseURL   string
	dbURL     string
	model     string
	topK      int
	noRerank  bool
	noAnswer  bool
	chunkSize int
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingest, "ingest", "", "Comma-separated document paths to ingest")
	flag.StringVar(&f.query, "query", "", "Run a single query and exit")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP API server")
	flag.StringVar(&f.addr, "addr", ":8080", "Server listen address")
	flag.StringVar(&f.baseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&f.dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&f.model, "model", "", "LLM model for answer generation")
	flag.IntVar(&f.topK, "top-k", 0, "Number of results per query")
	flag.BoolVar(&f.noRerank, "no-rerank", false, "Skip reranking, keep retrieval order")
	flag.BoolVar(&f.noAnswer, "no-answer", false, "Skip answer generation")
	flag.IntVar(&f.chunkSize, "chunk-size", 0, "Size of text chunks")
	flag.Parse()

	return f
}

func run(f flags) error {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, f)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, indexStore, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer indexStore.Close()

	extractor := extract.New()

	if f.ingest != "" {
		if err := ingestPaths(ctx, eng, extractor, strings.Split(f.ingest, ",")); err != nil {
			return err
		}
	}

	switch {
	case f.serve:
		return server.New(eng, extractor).Start(f.addr)
	case f.query != "":
		return runQuery(ctx, eng, f.query, queryOptions(f))
	case f.ingest != "":
		return nil
	default:
		return interactive(ctx, eng, f)
	}
}

func applyFlagOverrides(cfg *cfgPkg.Config, f flags) {
	if f.baseURL != "" {
		cfg.LLM.BaseURL = f.baseURL
	}
	if f.dbURL != "" {
		cfg.Database.URL = f.dbURL
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.topK > 0 {
		cfg.Search.TopK = f.topK
	}
	if f.chunkSize > 0 {
		cfg.Chunker.ChunkSize = f.chunkSize
	}
}

func queryOptions(f flags) engine.QueryOptions {
	opts := engine.DefaultQueryOptions()
	opts.UseReranker = !f.noRerank
	opts.GenerateAnswer = !f.noAnswer
	return opts
}

func buildEngine(ctx context.Context, cfg *cfgPkg.Config) (*engine.Engine, types.IndexStore, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, err
	}

	indexStore, err := store.NewWithConfig(ctx, store.Config{
		ConnString: cfg.Database.URL,
		IndexName:  cfg.Database.IndexName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize index store: %w", err)
	}

	var scorer types.PairScorer
	if cfg.Search.RerankerMethod == cfgPkg.RerankerPairwise {
		scorer, err = llm.NewCrossScorerWithConfig(llm.ScorerConfig{
			Model:   cfg.LLM.RerankerModel,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			indexStore.Close()
			return nil, nil, err
		}
	}

	rk, err := ranker.NewWithMethod(ranker.Method(cfg.Search.RerankerMethod), scorer)
	if err != nil {
		indexStore.Close()
		return nil, nil, err
	}

	answers, err := llm.NewAnswerEngineWithConfig(llm.AnswerConfig{
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		BaseURL:      cfg.LLM.BaseURL,
		ContextLimit: cfg.Search.ContextLimit,
	})
	if err != nil {
		indexStore.Close()
		return nil, nil, err
	}

	splitter := chunker.NewWithConfig(chunker.Config{
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.ChunkOverlap,
	})

	eng := engine.New(engine.Config{
		IndexName:     cfg.Database.IndexName,
		BatchSize:     cfg.Database.BatchSize,
		TopK:          cfg.Search.TopK,
		RateLimit:     cfg.Search.RateLimit,
		EmbedTimeout:  cfg.Timeouts.Embed,
		SearchTimeout: cfg.Timeouts.Search,
		AnswerTimeout: cfg.Timeouts.Answer,
	}, splitter, embedder, indexStore, retriever.NewHybrid(indexStore, embedder), rk, answers)

	return eng, indexStore, nil
}

func ingestPaths(ctx context.Context, eng *engine.Engine, extractor extract.Extractor, paths []string) error {
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription(color.BlueString("Indexing documents")),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	var failed int
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := extractor.ExtractDocument(path)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			failed++
			bar.Add(1)
			continue
		}

		report, err := eng.IngestDocument(ctx, doc)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			failed++
			bar.Add(1)
			continue
		}
		if len(report.Failed) > 0 {
			color.Yellow("\n%s: %d of %d chunks failed to index", path, len(report.Failed), report.Chunks)
		}
		bar.Add(1)
	}
	bar.Finish()

	if failed > 0 {
		color.Yellow("\n%d of %d documents failed", failed, len(paths))
	} else {
		color.Green("\n✓ Ingestion complete")
	}
	return nil
}

func runQuery(ctx context.Context, eng *engine.Engine, question string, opts engine.QueryOptions) error {
	result, err := eng.Query(ctx, question, opts)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func interactive(ctx context.Context, eng *engine.Engine, f flags) error {
	color.Cyan("\nAsk questions about your indexed documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgGreen).PrintfFunc()

	for {
		prompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		result, err := eng.Query(ctx, question, queryOptions(f))
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}
		printResult(result)
	}

	return scanner.Err()
}

func printResult(result models.QueryResult) {
	if result.Answer != "" {
		if result.Degraded {
			color.Yellow("\n%s", result.Answer)
		} else {
			color.Cyan("\n%s", result.Answer)
		}
	}

	if result.NumResults == 0 {
		return
	}

	fmt.Printf("\n%d results:\n", result.NumResults)
	for _, r := range result.Results {
		fmt.Printf("  %2d. [%s, page %d] (score %.4f)\n", r.Rank, r.Record.Source, r.Record.Page, r.Score)
	}
}
