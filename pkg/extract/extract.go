// Package extract adapts documents on disk to the ingestion contract:
// a sequence of (text, page, method) tuples. Strategies are tried in
// priority order until one yields non-empty output.
package extract

import (
	"fmt"
	"strings"

	"github.com/docsift/docsift/internal/models"
)

// Strategy is one way of turning a file into page texts.
type Strategy interface {
	Name() string
	Extract(path string) ([]models.PageText, error)
}

type Extractor struct {
	strategies []Strategy
}

func New(strategies ...Strategy) Extractor {
	if len(strategies) == 0 {
		strategies = []Strategy{PDF{}, HTML{}, Plain{}}
	}
	return Extractor{strategies: strategies}
}

// Extract runs the strategies in order and returns the first non-empty
// result, with every page tagged by the strategy that produced it. When
// all strategies fail, the error lists each attempt.
func (e Extractor) Extract(path string) ([]models.PageText, error) {
	var attempts []string
	for _, strategy := range e.strategies {
		pages, err := strategy.Extract(path)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", strategy.Name(), err))
			continue
		}
		if len(pages) == 0 {
			attempts = append(attempts, fmt.Sprintf("%s: no text", strategy.Name()))
			continue
		}
		for i := range pages {
			pages[i].Method = strategy.Name()
		}
		return pages, nil
	}
	return nil, fmt.Errorf("no extraction strategy produced text for %s (%s)", path, strings.Join(attempts, "; "))
}

// ExtractDocument wraps Extract into a ready-to-ingest document keyed by
// the file path.
func (e Extractor) ExtractDocument(path string) (models.DocumentInput, error) {
	pages, err := e.Extract(path)
	if err != nil {
		return models.DocumentInput{}, err
	}
	return models.DocumentInput{Source: path, Pages: pages}, nil
}
