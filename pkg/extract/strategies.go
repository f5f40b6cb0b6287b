package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/docsift/docsift/internal/models"
)

// PDF extracts per-page text from PDF files.
type PDF struct{}

func (PDF) Name() string { return "pdf" }

func (PDF) Extract(path string) ([]models.PageText, error) {
	if !hasExtension(path, ".pdf") {
		return nil, fmt.Errorf("not a pdf file")
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.PageText
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, models.PageText{Text: text, Page: i})
	}
	return pages, nil
}

// HTML extracts the visible text of an HTML document as a single page.
type HTML struct{}

func (HTML) Name() string { return "html" }

func (HTML) Extract(path string) ([]models.PageText, error) {
	if !hasExtension(path, ".html", ".htm") {
		return nil, fmt.Errorf("not an html file")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return nil, nil
	}
	// HTML has no page structure; page 0 marks an unknown page.
	return []models.PageText{{Text: text, Page: 0}}, nil
}

// Plain reads the whole file as text. Last resort.
type Plain struct{}

func (Plain) Name() string { return "plain" }

func (Plain) Extract(path string) ([]models.PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []models.PageText{{Text: text, Page: 0}}, nil
}

func hasExtension(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
