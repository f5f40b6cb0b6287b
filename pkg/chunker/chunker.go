package chunker

import (
	"strings"

	"github.com/docsift/docsift/internal/models"
)

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// Split priority: paragraph break, line break, CJK sentence terminator,
// sentence terminator, space, single characters.
var defaultSeparators = []string{"\n\n", "\n", "。", ". ", " ", ""}

// Splitter splits raw text into bounded chunks with overlapping context.
// It descends the separator list only for segments that still exceed the
// chunk size, so coarse structure is preserved where it fits.
type Splitter struct {
	config Config
}

func NewWithConfig(config Config) Splitter {
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize - 1
	}
	if len(config.Separators) == 0 {
		config.Separators = defaultSeparators
	}

	return Splitter{config: config}
}

// Split is a pure function over its inputs. Empty or whitespace-only text
// produces zero chunks. Chunk ids count up from 0 per call, and the
// supplied metadata is copied into every chunk.
func (s Splitter) Split(text string, meta models.ChunkMeta) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.split(text, s.config.Separators)

	chunks := make([]models.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Text:     piece,
			Source:   meta.Source,
			Page:     meta.Page,
			ChunkID:  len(chunks),
			Method:   meta.Method,
			Metadata: cloneMeta(meta.Extra),
		})
	}
	return chunks
}

func (s Splitter) split(text string, separators []string) []string {
	sep, finer := pickSeparator(text, separators)
	if sep == "" {
		return s.sliceRunes(text)
	}

	segments := splitAfter(text, sep)

	var out []string
	var pending []string
	for _, seg := range segments {
		if runeLen(seg) <= s.config.ChunkSize {
			pending = append(pending, seg)
			continue
		}
		out = append(out, s.merge(pending)...)
		pending = nil
		out = append(out, s.split(seg, finer)...)
	}
	return append(out, s.merge(pending)...)
}

// merge greedily packs undersized segments into chunks, carrying up to
// ChunkOverlap trailing characters of each finished chunk into the next.
// The carry is dropped when it would push the next chunk past ChunkSize.
func (s Splitter) merge(segments []string) []string {
	if len(segments) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func(nextLen int) {
		chunk := cur.String()
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
		curLen = 0
		tail := lastRunes(chunk, s.config.ChunkOverlap)
		if tailLen := runeLen(tail); tailLen > 0 && tailLen+nextLen <= s.config.ChunkSize {
			cur.WriteString(tail)
			curLen = tailLen
		}
	}

	for _, seg := range segments {
		segLen := runeLen(seg)
		if curLen > 0 && curLen+segLen > s.config.ChunkSize {
			flush(segLen)
		}
		cur.WriteString(seg)
		curLen += segLen
	}
	if chunk := cur.String(); strings.TrimSpace(chunk) != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// sliceRunes is the character-level fallback: fixed-size windows advancing
// by ChunkSize-ChunkOverlap, so adjacent chunks share exactly ChunkOverlap
// characters.
func (s Splitter) sliceRunes(text string) []string {
	runes := []rune(text)
	step := s.config.ChunkSize - s.config.ChunkOverlap
	if step < 1 {
		step = 1
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.config.ChunkSize
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// pickSeparator returns the coarsest separator present in the text and the
// finer separators after it. An empty separator means character splitting.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitAfter splits the text keeping the separator attached to the
// preceding segment, dropping empty trailing segments.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
