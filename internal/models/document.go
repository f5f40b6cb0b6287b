package models

// PageText is one unit of extracted document text, as produced by an
// extraction adapter: the text of a page plus its provenance.
type PageText struct {
	Text   string
	Page   int // 1-based page number, 0 when the format has no pages
	Method string
}

// DocumentInput is the ingestion contract: a stable source identifier
// plus the extracted page texts.
type DocumentInput struct {
	Source string
	Pages  []PageText
}

// ChunkMeta is the metadata a chunker copies verbatim into every chunk
// it emits from one piece of text.
type ChunkMeta struct {
	Source string
	Page   int
	Method string
	Extra  map[string]string
}

// Chunk is the atomic retrievable unit. Immutable once created.
type Chunk struct {
	Text     string
	Source   string
	Page     int
	ChunkID  int // monotonically increasing per split call, starting at 0
	Method   string
	Metadata map[string]string
}

// IndexedRecord is a chunk plus its embedding and content-derived identity,
// as persisted in the index store.
type IndexedRecord struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Vector   []float32         `json:"-"`
	Page     int               `json:"page"`
	Source   string            `json:"source"`
	ChunkID  int               `json:"chunk_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a single hit from one search channel of the index store.
type SearchResult struct {
	Record IndexedRecord
	Score  float64
}

// Retrieval channels.
const (
	ChannelVector  = "vector"
	ChannelLexical = "lexical"
)

// RetrievalHit tags a search result with the channel that produced it.
type RetrievalHit struct {
	Record       IndexedRecord
	Channel      string
	ChannelRank  int // 1-based rank within the channel's result list
	ChannelScore float64
}

// FusedResult is a per-query ranked result after fusion or reranking.
type FusedResult struct {
	Record IndexedRecord `json:"record"`
	Score  float64       `json:"score"`
	Rank   int           `json:"rank"`
}

// UpsertResult reports bulk upsert outcomes; a batch may partially succeed.
type UpsertResult struct {
	Indexed int
	Failed  []string // identities that failed to index
}

// IngestReport summarizes the ingestion of one document.
type IngestReport struct {
	Source  string   `json:"source"`
	Chunks  int      `json:"chunks"`
	Indexed int      `json:"indexed"`
	Failed  []string `json:"failed,omitempty"`
}

// QueryResult is the structured response of a full query.
type QueryResult struct {
	Question   string        `json:"question"`
	Answer     string        `json:"answer,omitempty"`
	Degraded   bool          `json:"degraded,omitempty"`
	Results    []FusedResult `json:"search_results"`
	NumResults int           `json:"num_results"`
}

// IndexStats is the observability surface of the index store.
type IndexStats struct {
	IndexName     string `json:"index_name"`
	DocumentCount int64  `json:"document_count"`
	SizeBytes     int64  `json:"size_bytes"`
}
