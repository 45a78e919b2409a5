package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Same text and same model version must produce the same vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Chunker splits document text into bounded, overlapping chunks.
type Chunker interface {
	Chunk(doc Document) ([]Chunk, error)
}

// EmbeddingStore persists embedding records for one ingestion batch.
// Append replaces the previous batch; Load on a missing or corrupt store
// returns no records rather than failing.
type EmbeddingStore interface {
	Append(records []EmbeddingRecord) error
	Load() ([]EmbeddingRecord, error)
	FilterByDocument(docIDs []string) ([]EmbeddingRecord, error)
}

// Retriever answers a query against a set of target documents.
type Retriever interface {
	Retrieve(ctx context.Context, query string, docIDs []string, k int) ([]RetrievalResult, error)
}

// Generator sends an assembled prompt to the language-model service.
type Generator interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Fetcher acquires raw document bytes for a paper. Network acquisition
// lives outside this core; implementations may read from disk.
type Fetcher interface {
	Fetch(ctx context.Context, url, filename string) (path string, err error)
}

// Extractor turns an acquired file into cleaned document text.
type Extractor interface {
	Extract(path string) (string, error)
}
