package domain

import "fmt"

// Document is a single ingested source text. The ID is derived from the
// paper title via papers.SanitizeTitle and is stable across runs.
type Document struct {
	ID    string
	Title string
	Text  string
}

// Chunk is an ordered text unit belonging to exactly one document.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
}

// ChunkID returns the store-wide unique identifier of the chunk.
func (c Chunk) ChunkID() string {
	return fmt.Sprintf("%s_%d", c.DocumentID, c.Index)
}

// EmbeddingRecord is one persisted (chunk, vector) pair. Title is
// denormalized from the document metadata so results can be displayed
// without a join.
type EmbeddingRecord struct {
	DocumentID string
	ChunkID    string
	Title      string
	Text       string
	Vector     []float64
}

// RetrievalResult is a matching chunk with a cosine similarity score in [0,1].
type RetrievalResult struct {
	DocumentID string
	Text       string
	Score      float64
}

// PaperMeta describes one publication returned by the literature search.
// Optional fields are pointers: a nil value means the source did not
// provide the field, which is distinct from any real value.
type PaperMeta struct {
	PaperID          string    `json:"paper_id"`
	Title            string    `json:"title"`
	Authors          []string  `json:"authors"`
	Year             *int      `json:"year,omitempty"`
	DOI              *string   `json:"doi,omitempty"`
	URL              *string   `json:"url,omitempty"`
	Abstract         *string   `json:"abstract,omitempty"`
	CitationCount    *int      `json:"citation_count,omitempty"`
	ReferenceCount   *int      `json:"reference_count,omitempty"`
	IsOpenAccess     bool      `json:"is_open_access"`
	OpenAccessPDF    *string   `json:"open_access_pdf,omitempty"`
	PublicationTypes []string  `json:"publication_types,omitempty"`
	Journal          *string   `json:"journal,omitempty"`
	TLDR             *string   `json:"tldr,omitempty"`
	AIAnalysis       *Analysis `json:"ai_analysis,omitempty"`
}

// Analysis holds the generated per-paper answers.
type Analysis struct {
	ResearchQuestion string `json:"research_question"`
	Objective        string `json:"objective"`
	Contribution     string `json:"contribution"`
}
