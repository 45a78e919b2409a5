// Package retriever answers a query against the embedding store: it scopes
// the store to the requested documents, builds a throwaway HNSW index per
// document, embeds the query and collects the nearest chunks.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"scholarassist/internal/domain"
	"scholarassist/internal/index"
)

// DefaultK is the number of snippets retrieved per document when the
// caller does not ask for a specific count.
const DefaultK = 10

// Retriever implements domain.Retriever over an EmbeddingStore.
type Retriever struct {
	store    domain.EmbeddingStore
	embedder domain.Embedder
	indexCfg index.Config
	efSearch int
	logger   *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithIndexConfig overrides the HNSW build parameters.
func WithIndexConfig(cfg index.Config) Option {
	return func(r *Retriever) { r.indexCfg = cfg }
}

// WithEfSearch overrides the query-time candidate list size.
func WithEfSearch(ef int) Option {
	return func(r *Retriever) { r.efSearch = ef }
}

func New(store domain.EmbeddingStore, embedder domain.Embedder, logger *zap.Logger, opts ...Option) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retriever{
		store:    store,
		embedder: embedder,
		indexCfg: index.DefaultConfig(),
		efSearch: 50,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the per-query pipeline for each requested document and
// concatenates the per-document rankings in request order; results are not
// re-ranked across documents. A document with no records in the store
// contributes nothing, which is a normal degraded outcome rather than an
// error. Dimension mismatches inside one scope abort the query.
func (r *Retriever) Retrieve(ctx context.Context, query string, docIDs []string, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultK
	}
	all, err := r.store.Load()
	if err != nil && !errors.Is(err, domain.ErrStoreCorrupt) {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if len(all) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	var results []domain.RetrievalResult
	for _, docID := range docIDs {
		records, err := r.store.FilterByDocument([]string{docID})
		if err != nil {
			return nil, fmt.Errorf("filter store for %q: %w", docID, err)
		}
		if len(records) == 0 {
			r.logger.Warn("no embeddings for document",
				zap.String("document", docID), zap.Error(domain.ErrDocumentNotFound))
			continue
		}
		perDoc, err := r.searchDocument(ctx, query, records, k)
		if err != nil {
			return nil, err
		}
		results = append(results, perDoc...)
	}
	return results, nil
}

// searchDocument builds an index over one document's records and queries
// it. The vector dimension is inferred from the first record; every other
// record must match it.
func (r *Retriever) searchDocument(ctx context.Context, query string, records []domain.EmbeddingRecord, k int) ([]domain.RetrievalResult, error) {
	dim := len(records[0].Vector)
	idx, err := index.New(dim, r.indexCfg)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	for _, rec := range records {
		if len(rec.Vector) != dim {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, want %d",
				domain.ErrDimensionMismatch, rec.ChunkID, len(rec.Vector), dim)
		}
		if err := idx.Add(rec.Vector); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", rec.ChunkID, err)
		}
	}
	idx.SetEf(r.efSearch)

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) != dim {
		return nil, fmt.Errorf("%w: query embedding has dimension %d, store has %d",
			domain.ErrDimensionMismatch, len(queryVec), dim)
	}

	if k > len(records) {
		k = len(records)
	}
	hits, err := idx.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		rec := records[h.Ordinal]
		results = append(results, domain.RetrievalResult{
			DocumentID: rec.DocumentID,
			Text:       rec.Text,
			Score:      h.Score,
		})
	}
	return results, nil
}

// HasDocument reports whether the store holds any records for the id.
func (r *Retriever) HasDocument(docID string) (bool, error) {
	records, err := r.store.FilterByDocument([]string{docID})
	if err != nil && !errors.Is(err, domain.ErrStoreCorrupt) {
		return false, err
	}
	return len(records) > 0, nil
}
