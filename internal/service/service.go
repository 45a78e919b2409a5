// Package service wires the ingestion and query pipelines together behind
// the two operations the CLI layer consumes: Ingest and Answer.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"scholarassist/internal/domain"
	"scholarassist/internal/generation"
	"scholarassist/internal/papers"
)

// Service is the application core facade.
type Service struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.EmbeddingStore
	retriever domain.Retriever
	generator domain.Generator
	fetcher   domain.Fetcher
	extractor domain.Extractor
	meta      *papers.MetadataStore
	logger    *zap.Logger
	topK      int
}

// Deps lists the collaborators of the service. All of them are injected;
// the service creates nothing with ambient state.
type Deps struct {
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Store     domain.EmbeddingStore
	Retriever domain.Retriever
	Generator domain.Generator
	Fetcher   domain.Fetcher
	Extractor domain.Extractor
	Metadata  *papers.MetadataStore
	Logger    *zap.Logger
	TopK      int
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TopK <= 0 {
		deps.TopK = 10
	}
	return &Service{
		chunker:   deps.Chunker,
		embedder:  deps.Embedder,
		store:     deps.Store,
		retriever: deps.Retriever,
		generator: deps.Generator,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		meta:      deps.Metadata,
		logger:    deps.Logger,
		topK:      deps.TopK,
	}
}

// Ingest processes one batch of papers: metadata is rebuilt fresh, each
// paper is fetched, extracted, chunked and embedded, and the embedding
// records of the whole batch replace the store in one write. A failure on
// one paper never aborts the batch: extraction failures embed a
// placeholder text, embedding failures skip the paper with a warning.
func (s *Service) Ingest(ctx context.Context, metas []domain.PaperMeta) error {
	if s.meta != nil {
		if err := s.meta.Reset(); err != nil {
			return err
		}
	}

	var batch []domain.EmbeddingRecord
	for _, meta := range metas {
		if s.meta != nil {
			if err := s.meta.Add(meta); err != nil {
				return err
			}
		}
		doc := s.loadDocument(ctx, meta)
		records, err := s.embedDocument(ctx, doc)
		if err != nil {
			s.logger.Warn("skipping document, embedding failed",
				zap.String("document", doc.ID), zap.Error(err))
			continue
		}
		batch = append(batch, records...)
	}

	if len(batch) == 0 {
		s.logger.Warn("ingestion produced no embeddings, store left untouched")
		return nil
	}
	if err := s.store.Append(batch); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}
	s.logger.Info("ingestion complete",
		zap.Int("papers", len(metas)), zap.Int("chunks", len(batch)))
	return nil
}

// loadDocument fetches and extracts one paper's text. On failure the
// document carries a placeholder so the paper stays addressable.
func (s *Service) loadDocument(ctx context.Context, meta domain.PaperMeta) domain.Document {
	docID := papers.SanitizeTitle(meta.Title)
	doc := domain.Document{ID: docID, Title: meta.Title}

	url := ""
	filename := docID + ".txt"
	if meta.OpenAccessPDF != nil {
		url = *meta.OpenAccessPDF
		filename = docID + ".pdf"
	}
	path, err := s.fetcher.Fetch(ctx, url, filename)
	if err != nil {
		s.logger.Warn("fetch failed, using placeholder",
			zap.String("document", docID), zap.Error(err))
		doc.Text = placeholderText(meta.Title)
		return doc
	}
	text, err := s.extractor.Extract(path)
	if err != nil {
		s.logger.Warn("extraction failed, using placeholder",
			zap.String("document", docID), zap.Error(err))
		doc.Text = placeholderText(meta.Title)
		return doc
	}
	doc.Text = text
	return doc
}

func placeholderText(title string) string {
	return fmt.Sprintf("Paper %q could not be processed.", title)
}

// embedDocument chunks a document and embeds every chunk in one batch
// call, producing the store records.
func (s *Service) embedDocument(ctx context.Context, doc domain.Document) ([]domain.EmbeddingRecord, error) {
	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	records := make([]domain.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.EmbeddingRecord{
			DocumentID: c.DocumentID,
			ChunkID:    c.ChunkID(),
			Title:      doc.Title,
			Text:       c.Text,
			Vector:     vectors[i],
		}
	}
	return records, nil
}

// Answer retrieves grounding snippets for the query from the requested
// documents and forwards them to the generator. When retrieval yields
// nothing the generator is not contacted and the fixed sentinel is
// returned instead.
func (s *Service) Answer(ctx context.Context, query string, docIDs []string) (string, error) {
	results, err := s.retriever.Retrieve(ctx, query, docIDs, s.topK)
	if errors.Is(err, domain.ErrEmptyCorpus) {
		s.logger.Warn("corpus is empty, nothing to ground on")
		return generation.NoRelevantInformation, nil
	}
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		s.logger.Info("no grounding context found",
			zap.String("query", query), zap.Strings("documents", docIDs))
		return generation.NoRelevantInformation, nil
	}
	prompt := generation.BuildPrompt(query, results)
	answer, err := s.generator.Ask(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return answer, nil
}

// Retrieve exposes raw retrieval results for display alongside answers.
func (s *Service) Retrieve(ctx context.Context, query string, docIDs []string) ([]domain.RetrievalResult, error) {
	return s.retriever.Retrieve(ctx, query, docIDs, s.topK)
}

// AnalyzePaper asks the three standard literature-review questions about
// one ingested paper.
func (s *Service) AnalyzePaper(ctx context.Context, docID string) (*domain.Analysis, error) {
	questions := []string{
		"What is the research question of the paper?",
		"What is the objective of the paper?",
		"What is the main contribution of the paper?",
	}
	answers := make([]string, len(questions))
	for i, q := range questions {
		a, err := s.Answer(ctx, q, []string{docID})
		if err != nil {
			return nil, err
		}
		answers[i] = a
	}
	return &domain.Analysis{
		ResearchQuestion: answers[0],
		Objective:        answers[1],
		Contribution:     answers[2],
	}, nil
}
