// Package store persists embedding records for one ingestion batch as a
// single flat file. A new batch replaces the previous one entirely; there
// is no incremental merge.
package store

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"scholarassist/internal/domain"
)

// FileStore is a flat-file implementation of domain.EmbeddingStore using
// gob encoding, which round-trips float64 vectors at full precision.
type FileStore struct {
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Append writes all records of a completed ingestion batch in one atomic
// file-level write. Contents from a previous batch are discarded.
func (s *FileStore) Append(records []domain.EmbeddingRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "embeddings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	// rename makes the replacement atomic on the same filesystem
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	s.logger.Info("embedding store written",
		zap.String("path", s.path), zap.Int("records", len(records)))
	return nil
}

// Load returns every record of the current batch. A missing store yields
// no records; an unreadable one is treated as empty with a warning so a
// fresh ingestion can repair it.
func (s *FileStore) Load() ([]domain.EmbeddingRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	var records []domain.EmbeddingRecord
	if err := gob.NewDecoder(f).Decode(&records); err != nil {
		s.logger.Warn("embedding store unreadable, treating as empty",
			zap.String("path", s.path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreCorrupt, err)
	}
	return records, nil
}

// FilterByDocument returns the records belonging to the given document
// ids, preserving store order.
func (s *FileStore) FilterByDocument(docIDs []string) ([]domain.EmbeddingRecord, error) {
	records, err := s.Load()
	if err != nil && !errors.Is(err, domain.ErrStoreCorrupt) {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		wanted[id] = struct{}{}
	}
	var out []domain.EmbeddingRecord
	for _, r := range records {
		if _, ok := wanted[r.DocumentID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
