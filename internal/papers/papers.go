// Package papers handles paper metadata: document ids derived from titles,
// and the per-batch metadata file consumed by the reporting layer.
package papers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"scholarassist/internal/domain"
)

// maxIDLength bounds sanitized titles so they stay usable as filenames.
const maxIDLength = 100

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeTitle converts a paper title into a filesystem-safe document id:
// unsafe characters become underscores and the result is truncated.
func SanitizeTitle(title string) string {
	id := unsafeChars.ReplaceAllString(title, "_")
	runes := []rune(id)
	if len(runes) > maxIDLength {
		return string(runes[:maxIDLength])
	}
	return id
}

// MetadataStore writes the per-document metadata file: a JSON array of
// paper metadata, rebuilt fresh at the start of each ingestion batch.
type MetadataStore struct {
	path string
}

func NewMetadataStore(path string) *MetadataStore {
	return &MetadataStore{path: path}
}

// Reset discards the metadata of the previous batch.
func (m *MetadataStore) Reset() error {
	err := os.Remove(m.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset metadata: %w", err)
	}
	return nil
}

// Add appends one paper's metadata to the file, creating it on first use.
func (m *MetadataStore) Add(meta domain.PaperMeta) error {
	list, err := m.Load()
	if err != nil {
		return err
	}
	list = append(list, meta)
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Load returns the metadata of the current batch, or none when the file
// does not exist or holds something unusable.
func (m *MetadataStore) Load() ([]domain.PaperMeta, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var list []domain.PaperMeta
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, nil
	}
	return list, nil
}

// TitleByID returns the stored title for a sanitized document id, falling
// back to the id itself when the paper is unknown.
func (m *MetadataStore) TitleByID(docID string) string {
	list, err := m.Load()
	if err != nil {
		return docID
	}
	for _, meta := range list {
		if SanitizeTitle(meta.Title) == docID {
			return meta.Title
		}
	}
	return docID
}
