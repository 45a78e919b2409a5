package papers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DirFetcher resolves papers that are already on disk. Network download is
// an external collaborator; the pipeline only needs a path it can extract
// text from.
type DirFetcher struct {
	dir string
}

func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{dir: dir}
}

// Fetch returns the local path for the named file, ignoring the URL.
func (f *DirFetcher) Fetch(_ context.Context, _ string, filename string) (string, error) {
	path := filepath.Join(f.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("fetch %s: %w", filename, err)
	}
	return path, nil
}

// TextExtractor reads plain-text files and normalizes whitespace.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

// Extract returns the cleaned text of the file.
func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return normalizeText(string(data)), nil
}

var whitespaceRun = regexp.MustCompile(`[ \t\r]+`)

// normalizeText collapses runs of spaces to one and trims every line.
// Paragraph breaks (blank lines) survive so the chunker can split on them.
func normalizeText(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
