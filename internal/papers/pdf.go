package papers

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls the plain text out of a PDF file.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	return normalizeText(buf.String()), nil
}

// AutoExtractor dispatches on file extension: PDFs go through the PDF
// reader, everything else is treated as plain text.
type AutoExtractor struct {
	pdf  *PDFExtractor
	text *TextExtractor
}

func NewAutoExtractor() *AutoExtractor {
	return &AutoExtractor{pdf: NewPDFExtractor(), text: NewTextExtractor()}
}

func (e *AutoExtractor) Extract(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return e.pdf.Extract(path)
	}
	return e.text.Extract(path)
}
