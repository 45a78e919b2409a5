package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"scholarassist/internal/domain"
)

// Report is the persisted shape of one literature-search run.
type Report struct {
	Query     string             `json:"query"`
	CreatedAt time.Time          `json:"created_at"`
	Stats     Stats              `json:"stats"`
	Papers    []domain.PaperMeta `json:"papers"`
}

// ReportWriter writes timestamped search reports into a directory. Each run
// gets its own file so earlier reports are never overwritten.
type ReportWriter struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewReportWriter(dir string, logger *zap.Logger) *ReportWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWriter{dir: dir, logger: logger, now: time.Now}
}

// Write persists one report and returns the file path.
func (w *ReportWriter) Write(query string, metas []domain.PaperMeta) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	report := Report{
		Query:     query,
		CreatedAt: w.now(),
		Stats:     Compute(metas),
		Papers:    metas,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	name := fmt.Sprintf("literature_search_results_%s.json", report.CreatedAt.Format("2006-01-02_15-04-05"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	w.logger.Info("search report written",
		zap.String("path", path), zap.Int("papers", len(metas)))
	return path, nil
}
