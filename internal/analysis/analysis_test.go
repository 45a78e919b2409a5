package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarassist/internal/domain"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestComputeSkipsMissingFields(t *testing.T) {
	metas := []domain.PaperMeta{
		{PaperID: "a", Title: "A", Year: intp(2022), Journal: strp("Nature"),
			PublicationTypes: []string{"JournalArticle"}, IsOpenAccess: true},
		{PaperID: "b", Title: "B", Year: intp(2022),
			PublicationTypes: []string{"JournalArticle", "Review"}},
		{PaperID: "c", Title: "C"}, // no year, journal or types
	}
	stats := Compute(metas)

	assert.Equal(t, 3, stats.TotalPapers)
	assert.Equal(t, map[int]int{2022: 2}, stats.PublicationsPerYear)
	assert.Equal(t, map[string]int{"JournalArticle": 2, "Review": 1}, stats.PublicationTypes)
	assert.Equal(t, map[string]int{"Nature": 1}, stats.Journals)
	assert.Equal(t, 1, stats.OpenAccessCount)
}

func TestComputeEmptyBatch(t *testing.T) {
	stats := Compute(nil)
	assert.Zero(t, stats.TotalPapers)
	assert.Empty(t, stats.PublicationsPerYear)
}

func TestReportWriterCreatesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	w := NewReportWriter(dir, nil)

	metas := []domain.PaperMeta{{PaperID: "a", Title: "A", Year: intp(2023)}}
	path, err := w.Write(`("LLM")`, metas)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "literature_search_results_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, `("LLM")`, report.Query)
	assert.Equal(t, 1, report.Stats.TotalPapers)
	require.Len(t, report.Papers, 1)
	assert.Equal(t, "A", report.Papers[0].Title)
}

func TestSummarizePicksFrequentSentences(t *testing.T) {
	s := NewSummarizer()
	text := "Retrieval augmented generation improves grounding. " +
		"The weather was nice yesterday. " +
		"Retrieval quality drives generation grounding quality. " +
		"Grounding retrieval output reduces hallucination in generation."
	summary := s.Summarize(text)

	assert.NotContains(t, summary, "weather")
	assert.Contains(t, strings.ToLower(summary), "retrieval")
}

func TestSummarizeShortTextReturnedWhole(t *testing.T) {
	s := NewSummarizer()
	assert.Equal(t, "no sentence terminator here", s.Summarize("  no sentence terminator here  "))
}

func TestFillTLDRs(t *testing.T) {
	s := NewSummarizer()
	existing := "already there"
	metas := []domain.PaperMeta{
		{PaperID: "a", Title: "A", TLDR: &existing, Abstract: strp("Ignored abstract.")},
		{PaperID: "b", Title: "B", Abstract: strp("This study evaluates retrieval. Retrieval matters for grounding.")},
		{PaperID: "c", Title: "C"},
	}
	s.FillTLDRs(metas)

	assert.Equal(t, "already there", *metas[0].TLDR)
	require.NotNil(t, metas[1].TLDR)
	assert.NotEmpty(t, *metas[1].TLDR)
	assert.Nil(t, metas[2].TLDR)
}
