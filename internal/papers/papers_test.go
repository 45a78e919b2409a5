package papers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarassist/internal/domain"
)

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "ChatGPT_ Applications, Opportunities, and Threats",
		SanitizeTitle("ChatGPT: Applications, Opportunities, and Threats"))
	assert.Equal(t, "a_b_c_d", SanitizeTitle(`a/b\c?d`))
	assert.Equal(t, "plain title", SanitizeTitle("plain title"))
}

func TestSanitizeTitleTruncates(t *testing.T) {
	long := strings.Repeat("x", 250)
	assert.Len(t, SanitizeTitle(long), 100)
}

func TestMetadataStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	m := NewMetadataStore(path)

	year := 2023
	journal := "Nature"
	require.NoError(t, m.Add(domain.PaperMeta{PaperID: "p1", Title: "First Paper", Year: &year, Journal: &journal}))
	require.NoError(t, m.Add(domain.PaperMeta{PaperID: "p2", Title: "Second Paper"}))

	list, err := m.Load()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "First Paper", list[0].Title)
	require.NotNil(t, list[0].Year)
	assert.Equal(t, 2023, *list[0].Year)
	assert.Nil(t, list[1].Journal, "absent fields stay absent, not sentinel strings")
}

func TestMetadataStoreResetDiscardsBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	m := NewMetadataStore(path)
	require.NoError(t, m.Add(domain.PaperMeta{PaperID: "p1", Title: "Old"}))
	require.NoError(t, m.Reset())

	list, err := m.Load()
	require.NoError(t, err)
	assert.Empty(t, list)

	// Reset on a missing file is fine
	require.NoError(t, m.Reset())
}

func TestMetadataStoreTitleByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	m := NewMetadataStore(path)
	require.NoError(t, m.Add(domain.PaperMeta{PaperID: "p1", Title: "ChatGPT: A Survey"}))

	assert.Equal(t, "ChatGPT: A Survey", m.TitleByID(SanitizeTitle("ChatGPT: A Survey")))
	assert.Equal(t, "unknown_doc", m.TitleByID("unknown_doc"))
}

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.txt"), []byte("content"), 0o644))

	f := NewDirFetcher(dir)
	path, err := f.Fetch(context.Background(), "https://example.org/paper.pdf", "paper.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "paper.txt"), path)

	_, err = f.Fetch(context.Background(), "", "missing.txt")
	require.Error(t, err)
}

func TestDownloaderSavesAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("paper body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, nil)

	path, err := d.Fetch(context.Background(), srv.URL+"/p.pdf", "p.pdf")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "paper body", string(data))

	// Second fetch reuses the file
	_, err = d.Fetch(context.Background(), srv.URL+"/p.pdf", "p.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestDownloaderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir(), nil)

	_, err := d.Fetch(context.Background(), "", "missing.pdf")
	require.Error(t, err, "no url and no cached file")

	_, err = d.Fetch(context.Background(), srv.URL+"/gone.pdf", "gone.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestAutoExtractorFallsBackToText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain  text here.\n"), 0o644))

	e := NewAutoExtractor()
	text, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "plain text here.", text)
}

func TestTextExtractorNormalizesWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("First   line\t here.\n\nSecond    paragraph.\n"), 0o644))

	e := NewTextExtractor()
	text, err := e.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "First line here.\n\nSecond paragraph.", text)
}
