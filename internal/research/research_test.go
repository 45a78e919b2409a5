package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryRequiredOnly(t *testing.T) {
	q := BuildQuery([]string{"LLM", "education"}, nil, nil)
	assert.Equal(t, `("LLM") AND ("education")`, q)
}

func TestBuildQueryFullGrammar(t *testing.T) {
	q := BuildQuery(
		[]string{"retrieval"},
		[]string{"RAG", "grounding"},
		[]string{"survey"},
	)
	assert.Equal(t, `("retrieval") OR ("RAG") OR ("grounding") NOT ("survey")`, q)
}

func TestBuildQuerySingleTerm(t *testing.T) {
	assert.Equal(t, `("transformers")`, BuildQuery([]string{"transformers"}, nil, nil))
}

type pageResponse struct {
	Data []map[string]any `json:"data"`
}

func paper(id, title string, year int) map[string]any {
	return map[string]any{
		"paperId": id,
		"title":   title,
		"year":    year,
	}
}

func TestSearchPaginatesAndDeduplicates(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset := r.URL.Query().Get("offset")
		var resp pageResponse
		switch offset {
		case "0":
			resp.Data = []map[string]any{paper("a", "A", 2022), paper("b", "B", 2023)}
		case "3":
			// "b" repeats across pages and must be dropped
			resp.Data = []map[string]any{paper("b", "B", 2023), paper("c", "C", 2024)}
		default:
			resp.Data = nil
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	metas, err := c.Search(context.Background(), "q", SearchOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, "a", metas[0].PaperID)
	assert.Equal(t, "b", metas[1].PaperID)
	assert.Equal(t, "c", metas[2].PaperID)
	assert.Equal(t, 2, calls)
}

func TestSearchResumesAfterThrottle(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp := pageResponse{Data: []map[string]any{paper("a", "A", 2022)}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, WithThrottleWait(time.Millisecond))
	metas, err := c.Search(context.Background(), "q", SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 2, calls)
}

func TestSearchAppliesYearAndAccessFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			require.NoError(t, json.NewEncoder(w).Encode(pageResponse{}))
			return
		}
		old := paper("old", "Old", 2015)
		closed := paper("closed", "Closed", 2023)
		open := paper("open", "Open", 2023)
		open["isOpenAccess"] = true
		open["openAccessPdf"] = map[string]any{"url": "https://example.org/open.pdf"}
		resp := pageResponse{Data: []map[string]any{old, closed, open}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, WithSearchWindow(time.Second))
	metas, err := c.Search(context.Background(), "q", SearchOptions{
		Limit:            5,
		StartYear:        2020,
		OpenAccessOnly:   true,
		PDFAvailableOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "open", metas[0].PaperID)
	require.NotNil(t, metas[0].OpenAccessPDF)
	assert.Equal(t, "https://example.org/open.pdf", *metas[0].OpenAccessPDF)
}

func TestSearchMapsOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			require.NoError(t, json.NewEncoder(w).Encode(pageResponse{}))
			return
		}
		full := map[string]any{
			"paperId":  "full",
			"title":    "Full Paper",
			"year":     2024,
			"abstract": "An abstract.",
			"url":      "https://example.org/full",
			"authors": []map[string]any{
				{"name": "Ada Lovelace"}, {"name": "Alan Turing"},
			},
			"externalIds":      map[string]any{"DOI": "10.1000/xyz"},
			"citationCount":    7,
			"referenceCount":   31,
			"isOpenAccess":     true,
			"publicationTypes": []string{"JournalArticle"},
			"journal":          map[string]any{"name": "Nature"},
			"tldr":             map[string]any{"text": "short summary"},
		}
		bare := map[string]any{"paperId": "bare", "title": "Bare Paper"}
		resp := pageResponse{Data: []map[string]any{full, bare}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	metas, err := c.Search(context.Background(), "q", SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, metas, 2)

	full := metas[0]
	require.NotNil(t, full.Year)
	assert.Equal(t, 2024, *full.Year)
	require.NotNil(t, full.DOI)
	assert.Equal(t, "10.1000/xyz", *full.DOI)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, full.Authors)
	require.NotNil(t, full.Journal)
	assert.Equal(t, "Nature", *full.Journal)
	require.NotNil(t, full.TLDR)
	assert.Equal(t, "short summary", *full.TLDR)

	bare := metas[1]
	assert.Nil(t, bare.Year)
	assert.Nil(t, bare.DOI)
	assert.Nil(t, bare.Journal)
	assert.Nil(t, bare.TLDR)
}

func TestSearchFatalOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Search(context.Background(), "q", SearchOptions{Limit: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("status %d", http.StatusInternalServerError))
}
