// Package research builds literature-search queries and talks to the
// Semantic Scholar paper-search API. It is a collaborator of the retrieval
// core: its output (paper metadata) feeds ingestion and reporting.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"scholarassist/internal/domain"
)

// SearchOptions filter one paper search.
type SearchOptions struct {
	StartYear        int // 0 means unbounded
	EndYear          int // 0 means unbounded
	LastNYears       int // overrides StartYear/EndYear when set
	Limit            int
	OpenAccessOnly   bool
	PDFAvailableOnly bool
}

// Client pages through Semantic Scholar search results until it has
// collected the requested number of unique papers or the search window
// elapses.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	searchWindow time.Duration
	throttleWait time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

const searchFields = "paperId,title,authors,year,abstract,url,externalIds," +
	"citationCount,referenceCount,isOpenAccess,openAccessPdf," +
	"publicationTypes,journal,tldr"

// Option configures the search client.
type Option func(*Client)

// WithSearchWindow bounds the total time spent paging.
func WithSearchWindow(d time.Duration) Option {
	return func(c *Client) { c.searchWindow = d }
}

// WithThrottleWait sets the pause after a 429 response.
func WithThrottleWait(d time.Duration) Option {
	return func(c *Client) { c.throttleWait = d }
}

func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "https://api.semanticscholar.org"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		searchWindow: time.Minute,
		throttleWait: 10 * time.Second,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search collects up to opts.Limit unique papers matching the query.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.PaperMeta, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	startYear, endYear := opts.StartYear, opts.EndYear
	if opts.LastNYears > 0 {
		current := c.now().Year()
		startYear = current - opts.LastNYears
		endYear = current
	}

	var collected []domain.PaperMeta
	seen := make(map[string]struct{})
	offset := 0
	deadline := c.now().Add(c.searchWindow)

	for len(collected) < opts.Limit && c.now().Before(deadline) {
		page, status, err := c.fetchPage(ctx, query, opts.Limit, offset)
		if err != nil {
			return collected, err
		}
		if status == http.StatusTooManyRequests {
			c.logger.Warn("search throttled, waiting", zap.Duration("wait", c.throttleWait))
			select {
			case <-ctx.Done():
				return collected, ctx.Err()
			case <-time.After(c.throttleWait):
			}
			continue
		}
		if status != http.StatusOK {
			return collected, fmt.Errorf("paper search failed: status %d", status)
		}
		if len(page) == 0 {
			break
		}
		for _, meta := range page {
			if startYear > 0 && (meta.Year == nil || *meta.Year < startYear) {
				continue
			}
			if endYear > 0 && meta.Year != nil && *meta.Year > endYear {
				continue
			}
			if opts.OpenAccessOnly && !meta.IsOpenAccess {
				continue
			}
			if opts.PDFAvailableOnly && meta.OpenAccessPDF == nil {
				continue
			}
			if _, dup := seen[meta.PaperID]; dup || meta.PaperID == "" {
				continue
			}
			seen[meta.PaperID] = struct{}{}
			collected = append(collected, meta)
		}
		offset += opts.Limit
	}
	if len(collected) > opts.Limit {
		collected = collected[:opts.Limit]
	}
	return collected, nil
}

// paperPayload mirrors the wire shape of one search hit.
type paperPayload struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Year        *int    `json:"year"`
	Abstract    *string `json:"abstract"`
	URL         *string `json:"url"`
	ExternalIDs struct {
		DOI *string `json:"DOI"`
	} `json:"externalIds"`
	CitationCount  *int `json:"citationCount"`
	ReferenceCount *int `json:"referenceCount"`
	IsOpenAccess   bool `json:"isOpenAccess"`
	OpenAccessPDF  *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	PublicationTypes []string `json:"publicationTypes"`
	Journal          *struct {
		Name string `json:"name"`
	} `json:"journal"`
	TLDR *struct {
		Text string `json:"text"`
	} `json:"tldr"`
}

func (c *Client) fetchPage(ctx context.Context, query string, limit, offset int) ([]domain.PaperMeta, int, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("fields", searchFields)

	endpoint := c.baseURL + "/graph/v1/paper/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("paper search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	var out struct {
		Data []paperPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode search response: %w", err)
	}
	metas := make([]domain.PaperMeta, 0, len(out.Data))
	for _, p := range out.Data {
		metas = append(metas, p.toMeta())
	}
	return metas, resp.StatusCode, nil
}

func (p paperPayload) toMeta() domain.PaperMeta {
	meta := domain.PaperMeta{
		PaperID:          p.PaperID,
		Title:            p.Title,
		Year:             p.Year,
		Abstract:         p.Abstract,
		URL:              p.URL,
		DOI:              p.ExternalIDs.DOI,
		CitationCount:    p.CitationCount,
		ReferenceCount:   p.ReferenceCount,
		IsOpenAccess:     p.IsOpenAccess,
		PublicationTypes: p.PublicationTypes,
	}
	for _, a := range p.Authors {
		meta.Authors = append(meta.Authors, a.Name)
	}
	if p.OpenAccessPDF != nil && p.OpenAccessPDF.URL != "" {
		u := p.OpenAccessPDF.URL
		meta.OpenAccessPDF = &u
	}
	if p.Journal != nil && p.Journal.Name != "" {
		n := p.Journal.Name
		meta.Journal = &n
	}
	if p.TLDR != nil && p.TLDR.Text != "" {
		tl := p.TLDR.Text
		meta.TLDR = &tl
	}
	return meta
}
