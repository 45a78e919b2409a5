// Package analysis derives descriptive statistics from a literature-search
// batch and persists the results as timestamped reports.
package analysis

import "scholarassist/internal/domain"

// Stats aggregates one batch of paper metadata. Papers missing a field are
// skipped for that statistic, never counted under a sentinel bucket.
type Stats struct {
	TotalPapers         int            `json:"total_papers"`
	PublicationsPerYear map[int]int    `json:"publications_per_year"`
	PublicationTypes    map[string]int `json:"publication_types"`
	Journals            map[string]int `json:"journals"`
	OpenAccessCount     int            `json:"open_access_count"`
}

// Compute tallies the batch.
func Compute(metas []domain.PaperMeta) Stats {
	stats := Stats{
		TotalPapers:         len(metas),
		PublicationsPerYear: make(map[int]int),
		PublicationTypes:    make(map[string]int),
		Journals:            make(map[string]int),
	}
	for _, meta := range metas {
		if meta.Year != nil {
			stats.PublicationsPerYear[*meta.Year]++
		}
		for _, pt := range meta.PublicationTypes {
			stats.PublicationTypes[pt]++
		}
		if meta.Journal != nil {
			stats.Journals[*meta.Journal]++
		}
		if meta.IsOpenAccess {
			stats.OpenAccessCount++
		}
	}
	return stats
}
