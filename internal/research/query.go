package research

import (
	"fmt"
	"strings"
)

// BuildQuery constructs the literature-search query string. Required terms
// are joined with AND, alternatives with OR and exclusions with NOT, each
// term quoted and parenthesized.
func BuildQuery(required, or, not []string) string {
	parts := make([]string, 0, len(required))
	for _, term := range required {
		parts = append(parts, fmt.Sprintf(`("%s")`, term))
	}
	query := strings.Join(parts, " AND ")

	if len(or) > 0 {
		alts := make([]string, 0, len(or))
		for _, term := range or {
			alts = append(alts, fmt.Sprintf(`("%s")`, term))
		}
		query = query + " OR " + strings.Join(alts, " OR ")
	}
	if len(not) > 0 {
		excl := make([]string, 0, len(not))
		for _, term := range not {
			excl = append(excl, fmt.Sprintf(`("%s")`, term))
		}
		query = query + " NOT " + strings.Join(excl, " NOT ")
	}
	return query
}
