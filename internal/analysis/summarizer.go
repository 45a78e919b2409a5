package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"scholarassist/internal/domain"
)

// Summarizer produces a short extractive summary by ranking sentences on
// stopword-filtered token frequency. It backfills the TLDR of papers the
// search API returned without one.
type Summarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
	maxSentences    int
}

func NewSummarizer() *Summarizer {
	return &Summarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       summaryStopwords(),
		maxSentences:    2,
	}
}

// Summarize picks the highest scoring sentences, kept in original order.
func (s *Summarizer) Summarize(text string) string {
	sentences := s.sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, skip := s.stopwords[tok]; skip {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Length normalization so long sentences do not dominate
		if n := float64(len(toks)); n > 0 {
			score /= math.Sqrt(n)
		}
		scores[i] = ranked{i, score}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := s.maxSentences
	if keep > len(scores) {
		keep = len(scores)
	}
	selected := make([]int, keep)
	for i := 0; i < keep; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, keep)
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " ")
}

// FillTLDRs summarizes the abstract of every paper that has no TLDR yet.
// Papers without an abstract are left untouched.
func (s *Summarizer) FillTLDRs(metas []domain.PaperMeta) {
	for i := range metas {
		if metas[i].TLDR != nil || metas[i].Abstract == nil {
			continue
		}
		summary := s.Summarize(*metas[i].Abstract)
		if summary == "" {
			continue
		}
		metas[i].TLDR = &summary
	}
}

func (s *Summarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func summaryStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "we", "our", "such", "which", "can",
		"will", "has", "have", "its", "into", "about", "than", "also",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
