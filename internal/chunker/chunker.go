package chunker

import (
	"strings"

	"scholarassist/internal/domain"
)

// Splitter cuts document text into chunks of at most maxLen runes with a
// fixed overlap between consecutive chunks. Cuts land on a paragraph break
// when one is available, then on a sentence end, then on a hard rune
// boundary.
type Splitter struct {
	maxLen  int
	overlap int
}

const (
	defaultMaxLen  = 500
	defaultOverlap = 20
)

func NewSplitter(maxLen, overlap int) *Splitter {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	if overlap < 0 {
		overlap = defaultOverlap
	}
	if overlap >= maxLen {
		overlap = maxLen / 4
	}
	return &Splitter{maxLen: maxLen, overlap: overlap}
}

// Chunk splits the document text. A document shorter than the chunk bound
// yields exactly one chunk equal to the input; empty input yields none.
func (s *Splitter) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}
	runes := []rune(doc.Text)
	if len(runes) <= s.maxLen {
		return []domain.Chunk{{DocumentID: doc.ID, Index: 0, Text: doc.Text}}, nil
	}
	var chunks []domain.Chunk
	start := 0
	for idx := 0; start < len(runes); idx++ {
		end := start + s.maxLen
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Index:      idx,
			Text:       string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
		// next chunk repeats the last overlap runes of this one
		start = end - s.overlap
	}
	return chunks, nil
}

// cutPoint picks the split position inside (start, limit]. Structural
// boundaries win over hard cuts, but a cut must leave room for the overlap
// so that every chunk makes forward progress.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	min := start + s.overlap + 1
	if p := lastParagraphBreak(runes, min, limit); p > 0 {
		return p
	}
	if p := lastSentenceEnd(runes, min, limit); p > 0 {
		return p
	}
	return limit
}

// lastParagraphBreak returns the position just after the last blank line in
// runes[min:limit], or 0 when there is none.
func lastParagraphBreak(runes []rune, min, limit int) int {
	for i := limit - 1; i > min; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return 0
}

// lastSentenceEnd returns the position just after the last terminator that
// is followed by whitespace in runes[min:limit], or 0 when there is none.
func lastSentenceEnd(runes []rune, min, limit int) int {
	for i := limit - 1; i >= min; i-- {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && isSpace(runes[i+1]) {
				return i + 1
			}
		}
	}
	return 0
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
