package ingest

import (
	"fmt"
	"strings"
)

// ColumnMatch is the header chosen by MatchColumn.
type ColumnMatch struct {
	Index   int
	Header  string
	Pattern string
	// Candidates lists every header that matched any pattern, in header
	// order. Index/Header always refer to Candidates[0].
	Candidates []string
}

// Ambiguous reports whether more than one header matched.
func (m ColumnMatch) Ambiguous() bool {
	return len(m.Candidates) > 1
}

// MatchColumn finds the first header (in header order) that contains any of
// patterns as a case-insensitive substring. ErrColumnNotFound is returned
// when nothing matches.
func MatchColumn(patterns []string, headers []string) (ColumnMatch, error) {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	if len(lowered) == 0 {
		return ColumnMatch{}, fmt.Errorf("%w: no column patterns configured", ErrColumnNotFound)
	}

	match := ColumnMatch{Index: -1}
	for i, h := range headers {
		header := strings.ToLower(strings.TrimSpace(h))
		if header == "" {
			continue
		}
		for _, p := range lowered {
			if !strings.Contains(header, p) {
				continue
			}
			if match.Index < 0 {
				match.Index = i
				match.Header = h
				match.Pattern = p
			}
			match.Candidates = append(match.Candidates, h)
			break
		}
	}
	if match.Index < 0 {
		return ColumnMatch{}, fmt.Errorf("%w: none of %q in headers %q", ErrColumnNotFound, lowered, headers)
	}
	return match, nil
}
