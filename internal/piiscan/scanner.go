package piiscan

import (
	"sort"

	"github.com/coach-gateway/pkg/models"
)

// Scanner detects the ten supported PII categories in free text. It holds
// no mutable state and is safe to share across goroutines.
type Scanner struct{}

// New creates a PII scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan runs the full catalog, validates every raw match, deduplicates
// exact (type, start, end) triples, and returns matches sorted by start
// offset with per-category counts.
func (s *Scanner) Scan(text string) models.PIIScanResult {
	var matches []models.PIIMatch
	seen := make(map[models.PIIMatch]bool)

	for _, p := range piiCatalog {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := matchBounds(idx, p.group)
			if start < 0 {
				continue
			}
			value := text[start:end]
			if p.validate != nil && !p.validate(value) {
				continue
			}

			m := models.PIIMatch{
				Type:       p.piiType,
				Value:      value,
				Start:      start,
				End:        end,
				Confidence: p.confidence,
			}
			if seen[m] {
				continue
			}
			seen[m] = true
			matches = append(matches, m)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})

	summary := make(map[models.PIIType]int)
	for _, m := range matches {
		summary[m.Type]++
	}

	return models.PIIScanResult{
		Found:   len(matches) > 0,
		Matches: matches,
		Summary: summary,
	}
}

// ContainsPII is a cheap pre-filter: same catalog, but it short-circuits
// on the first validated hit without building a match list.
func (s *Scanner) ContainsPII(text string) bool {
	for _, p := range piiCatalog {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := matchBounds(idx, p.group)
			if start < 0 {
				continue
			}
			if p.validate == nil || p.validate(text[start:end]) {
				return true
			}
		}
	}
	return false
}

// matchBounds picks the value-carrying submatch out of a
// FindAllStringSubmatchIndex row.
func matchBounds(idx []int, group int) (start, end int) {
	g := 2 * group
	if g+1 >= len(idx) || idx[g] < 0 {
		return -1, -1
	}
	return idx[g], idx[g+1]
}
