package piiscan

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/coach-gateway/pkg/models"
)

// RedactOptions selects which categories to redact and how. Zero values
// mean all categories with the type_label strategy.
type RedactOptions struct {
	Types    []models.PIIType
	Strategy models.RedactStrategy
}

// Redact replaces detected PII in the text. It never fails: text without
// matches comes back unchanged, and a second pass over already-redacted
// output is a no-op.
func (s *Scanner) Redact(text string, opts RedactOptions) string {
	result := s.Scan(text)
	if !result.Found {
		return text
	}

	matches := result.Matches
	if len(opts.Types) > 0 {
		wanted := make(map[models.PIIType]bool, len(opts.Types))
		for _, t := range opts.Types {
			wanted[t] = true
		}
		filtered := matches[:0:0]
		for _, m := range matches {
			if wanted[m.Type] {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	if len(matches) == 0 {
		return text
	}

	matches = resolveOverlaps(matches)

	strategy := opts.Strategy
	if strategy == "" {
		strategy = models.RedactTypeLabel
	}

	// Apply right to left so earlier replacements don't shift the
	// offsets of later ones.
	out := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		out = out[:m.Start] + replacement(m, strategy) + out[m.End:]
	}
	return out
}

// resolveOverlaps keeps a non-overlapping subset of matches: sorted by
// (start asc, length desc), a match survives only if it starts at or
// after the previously kept match's end. At equal start the longer match
// wins, so a full card number beats a shorter embedded digit run.
func resolveOverlaps(matches []models.PIIMatch) []models.PIIMatch {
	sorted := make([]models.PIIMatch, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End-sorted[i].Start > sorted[j].End-sorted[j].Start
	})

	kept := sorted[:0:0]
	lastEnd := -1
	for _, m := range sorted {
		if m.Start < lastEnd {
			continue
		}
		kept = append(kept, m)
		lastEnd = m.End
	}
	return kept
}

func replacement(m models.PIIMatch, strategy models.RedactStrategy) string {
	switch strategy {
	case models.RedactMask:
		return maskValue(m.Value)
	case models.RedactHash:
		return fmt.Sprintf("[%s:%s]", typeLabel(m.Type), hashValue(m.Value))
	default:
		return fmt.Sprintf("[%s REDACTED]", typeLabel(m.Type))
	}
}

// maskValue keeps the first and last character and stars the middle;
// values of one or two characters are starred entirely.
func maskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}

// hashValue is a stable 8-hex-digit one-way digest of the value, so
// repeated occurrences correlate without being reversible.
func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum[:4])
}

func typeLabel(t models.PIIType) string {
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}
