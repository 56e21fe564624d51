package iocdb

import (
	"regexp"

	"github.com/coach-gateway/pkg/models"
)

// Candidate-extraction patterns for free-text sweeps. Each class of
// indicator gets its own regex; the results are dispatched to the
// corresponding single-indicator check.
var (
	urlCandidateRe    = regexp.MustCompile(`https?://[^\s"'<>]+`)
	ipv4CandidateRe   = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`)
	domainCandidateRe = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
	hashCandidateRe   = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
)

// Check sweeps free text for URL, IPv4, domain, and SHA-256 candidates and
// runs each through its single-indicator lookup. Results are deduplicated
// by (type, indicator); an IPv4 literal is never double-counted as a
// domain-like token.
func (s *Store) Check(text string) []models.IndicatorMatch {
	var matches []models.IndicatorMatch
	seen := make(map[string]bool)

	add := func(m *models.IndicatorMatch) {
		if m == nil {
			return
		}
		key := string(m.Type) + "|" + m.Indicator
		if seen[key] {
			return
		}
		seen[key] = true
		matches = append(matches, *m)
	}

	for _, candidate := range urlCandidateRe.FindAllString(text, -1) {
		add(s.CheckURL(candidate))
	}
	for _, candidate := range ipv4CandidateRe.FindAllString(text, -1) {
		add(s.CheckIP(candidate))
	}
	for _, candidate := range domainCandidateRe.FindAllString(text, -1) {
		if _, isIP := parseIPv4(candidate); isIP {
			continue
		}
		add(s.CheckDomain(candidate))
	}
	for _, candidate := range hashCandidateRe.FindAllString(text, -1) {
		add(s.CheckHash(candidate))
	}

	return matches
}
