package promptguard

import (
	"encoding/base64"
	"strings"

	"github.com/coach-gateway/pkg/models"
)

// Guard detects and neutralizes prompt-injection, jailbreak, and
// exfiltration attempts in free text. It holds no mutable state and is
// safe to share across goroutines without synchronization.
type Guard struct{}

// New creates a prompt guard.
func New() *Guard {
	return &Guard{}
}

const (
	zeroWidthThreatName = "zero_width_evasion"
	base64ThreatPrefix  = "base64:"
	maxRiskScore        = 100
)

// Scan matches the input against the detection catalog and the two
// evasion checks (zero-width hiding and base64-wrapped payloads).
func (g *Guard) Scan(input string) models.GuardResult {
	canonical := canonicalize(input)

	threats := matchCatalog(canonical)

	// Zero-width evasion: invisible marks are only a threat when
	// stripping them surfaces matches the raw text did not have.
	// Incidental zero-width characters stay unflagged.
	if containsZeroWidth(input) {
		rawCount := len(matchCatalog(input))
		if len(threats) > rawCount {
			threats = append(threats, models.Threat{
				Pattern:     zeroWidthThreatName,
				Category:    models.CategoryEncodingEvasion,
				Severity:    models.SeverityHigh,
				MatchedText: "",
			})
		}
	}

	threats = append(threats, g.scanBase64(canonical)...)

	score := 0
	for _, t := range threats {
		score += t.Severity.Weight()
	}
	if score > maxRiskScore {
		score = maxRiskScore
	}

	return models.GuardResult{
		Safe:      len(threats) == 0,
		Threats:   threats,
		RiskScore: score,
	}
}

// matchCatalog runs every catalog pattern against the text, one threat
// per matching pattern.
func matchCatalog(text string) []models.Threat {
	var threats []models.Threat
	for _, p := range catalog {
		if m := p.re.FindString(text); m != "" {
			threats = append(threats, models.Threat{
				Pattern:     p.name,
				Category:    p.category,
				Severity:    p.severity,
				MatchedText: m,
			})
		}
	}
	return threats
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// scanBase64 finds base64-looking tokens, decodes them, and matches the
// decoded text against the catalog. At most one threat is emitted per
// token, labeled after the pattern the decoded payload matched.
func (g *Guard) scanBase64(text string) []models.Threat {
	var threats []models.Threat

	for _, token := range findBase64Tokens(text) {
		decoded, ok := decodeBase64(token)
		if !ok {
			continue
		}
		if printableRatio(decoded) <= 0.8 {
			continue
		}

		for _, hit := range matchCatalog(canonicalize(decoded)) {
			threats = append(threats, models.Threat{
				Pattern:     base64ThreatPrefix + hit.Pattern,
				Category:    models.CategoryEncodingEvasion,
				Severity:    models.SeverityHigh,
				MatchedText: token,
			})
			break // one encoding_evasion threat per token
		}
	}
	return threats
}

// findBase64Tokens extracts runs of at least 20 base64-alphabet
// characters plus up to two trailing padding signs, rejecting runs that
// sit adjacent to further base64 characters.
func findBase64Tokens(text string) []string {
	isB64 := func(b byte) bool {
		return strings.IndexByte(base64Alphabet, b) >= 0
	}

	var tokens []string
	i := 0
	for i < len(text) {
		if !isB64(text[i]) {
			i++
			continue
		}
		start := i
		for i < len(text) && isB64(text[i]) {
			i++
		}
		runLen := i - start

		pad := 0
		for pad < 2 && i < len(text) && text[i] == '=' {
			pad++
			i++
		}

		// Adjacent base64 characters (e.g. a third '=') disqualify the run.
		if i < len(text) && (isB64(text[i]) || text[i] == '=') {
			for i < len(text) && (isB64(text[i]) || text[i] == '=') {
				i++
			}
			continue
		}

		if runLen >= 20 {
			tokens = append(tokens, text[start:start+runLen+pad])
		}
	}
	return tokens
}

// decodeBase64 accepts both padded and unpadded tokens.
func decodeBase64(token string) (string, bool) {
	trimmed := strings.TrimRight(token, "=")
	if decoded, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil {
		return string(decoded), true
	}
	if decoded, err := base64.StdEncoding.DecodeString(token); err == nil {
		return string(decoded), true
	}
	return "", false
}

// printableRatio is the fraction of bytes in the printable-ASCII range
// (tabs and newlines count as printable).
func printableRatio(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	printable := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if (b >= 0x20 && b < 0x7F) || b == '\n' || b == '\t' || b == '\r' {
			printable++
		}
	}
	return float64(printable) / float64(len(s))
}
