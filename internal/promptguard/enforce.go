package promptguard

import (
	"regexp"
	"strings"

	"github.com/coach-gateway/pkg/models"
)

var (
	repeatedSpacesRe = regexp.MustCompile(`[ \t]{2,}`)
	blankLineRe      = regexp.MustCompile(`(?m)^[ \t]+$`)
	manyNewlinesRe   = regexp.MustCompile(`\n{3,}`)
)

// Enforce scans the input and applies the requested mode. Blocking is an
// expected outcome, not a failure, so the result is a tagged variant:
//
//	blocked:   block mode, at least one critical/high threat
//	sanitized: threat text stripped from the canonical form
//	passed:    warn mode, or nothing to act on
//
// Warn mode always passes the input through unchanged; callers inspect
// threats via Scan. Block mode falls through to sanitize behavior when
// only medium/low threats are present. Sanitize never blocks.
func (g *Guard) Enforce(input string, mode models.EnforcementMode) models.EnforcementResult {
	if mode == "" {
		mode = models.ModeBlock
	}

	result := g.Scan(input)

	switch mode {
	case models.ModeWarn:
		return models.EnforcementResult{
			Outcome:   models.OutcomePassed,
			Text:      input,
			Threats:   result.Threats,
			RiskScore: result.RiskScore,
		}

	case models.ModeBlock:
		for _, t := range result.Threats {
			if t.Severity == models.SeverityCritical || t.Severity == models.SeverityHigh {
				return models.EnforcementResult{
					Outcome:   models.OutcomeBlocked,
					Threats:   result.Threats,
					RiskScore: result.RiskScore,
				}
			}
		}
		fallthrough

	default: // models.ModeSanitize
		if len(result.Threats) == 0 {
			return models.EnforcementResult{
				Outcome:   models.OutcomePassed,
				Text:      input,
				Threats:   nil,
				RiskScore: 0,
			}
		}
		return models.EnforcementResult{
			Outcome:   models.OutcomeSanitized,
			Text:      sanitize(input, result.Threats),
			Threats:   result.Threats,
			RiskScore: result.RiskScore,
		}
	}
}

// sanitize strips each threat's matched text from the canonical form:
// catalog threats by their pattern regex, synthetic base64 threats by
// direct substring removal. The zero-width synthetic threat needs no
// removal since canonicalization already dropped the hidden marks.
func sanitize(input string, threats []models.Threat) string {
	text := canonicalize(input)

	for _, t := range threats {
		name := strings.TrimPrefix(t.Pattern, base64ThreatPrefix)
		if t.Pattern != zeroWidthThreatName && !strings.HasPrefix(t.Pattern, base64ThreatPrefix) {
			if p, ok := catalogByName[name]; ok {
				text = p.re.ReplaceAllString(text, "")
				continue
			}
		}
		if t.MatchedText != "" {
			text = strings.ReplaceAll(text, t.MatchedText, "")
		}
	}

	text = repeatedSpacesRe.ReplaceAllString(text, " ")
	text = blankLineRe.ReplaceAllString(text, "")
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
