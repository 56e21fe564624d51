package piiscan

import (
	"regexp"

	"github.com/coach-gateway/pkg/models"
)

// piiPattern pairs a detection regex with its category, confidence, and
// optional validator. group selects the submatch that carries the PII
// value (0 = whole match) so label prefixes like "password:" stay out of
// the reported offsets.
type piiPattern struct {
	piiType    models.PIIType
	confidence models.Confidence
	re         *regexp.Regexp
	group      int
	validate   func(value string) bool
}

var piiCatalog = []piiPattern{
	{
		piiType:    models.PIIEmail,
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	},
	{
		piiType:    models.PIIPhone,
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		validate:   validPhoneDigits,
	},
	{
		piiType:    models.PIIPhone,
		confidence: models.ConfidenceMedium,
		re:         regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{1,4}(?:[-.\s]?\d{2,4}){2,4}`),
		validate:   validPhoneDigits,
	},
	{
		piiType:    models.PIISSN,
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		validate:   validSSN,
	},
	{
		// Nine bare digits are usually something else, hence low
		// confidence, but the area/group rules still apply.
		piiType:    models.PIISSN,
		confidence: models.ConfidenceLow,
		re:         regexp.MustCompile(`\b\d{9}\b`),
		validate:   validSSN,
	},
	{
		piiType:    models.PIICreditCard, // Visa
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`\b4\d{12}(?:\d{3})?\b`),
		validate:   luhnCheck,
	},
	{
		piiType:    models.PIICreditCard, // Mastercard
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`\b5[1-5]\d{14}\b`),
		validate:   luhnCheck,
	},
	{
		piiType:    models.PIICreditCard, // American Express
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`\b3[47]\d{13}\b`),
		validate:   luhnCheck,
	},
	{
		piiType:    models.PIICreditCard, // Discover
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`\b6(?:011|5\d{2})\d{12}\b`),
		validate:   luhnCheck,
	},
	{
		piiType:    models.PIIIPAddress,
		confidence: models.ConfidenceMedium,
		re:         regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`),
		validate:   isPublicIPv4,
	},
	{
		piiType:    models.PIIAWSKey,
		confidence: models.ConfidenceHigh,
		re:         regexp.MustCompile(`\bAKIA[0-9A-Za-z]{16}\b`),
	},
	{
		piiType:    models.PIIAPIKey,
		confidence: models.ConfidenceMedium,
		re:         regexp.MustCompile(`\b[A-Za-z0-9_\-]{40,}\b`),
		validate:   looksLikeToken,
	},
	{
		piiType:    models.PIIPassword,
		confidence: models.ConfidenceMedium,
		// The value may not open with '[' so that an already-redacted
		// token is not picked up as a new secret on a second pass.
		re:         regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\s*[=:]\s*([^\s\[]\S*)`),
		group:      1,
	},
	{
		piiType:    models.PIIAddress,
		confidence: models.ConfidenceLow,
		re:         regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-zA-Z]*\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Way)\b`),
	},
	{
		piiType:    models.PIIDateOfBirth,
		confidence: models.ConfidenceMedium,
		re:         regexp.MustCompile(`(?i)\b(?:dob|date\s+of\s+birth|birth\s*date|born(?:\s+on)?)\s*[:\-]?\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{4}-\d{2}-\d{2})`),
		group:      1,
	},
}
