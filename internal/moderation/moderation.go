package moderation

import (
	goaway "github.com/TwiN/go-away"
)

// Detector flags and censors profanity. It complements the prompt guard:
// injection patterns and profanity are orthogonal signals, and clients
// get both on a scan.
type Detector struct {
	det *goaway.ProfanityDetector
}

// NewDetector creates a detector with leet-speak and special-character
// normalization enabled, so "sh1t" and "s.h.i.t" are caught too.
func NewDetector() *Detector {
	return &Detector{
		det: goaway.NewProfanityDetector().
			WithSanitizeLeetSpeak(true).
			WithSanitizeSpecialCharacters(true),
	}
}

// IsProfane reports whether the text contains profanity.
func (d *Detector) IsProfane(text string) bool {
	return d.det.IsProfane(text)
}

// Censor replaces profane words with asterisks, leaving the rest of the
// text untouched.
func (d *Detector) Censor(text string) string {
	return d.det.Censor(text)
}
