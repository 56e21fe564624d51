package promptguard

import "strings"

// zeroWidthRunes are invisible code points used to split keywords so they
// slip past naive pattern matching.
var zeroWidthRunes = map[rune]bool{
	'\u200B': true, // ZERO WIDTH SPACE
	'\u200C': true, // ZERO WIDTH NON-JOINER
	'\u200D': true, // ZERO WIDTH JOINER
	'\u200E': true, // LEFT-TO-RIGHT MARK
	'\u200F': true, // RIGHT-TO-LEFT MARK
	'\u2060': true, // WORD JOINER
	'\uFEFF': true, // ZERO WIDTH NO-BREAK SPACE (BOM)
}

// homoglyphs maps Cyrillic and Greek look-alikes onto the Latin letters
// they imitate. Only visually confusable letters are folded; everything
// else passes through untouched.
var homoglyphs = map[rune]rune{
	// Cyrillic
	'а': 'a', 'А': 'A',
	'В': 'B',
	'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E',
	'Н': 'H',
	'і': 'i', 'І': 'I',
	'К': 'K',
	'М': 'M',
	'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P',
	'Т': 'T',
	'х': 'x', 'Х': 'X',
	'у': 'y', 'У': 'Y',
	// Greek
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X', 'Ζ': 'Z',
}

// canonicalize strips zero-width marks and folds fullwidth ASCII and
// common homoglyphs onto plain ASCII so the pattern catalog matches text
// regardless of Unicode evasion tricks.
func canonicalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	for _, r := range input {
		if zeroWidthRunes[r] {
			continue
		}
		if r >= 0xFF01 && r <= 0xFF5E { // fullwidth ASCII block
			b.WriteRune(r - 0xFEE0)
			continue
		}
		if r == '\u3000' { // IDEOGRAPHIC SPACE
			b.WriteRune(' ')
			continue
		}
		if folded, ok := homoglyphs[r]; ok {
			b.WriteRune(folded)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// containsZeroWidth reports whether the input carries any invisible marks.
func containsZeroWidth(input string) bool {
	for _, r := range input {
		if zeroWidthRunes[r] {
			return true
		}
	}
	return false
}
