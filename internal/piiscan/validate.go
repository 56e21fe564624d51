package piiscan

import (
	"strconv"
	"strings"
)

// luhnCheck validates a card-like number with the Luhn checksum. Digits
// are doubled every second position from the right; separators are
// tolerated and skipped.
func luhnCheck(number string) bool {
	sum := 0
	pos := 0
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c == ' ' || c == '-' {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if pos%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		pos++
	}
	return pos > 0 && sum%10 == 0
}

// validSSN applies the structural SSN rules to a dashed or bare nine
// digit value: area 000, 666, and 900–999 are never issued, nor is
// group 00.
func validSSN(value string) bool {
	digits := strings.ReplaceAll(value, "-", "")
	if len(digits) != 9 {
		return false
	}
	area := digits[:3]
	group := digits[3:5]

	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" {
		return false
	}
	return true
}

// validPhoneDigits requires 10–15 digits once separators are stripped.
func validPhoneDigits(value string) bool {
	digits := 0
	for i := 0; i < len(value); i++ {
		if value[i] >= '0' && value[i] <= '9' {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

// isPublicIPv4 excludes the ranges that never identify a person:
// RFC1918 private space, loopback, and link-local.
func isPublicIPv4(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return false
	}
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 10:
		return false
	case octets[0] == 127:
		return false
	case octets[0] == 169 && octets[1] == 254:
		return false
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return false
	case octets[0] == 192 && octets[1] == 168:
		return false
	}
	return true
}

// looksLikeToken separates machine-generated secrets from long words:
// at least two of {upper, lower, digit}, and never a plain lowercase
// word.
func looksLikeToken(value string) bool {
	var hasUpper, hasLower, hasDigit bool
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}

	classes := 0
	for _, has := range []bool{hasUpper, hasLower, hasDigit} {
		if has {
			classes++
		}
	}
	// A single class also rules out all-lowercase words.
	return classes >= 2
}
