package payment

import (
	"regexp"
	"strings"
	"unicode"
)

var phrases = []string{"paid", "payment", "proof of payment"}

var (
	popPattern   = regexp.MustCompile(`(?i)\bpop\b`)
	tokenPattern = regexp.MustCompile(`[A-Za-z0-9.\-]{6,}`)
)

// IsConfirmation reports whether text looks like a customer saying they
// have paid: a payment phrase, "POP", or a payment reference.
func IsConfirmation(text string) bool {
	low := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(low, p) {
			return true
		}
	}
	if popPattern.MatchString(text) {
		return true
	}
	return Reference(text) != ""
}

// Reference returns the first payment reference in text. A reference is a
// token of at least six letters, digits, dots or dashes that contains both
// a letter and a digit, e.g. "MP240611.1532.H12345" or "ECO-7731AB".
func Reference(text string) string {
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		tok = strings.Trim(tok, ".-")
		if len(tok) < 6 {
			continue
		}
		if hasLetter(tok) && hasDigit(tok) {
			return tok
		}
	}
	return ""
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
