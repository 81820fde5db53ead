package classifier

import "strings"

// Placeholder classification keeps obvious test data visible without letting
// it drive risk: flagged candidates are reported with PlaceholderConfidence
// and IsPlaceholder set, and the risk scorer ignores them.

// placeholderValues are exact (lowercased) values that are test data by
// convention.
var placeholderValues = map[string]struct{}{
	"john doe":    {},
	"jane doe":    {},
	"test user":   {},
	"foo bar":     {},
	"lorem ipsum": {},
	"1234567890":  {},
	"0000000000":  {},
}

// placeholderDomains are email domains reserved for documentation and testing.
var placeholderDomains = map[string]struct{}{
	"example.com": {},
	"example.org": {},
	"example.net": {},
	"test.com":    {},
}

// placeholderLocalParts are email local parts that mark a synthetic mailbox
// regardless of domain.
var placeholderLocalParts = map[string]struct{}{
	"test":        {},
	"demo":        {},
	"sample":      {},
	"example":     {},
	"noreply":     {},
	"placeholder": {},
}

// IsPlaceholderValue reports whether a matched value is placeholder or test
// data rather than a real identifier.
func IsPlaceholderValue(label, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if _, ok := placeholderValues[v]; ok {
		return true
	}
	if strings.Contains(v, "xxxx") || strings.Contains(v, "####") {
		return true
	}

	if label == LabelEmail {
		if at := strings.LastIndex(v, "@"); at > 0 {
			local, domain := v[:at], v[at+1:]
			if _, ok := placeholderDomains[domain]; ok {
				return true
			}
			if _, ok := placeholderLocalParts[local]; ok {
				return true
			}
		}
	}

	digits := stripNonDigits(v)
	if len(digits) >= 6 {
		if repeatedDigits(digits) || ascendingDigits(digits) {
			return true
		}
	}
	return false
}

// repeatedDigits reports whether every digit is the same.
func repeatedDigits(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// ascendingDigits reports whether the run counts up with wraparound
// (1234567890). Descending runs are deliberately not flagged: 9876543210 is
// the shape of a real mobile number range.
func ascendingDigits(digits string) bool {
	if len(digits) < 8 {
		return false
	}
	for i := 1; i < len(digits); i++ {
		prev := digits[i-1] - '0'
		cur := digits[i] - '0'
		if cur != (prev+1)%10 {
			return false
		}
	}
	return true
}
