package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validators are hard gates: a candidate whose validator rejects it is
// dropped entirely, never reported at reduced confidence. Format-plausible
// but checksum-invalid values are the single largest false-positive class
// for the numeric identifiers.

// knownValidator reports whether name is a validator this package implements.
// Checked at pattern compile time so a typo in recognizer YAML fails at boot.
func knownValidator(name string) bool {
	switch name {
	case "luhn", "verhoeff", "pan", "passport", "bank_account", "dob", "ipv4":
		return true
	}
	return false
}

// runValidator applies the named validator to a matched value.
func runValidator(name, value string) bool {
	switch name {
	case "":
		return true
	case "luhn":
		return luhnValid(stripNonDigits(value))
	case "verhoeff":
		return verhoeffValid(stripNonDigits(value))
	case "pan":
		return panValid(value)
	case "passport":
		return passportValid(value)
	case "bank_account":
		return bankAccountValid(value)
	case "dob":
		return dobValid(value)
	case "ipv4":
		return ipv4Valid(value)
	}
	return false
}

// luhnValid checks whether a digit string passes the Luhn algorithm (ISO/IEC 7812).
func luhnValid(number string) bool {
	n := len(number)
	if n < 2 {
		return false
	}
	sum := 0
	alt := false
	for i := n - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// Verhoeff dihedral-group tables. Aadhaar's last digit is a Verhoeff check
// digit; unlike Luhn, the scheme catches all single transpositions.
var (
	verhoeffD = [10][10]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
		{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
		{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
		{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
		{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
		{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
		{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
		{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
		{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
	}
	verhoeffP = [8][10]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
		{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
		{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
		{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
		{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
		{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
		{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
	}
)

// verhoeffValid checks a digit string's trailing Verhoeff check digit.
func verhoeffValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	c := 0
	for i := 0; i < len(number); i++ {
		d := int(number[len(number)-1-i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		c = verhoeffD[c][verhoeffP[i%8][d]]
	}
	return c == 0
}

// LuhnCheckDigit computes the check digit that makes digits+d Luhn-valid.
// Used by synthetic value generation; digits must be numeric.
func LuhnCheckDigit(digits string) byte {
	for d := byte('0'); d <= '9'; d++ {
		if luhnValid(digits + string(d)) {
			return d
		}
	}
	return '0'
}

// VerhoeffCheckDigit computes the trailing Verhoeff check digit for digits.
func VerhoeffCheckDigit(digits string) byte {
	for d := byte('0'); d <= '9'; d++ {
		if verhoeffValid(digits + string(d)) {
			return d
		}
	}
	return '0'
}

// LuhnValid reports whether a digit string passes the Luhn checksum.
func LuhnValid(digits string) bool { return luhnValid(digits) }

// VerhoeffValid reports whether a digit string carries a valid Verhoeff
// check digit.
func VerhoeffValid(digits string) bool { return verhoeffValid(digits) }

// panHolderTypes are the valid 4th-character holder-type codes of a PAN
// (P person, C company, H HUF, F firm, A AOP, T trust, B BOI, L local
// authority, J juridical person, G government).
const panHolderTypes = "ABCFGHJLPT"

// panValid checks the holder-type character of a format-matched PAN.
func panValid(s string) bool {
	if len(s) != 10 {
		return false
	}
	return strings.ContainsRune(panHolderTypes, rune(s[3]))
}

// passportValid checks an Indian passport number beyond its shape: the
// numeric part of an issued passport never starts with zero.
func passportValid(s string) bool {
	if len(s) != 8 {
		return false
	}
	return s[1] != '0'
}

// bankAccountValid checks the digit-run length for Indian bank accounts.
func bankAccountValid(s string) bool {
	digits := stripNonDigits(s)
	return len(digits) == len(s) && len(digits) >= 9 && len(digits) <= 18
}

// dobValid checks that a d/m/y or d-m-y string is a real calendar date
// between 1900 and the current year. 31/02/1990 matches the shape but not
// the calendar.
func dobValid(s string) bool {
	sep := "/"
	if strings.Contains(s, "-") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	if year < 1900 || year > time.Now().Year() {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// ipv4Valid re-checks octet ranges on a dotted-quad match.
func ipv4Valid(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// ifscPattern matches an IFSC bank branch code (4 bank letters, a reserved
// zero, 6 branch characters).
var ifscPattern = regexp.MustCompile(`\b[A-Z]{4}0[0-9A-Z]{6}\b`)

// IFSCNearby reports whether an IFSC code appears within IFSCWindowChars of
// the given span. IFSC codes are never reported as entities themselves; they
// disambiguate bank account numbers from phone/Aadhaar-shaped digit runs.
func IFSCNearby(text string, start, end int) bool {
	lo := start - IFSCWindowChars
	if lo < 0 {
		lo = 0
	}
	hi := end + IFSCWindowChars
	if hi > len(text) {
		hi = len(text)
	}
	return ifscPattern.MatchString(text[lo:hi])
}

// stripNonDigits removes all non-digit characters from s.
func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
