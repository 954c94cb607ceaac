package mask

import (
	"strings"
	"time"
	"unicode"
)

const (
	// PhoneDigits is the length of a Brazilian mobile number with area code.
	PhoneDigits = 11
	// PostalCodeDigits is the length of a CEP.
	PostalCodeDigits = 8

	dateLayout = "02/01/2006"
)

// Func turns raw input into its display representation. previous is the last
// accepted value of the field; maskers may return it to reject a keystroke.
type Func func(previous, raw string) string

// Digits strips every non-digit character.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone formats a mobile number as digits arrive. Partial input is grouped
// as "(DD) DDDDD" and the dash only appears once all eleven digits are
// present: "(DD) DDDDD-DDDD". Input carrying more than eleven digits is
// rejected and previous is returned unchanged.
func Phone(previous, raw string) string {
	digits := Digits(raw)
	if len(digits) > PhoneDigits {
		return previous
	}
	return groupPhone(digits)
}

func groupPhone(digits string) string {
	switch n := len(digits); {
	case n == 0:
		return ""
	case n <= 2:
		return "(" + digits
	case n < PhoneDigits:
		return "(" + digits[:2] + ") " + digits[2:]
	default:
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:]
	}
}

// PostalCode keeps the first eight digits of raw, without separators.
func PostalCode(raw string) string {
	digits := Digits(raw)
	if len(digits) > PostalCodeDigits {
		digits = digits[:PostalCodeDigits]
	}
	return digits
}

// Token removes all whitespace from a pasted or typed verification code.
func Token(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// Text keeps free-text input as typed.
func Text(raw string) string {
	return raw
}

// FormatDate renders t as DD/MM/YYYY in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate reads a DD/MM/YYYY date in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
}

func phoneFunc(previous, raw string) string { return Phone(previous, raw) }

func postalFunc(_, raw string) string { return PostalCode(raw) }

func tokenFunc(_, raw string) string { return Token(raw) }

func textFunc(_, raw string) string { return Text(raw) }
