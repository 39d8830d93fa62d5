package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a statement carries no currency
// information of its own.
const DefaultCurrency = "CAD"

// dateFormats are tried in order before any relaxed inference. Formats
// with four-digit years come first so "2024-01-15" is never read as a
// day-first date.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/06",
}

// yearlessFormats cover statement lines that omit the year ("OCT 01").
// The missing year is filled from the caller-supplied default.
var yearlessFormats = []string{
	"Jan 2",
	"Jan 02",
	"2 Jan",
	"01/02",
}

// ParseDate parses a date string against the known statement formats.
// Returns the zero time and false when nothing matches.
func ParseDate(s string) (time.Time, bool) {
	return ParseDateWithDefaultYear(s, time.Now().Year())
}

// ParseDateWithDefaultYear is ParseDate with an explicit year for
// yearless tokens like "OCT 01".
func ParseDateWithDefaultYear(s string, defaultYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Month abbreviations on statements are often upper-case; Go's
	// reference layouts are title-case.
	title := titleCaseMonth(s)
	for _, layout := range yearlessFormats {
		if t, err := time.Parse(layout, title); err == nil {
			return time.Date(defaultYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, title); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

var monthToken = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)

func titleCaseMonth(s string) string {
	return monthToken.ReplaceAllStringFunc(s, func(m string) string {
		m = strings.ToLower(m)
		return strings.ToUpper(m[:1]) + m[1:]
	})
}

var currencyTokens = []string{"$", "€", "£", "CAD", "USD", "CNY"}

// ParseAmount parses a monetary string, tolerating currency symbols,
// thousands separators, and parenthesized negatives. Returns false when
// the string holds no parseable amount.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
		negative = true
	}

	if s == "" || s == "-" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// Shared amount patterns for free-text matching (PDF fallback, OCR).
var (
	amountPattern      = regexp.MustCompile(`-?\$?\s*-?\d{1,3}(?:,\d{3})*\.\d{2}`)
	parenAmountPattern = regexp.MustCompile(`\(\$?\s*\d{1,3}(?:,\d{3})*\.\d{2}\)`)
	textDatePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
		regexp.MustCompile(`\b\d{2}/\d{2}/\d{2}\b`),
		regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`),
		regexp.MustCompile(`(?i)\b[a-z]{3}\s+\d{1,2},\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b[a-z]{3}\s+\d{1,2}\b`),
	}
)

// FindDate extracts the first recognizable date token in free text.
func FindDate(text string, defaultYear int) (time.Time, bool) {
	for _, p := range textDatePatterns {
		if m := p.FindString(text); m != "" {
			if t, ok := ParseDateWithDefaultYear(m, defaultYear); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// FindAmount extracts the first recognizable monetary token in free
// text. Parenthesized amounts are negative.
func FindAmount(text string) (decimal.Decimal, bool) {
	if m := parenAmountPattern.FindString(text); m != "" {
		if d, ok := ParseAmount(m); ok {
			return d, true
		}
	}
	if m := amountPattern.FindString(text); m != "" {
		if d, ok := ParseAmount(m); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}
