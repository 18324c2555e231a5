package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoSuffix is the sentinel returned when an NCF value carries no digits. Rows
// with this sentinel are never grouped into an invoice.
const NoSuffix = "0000"

// ExtractNCFSuffix reduces a fiscal receipt number (NCF) to its last four
// digits, left-padded with zeros. Non-digit characters are ignored, so
// "B0100002904" and "2904" yield the same suffix.
func ExtractNCFSuffix(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if s == "" {
		return NoSuffix
	}
	if len(s) > 4 {
		return s[len(s)-4:]
	}
	return strings.Repeat("0", 4-len(s)) + s
}

// dateLayouts are tried in order. Day-first beats month-first because the
// source files come out of Dominican accounting software.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2/1/2006",
	"02-01-2006",
}

// ParseDate parses an invoice date, trying each accepted layout in order.
// Years outside [1900, 2100) are rejected as data-entry noise.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() < 1900 || t.Year() >= 2100 {
			return time.Time{}, fmt.Errorf("implausible year %d in date %q", t.Year(), raw)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// ParseNumber parses a decimal that may use either comma or period as the
// decimal separator, with optional thousands separators in the other style.
// When both separators appear, the rightmost one is the decimal separator.
// A single separator is treated as decimal only when followed by one to
// three digits; otherwise it is a thousands separator.
func ParseNumber(raw string) (float64, error) {
	var cleaned strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			cleaned.WriteRune(r)
		}
	}
	s := cleaned.String()
	if s == "" || s == "-" {
		return 0, fmt.Errorf("no numeric content in %q", raw)
	}

	lastComma := strings.LastIndex(s, ",")
	lastPeriod := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastPeriod >= 0:
		if lastComma > lastPeriod {
			// European style: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// US style: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",", lastComma)
	case lastPeriod >= 0:
		s = resolveSingleSeparator(s, ".", lastPeriod)
	}

	if strings.Count(s, ".") > 1 || strings.Count(s, "-") > 1 {
		return 0, fmt.Errorf("malformed number %q", raw)
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", raw)
	}
	return value, nil
}

func resolveSingleSeparator(s, sep string, lastIdx int) string {
	trailing := len(s) - lastIdx - 1
	if strings.Count(s, sep) == 1 && trailing >= 1 && trailing <= 3 {
		// Decimal separator
		return strings.Replace(s, sep, ".", 1)
	}
	// Thousands separators: 1.234.567 or 1,2345
	return strings.ReplaceAll(s, sep, "")
}

// ParseQuantity parses a strictly positive quantity.
func ParseQuantity(raw string) (float64, error) {
	q, err := ParseNumber(raw)
	if err != nil {
		return 0, err
	}
	if q <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %v", q)
	}
	return q, nil
}

// ParsePrice parses a non-negative unit price. A zero price marks the line as
// a promotional giveaway rather than an error.
func ParsePrice(raw string) (price float64, isOffer bool, err error) {
	p, err := ParseNumber(raw)
	if err != nil {
		return 0, false, err
	}
	if p < 0 {
		return 0, false, fmt.Errorf("price must not be negative, got %v", p)
	}
	return p, p == 0, nil
}
