package core

// convert.go turns raw cell text into typed product values.
//
// Every cleaner is total: malformed input yields a zero value, never an
// error. Validation decides afterwards whether the zero value is acceptable.

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// CleanPrice parses a price cell.
//
// Everything except digits, commas and periods is dropped, so currency
// symbols and spaces disappear. A minus sign before the first digit makes
// the result negative. Separators are resolved as follows:
//   - comma and period both present: commas are thousands separators
//   - only a comma, single, followed by at most two digits: decimal comma
//   - any other comma: thousands separator
//
// Empty or unparseable input yields 0.
func CleanPrice(raw string) float64 {
	if strings.TrimSpace(raw) == "" {
		return 0
	}

	var b strings.Builder
	negative, seenDigit := false, false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit:
			negative = true
		}
	}
	s := b.String()

	hasComma := strings.Contains(s, ",")
	hasPeriod := strings.Contains(s, ".")
	switch {
	case hasComma && hasPeriod:
		s = strings.ReplaceAll(s, ",", "")
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = parts[0] + "." + parts[1]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}

// CleanStock parses a stock quantity by keeping only its digits.
// A leading minus sign is therefore dropped; see StockSignDropped.
func CleanStock(raw string) int {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// StockSignDropped reports whether CleanStock discarded a minus sign that
// preceded the digits of raw.
func StockSignDropped(raw string) bool {
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == '-':
			return true
		case r >= '0' && r <= '9':
			return false
		}
	}
	return false
}

// minBarcodeLength is the shortest barcode kept, in characters.
const minBarcodeLength = 2

// CleanBarcode trims surrounding whitespace and returns nil for values
// shorter than two characters. Anything else is kept verbatim: SKUs from
// shop exports carry punctuation and accented letters that must survive.
func CleanBarcode(raw string) *string {
	s := strings.TrimSpace(raw)
	if utf8.RuneCountInString(s) < minBarcodeLength {
		return nil
	}
	return &s
}

// CleanText trims surrounding whitespace.
func CleanText(raw string) string {
	return strings.TrimSpace(raw)
}

// CleanCategory trims the category and falls back to DefaultCategory.
func CleanCategory(raw string) string {
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	return DefaultCategory
}

// isBlankRow reports whether every cell is empty after trimming.
func isBlankRow(cells []string) bool {
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
