package core

import (
	"math"
	"strconv"
	"strings"
	"testing"
)

// ----------------------------------------------------------------------------
// CleanPrice Tests
// ----------------------------------------------------------------------------

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		// Plain decimals
		{name: "period decimal", input: "12.50", want: 12.50},
		{name: "integer", input: "15", want: 15},
		{name: "leading decimal point", input: ".99", want: 0.99},
		{name: "surrounding whitespace", input: "  7  ", want: 7},

		// Decimal comma
		{name: "comma decimal two digits", input: "12,50", want: 12.50},
		{name: "comma decimal one digit", input: "1,5", want: 1.5},
		{name: "comma decimal without integer part", input: ",5", want: 0.5},

		// Thousands separators
		{name: "comma thousands with period decimal", input: "1,234.56", want: 1234.56},
		{name: "comma thousands alone", input: "1,234", want: 1234},
		{name: "several comma groups", input: "1,234,567", want: 1234567},
		{name: "period thousands with comma decimal keeps first period", input: "1.234,56", want: 1.23456},

		// Currency symbols and text
		{name: "euro suffix", input: "15,00 €", want: 15},
		{name: "dollar prefix", input: "$1,299.99", want: 1299.99},
		{name: "currency code", input: "EUR 8.40", want: 8.40},

		// Sign
		{name: "leading minus", input: "-5.00", want: -5},
		{name: "minus before currency", input: "-€3,50", want: -3.5},
		{name: "trailing minus ignored", input: "5-", want: 5},

		// Unparseable
		{name: "empty", input: "", want: 0},
		{name: "whitespace only", input: "   ", want: 0},
		{name: "letters only", input: "abc", want: 0},
		{name: "two periods", input: "12.5.3", want: 0},
		{name: "lone period", input: ".", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanPrice(tt.input)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CleanPrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanPrice_PlainDecimalsRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "1", "9.99", "12.50", "100.00", "2500.75"} {
		got := CleanPrice(s)
		want, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("CleanPrice(%q) = %v, want %v", s, got, want)
		}
	}
}

// ----------------------------------------------------------------------------
// CleanStock Tests
// ----------------------------------------------------------------------------

func TestCleanStock(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"108", 108},
		{"", 0},
		{"12 units", 12},
		{"1,000", 1000},
		{" 42 ", 42},
		{"abc", 0},
		{"-3", 3},
		{"4.0", 40},
		{"99999999999999999999999", 0},
	}

	for _, tt := range tests {
		if got := CleanStock(tt.input); got != tt.want {
			t.Errorf("CleanStock(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestStockSignDropped(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"-3", true},
		{"  -3", true},
		{"- 4", true},
		{"3-", false},
		{"12", false},
		{"", false},
		{"n/a", false},
	}

	for _, tt := range tests {
		if got := StockSignDropped(tt.input); got != tt.want {
			t.Errorf("StockSignDropped(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// CleanBarcode Tests
// ----------------------------------------------------------------------------

func TestCleanBarcode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		isNil bool
	}{
		{name: "special characters verbatim", input: `'-&&&é'é-_à-"à`, want: `'-&&&é'é-_à-"à`},
		{name: "trimmed", input: "  AB12  ", want: "AB12"},
		{name: "leading zeros kept", input: "0012345", want: "0012345"},
		{name: "two accented letters", input: "éé", want: "éé"},
		{name: "inner spaces kept", input: "AB 12", want: "AB 12"},
		{name: "empty", input: "", isNil: true},
		{name: "whitespace", input: "   ", isNil: true},
		{name: "single character", input: "A", isNil: true},
		{name: "single character padded", input: " 7 ", isNil: true},
		{name: "single accented letter", input: "é", isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanBarcode(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("CleanBarcode(%q) = %q, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("CleanBarcode(%q) = nil, want %q", tt.input, tt.want)
			}
			if *got != tt.want {
				t.Errorf("CleanBarcode(%q) = %q, want %q", tt.input, *got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Text Tests
// ----------------------------------------------------------------------------

func TestCleanCategory(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Boissons", "Boissons"},
		{"  Drinks ", "Drinks"},
		{"", DefaultCategory},
		{"   ", DefaultCategory},
	}

	for _, tt := range tests {
		if got := CleanCategory(tt.input); got != tt.want {
			t.Errorf("CleanCategory(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsBlankRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"nil", nil, true},
		{"all empty", []string{"", "", ""}, true},
		{"whitespace", []string{" ", "\t"}, true},
		{"one value", []string{"", "x"}, false},
	}

	for _, tt := range tests {
		if got := isBlankRow(tt.row); got != tt.want {
			t.Errorf("%s: isBlankRow(%q) = %v, want %v", tt.name, tt.row, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Validation Tests
// ----------------------------------------------------------------------------

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		want []string
	}{
		{name: "valid", c: Candidate{Name: "Café", Price: 15}, want: nil},
		{name: "missing name", c: Candidate{Name: "  ", Price: 8}, want: []string{MsgNameRequired}},
		{name: "zero price", c: Candidate{Name: "Thé", Price: 0}, want: []string{MsgPricePositive}},
		{name: "negative price", c: Candidate{Name: "Thé", Price: -1}, want: []string{MsgPricePositive}},
		{name: "every rule fails independently", c: Candidate{Name: "", Price: 0}, want: []string{MsgNameRequired, MsgPricePositive}},
		{name: "name at limit", c: Candidate{Name: strings.Repeat("é", MaxNameLength), Price: 1}, want: nil},
		{name: "name over limit", c: Candidate{Name: strings.Repeat("a", MaxNameLength+1), Price: 1}, want: []string{MsgNameTooLong}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCandidate(&tt.c)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("ValidateCandidate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMsgNameTooLong(t *testing.T) {
	if want := "Product name is too long (max 255 characters)"; MsgNameTooLong != want {
		t.Errorf("MsgNameTooLong = %q, want %q", MsgNameTooLong, want)
	}
}
