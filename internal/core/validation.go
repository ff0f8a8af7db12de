package core

// validation.go checks cleaned candidates before they reach the catalog.
//
// Validation never stops at the first problem: every rule runs so a preview
// can show all of a row's issues at once.

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/pos/internal/schema"
)

// MaxNameLength is the longest product name accepted, in characters.
const MaxNameLength = 255

// Validation messages shown to users next to the offending row.
const (
	MsgNameRequired  = "Product name is required"
	MsgPricePositive = "Price must be greater than 0"
)

// MsgNameTooLong is reported for names over MaxNameLength characters.
var MsgNameTooLong = fmt.Sprintf("Product name is too long (max %d characters)", MaxNameLength)

// ValidateCandidate returns the validation errors of c, or nil when valid.
func ValidateCandidate(c *Candidate) []string {
	var errs []string

	name := strings.TrimSpace(c.Name)
	if name == "" {
		errs = append(errs, MsgNameRequired)
	}
	if c.Price <= 0 {
		errs = append(errs, MsgPricePositive)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		errs = append(errs, MsgNameTooLong)
	}
	return errs
}

// buildCandidate cleans one raw row into a candidate and validates it.
func buildCandidate(row RawRow, res Resolution) Candidate {
	cells := row.Cells
	c := Candidate{
		Line:        row.Line,
		Name:        CleanText(res.Cell(schema.FieldName, cells)),
		Description: CleanText(res.Cell(schema.FieldDescription, cells)),
		Price:       CleanPrice(res.Cell(schema.FieldPrice, cells)),
		Category:    CleanCategory(res.Cell(schema.FieldCategory, cells)),
		CostPrice:   CleanPrice(res.Cell(schema.FieldCostPrice, cells)),
		Supplier:    CleanText(res.Cell(schema.FieldSupplier, cells)),
	}

	rawBarcode := res.Cell(schema.FieldBarcode, cells)
	c.Barcode = CleanBarcode(rawBarcode)
	if c.Barcode == nil && strings.TrimSpace(rawBarcode) != "" {
		c.OriginalBarcode = rawBarcode
		c.Warnings = append(c.Warnings, fmt.Sprintf("barcode %q is too short and was ignored", strings.TrimSpace(rawBarcode)))
	}

	rawStock := res.Cell(schema.FieldStock, cells)
	c.Stock = CleanStock(rawStock)
	if StockSignDropped(rawStock) {
		c.Warnings = append(c.Warnings, fmt.Sprintf("negative stock %q was read as %d", strings.TrimSpace(rawStock), c.Stock))
	}

	c.Errors = ValidateCandidate(&c)
	return c
}
