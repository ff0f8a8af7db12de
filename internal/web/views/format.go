// Package views renders the HTML fragments the back office swaps in with
// HTMX. Components live in .templ files; run `templ generate` after editing
// them.
package views

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/pos/internal/core"
	"github.com/JonMunkholm/pos/internal/schema"
)

type columnEntry struct {
	Field  string
	Header string
}

// columnEntries lists the resolved columns in field order.
func columnEntries(cols map[schema.Field]string) []columnEntry {
	var out []columnEntry
	for _, f := range schema.Fields {
		if header, ok := cols[f]; ok {
			out = append(out, columnEntry{Field: string(f), Header: header})
		}
	}
	return out
}

func summaryText(s core.PreviewSummary) string {
	return fmt.Sprintf("%d products: %d valid, %d with errors. %d new, %d to update, %d to skip.",
		s.Candidates, s.Valid, s.Invalid, s.Create, s.Update, s.Skip)
}

// rowState is "invalid", "warning" or "valid".
func rowState(c *core.Candidate) string {
	switch {
	case !c.Valid():
		return "invalid"
	case len(c.Warnings) > 0:
		return "warning"
	}
	return "valid"
}

// barcodeText shows a rejected barcode next to a note instead of hiding it.
func barcodeText(c *core.Candidate) string {
	if v := c.BarcodeValue(); v != "" {
		return v
	}
	if c.OriginalBarcode != "" {
		return c.OriginalBarcode + " (ignored)"
	}
	return ""
}

func rowNotes(c *core.Candidate) string {
	notes := append(append([]string{}, c.Errors...), c.Warnings...)
	return strings.Join(notes, "; ")
}
