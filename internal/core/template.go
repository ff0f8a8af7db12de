package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/pos/internal/schema"
)

// templateSample is the example row written under the template header.
var templateSample = map[schema.Field]string{
	schema.FieldName:        "Espresso",
	schema.FieldDescription: "Single shot",
	schema.FieldPrice:       "2.50",
	schema.FieldBarcode:     "ESP001",
	schema.FieldCategory:    "Drinks",
	schema.FieldStock:       "100",
	schema.FieldCostPrice:   "0.80",
	schema.FieldSupplier:    "Local Roaster",
}

// TemplateHeaders returns the header row that d resolves with certainty:
// the first alias of every field the dialect knows.
func TemplateHeaders(d schema.Dialect) []string {
	var headers []string
	for _, f := range schema.Fields {
		if aliases := d.AliasesFor(f); len(aliases) > 0 {
			headers = append(headers, aliases[0])
		}
	}
	return headers
}

// WriteTemplate writes an import template for d: the header row and one
// sample product.
func WriteTemplate(w io.Writer, d schema.Dialect) error {
	var sample []string
	for _, f := range schema.Fields {
		if len(d.AliasesFor(f)) > 0 {
			sample = append(sample, templateSample[f])
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(TemplateHeaders(d)); err != nil {
		return fmt.Errorf("write template header: %w", err)
	}
	if err := cw.Write(sample); err != nil {
		return fmt.Errorf("write template sample: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
