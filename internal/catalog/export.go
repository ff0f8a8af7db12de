package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ExportHeaders is the column layout of product exports. The generic import
// dialect reads it back unchanged.
var ExportHeaders = []string{
	"ID", "Name", "Description", "Price", "Barcode",
	"Category", "Stock", "Cost Price", "Supplier", "Active",
}

func exportRecord(p *Product) []string {
	active := "No"
	if p.Active {
		active = "Yes"
	}
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.Name,
		p.Description,
		strconv.FormatFloat(p.Price, 'f', 2, 64),
		p.BarcodeValue(),
		p.Category,
		strconv.Itoa(p.Stock),
		strconv.FormatFloat(p.CostPrice, 'f', 2, 64),
		p.Supplier,
		active,
	}
}

// WriteCSV writes products as UTF-8 CSV with a header row.
func WriteCSV(w io.Writer, products []Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range products {
		if err := cw.Write(exportRecord(&products[i])); err != nil {
			return fmt.Errorf("write product %d: %w", products[i].ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes products to a single-sheet workbook. Numeric columns keep
// their numeric cell type so spreadsheets can sum them.
func WriteXLSX(w io.Writer, products []Product) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Products"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range ExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i := range products {
		p := &products[i]
		r := i + 2
		active := "No"
		if p.Active {
			active = "Yes"
		}
		values := []any{
			p.ID, p.Name, p.Description, p.Price, p.BarcodeValue(),
			p.Category, p.Stock, p.CostPrice, p.Supplier, active,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write product %d: %w", p.ID, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
