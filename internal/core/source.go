package core

// source.go reads tabular product files row by row.
//
// CSV input is decoded to UTF-8 before parsing: a byte order mark is
// stripped and invalid sequences become U+FFFD instead of failing the file.
// XLSX input is read through excelize's row iterator so large workbooks are
// never materialized at once.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when a file has no header row.
var ErrNoHeader = errors.New("file is empty: no header row")

// ErrUnsupportedEncoding is returned for encodings NewDecodingReader does not know.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// ErrUnsupportedFormat is returned for file extensions OpenSource does not know.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Source yields the header and then the data rows of a product file.
// Next returns io.EOF after the last row.
type Source interface {
	Header() ([]string, error)
	Next() (RawRow, error)
	Close() error
}

// NewDecodingReader wraps r so it yields UTF-8. Supported encodings are
// utf-8 (the default, BOM-aware), windows-1252 and iso-8859-1.
func NewDecodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1", "latin-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}
}

// CSVSource reads comma-separated input. Rows may be ragged.
type CSVSource struct {
	r      *csv.Reader
	closer io.Closer
	header bool
}

// NewCSVSource returns a source over r decoded from encoding.
func NewCSVSource(r io.Reader, encoding string) (*CSVSource, error) {
	decoded, err := NewDecodingReader(r, encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	s := &CSVSource{r: cr}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// Header reads the first record.
func (s *CSVSource) Header() ([]string, error) {
	rec, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	s.header = true
	return rec, nil
}

// Next reads the next non-blank record. The returned line is where the
// record starts, so multi-line quoted cells keep their first line.
func (s *CSVSource) Next() (RawRow, error) {
	if !s.header {
		return RawRow{}, errors.New("csv source: Header must be read first")
	}
	for {
		rec, err := s.r.Read()
		if err != nil {
			return RawRow{}, err
		}
		if isBlankRow(rec) {
			continue
		}
		line, _ := s.r.FieldPos(0)
		return RawRow{Line: line, Cells: rec}, nil
	}
}

// Close closes the underlying reader when it is closable.
func (s *CSVSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// XLSXSource reads the first sheet of a workbook.
type XLSXSource struct {
	f    *excelize.File
	rows *excelize.Rows
	line int
}

// NewXLSXSource opens the workbook in r and positions on its first sheet.
func NewXLSXSource(r io.Reader) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet := f.GetSheetName(0)
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return &XLSXSource{f: f, rows: rows}, nil
}

func (s *XLSXSource) next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	s.line++
	return s.rows.Columns()
}

// Header reads the first row of the sheet.
func (s *XLSXSource) Header() ([]string, error) {
	rec, err := s.next()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	return rec, err
}

// Next reads the next non-blank row. Lines are sheet row numbers.
func (s *XLSXSource) Next() (RawRow, error) {
	for {
		rec, err := s.next()
		if err != nil {
			return RawRow{}, err
		}
		if isBlankRow(rec) {
			continue
		}
		return RawRow{Line: s.line, Cells: rec}, nil
	}
}

// Close releases the row iterator and the workbook.
func (s *XLSXSource) Close() error {
	rowsErr := s.rows.Close()
	if err := s.f.Close(); err != nil {
		return err
	}
	return rowsErr
}

// OpenSource picks a reader for name by extension. Files without a known
// spreadsheet extension are read as CSV.
func OpenSource(name string, r io.Reader, encoding string) (Source, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return NewXLSXSource(r)
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx or .csv", ErrUnsupportedFormat)
	default:
		return NewCSVSource(r, encoding)
	}
}
