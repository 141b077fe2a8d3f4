// Package workbook is a thin adapter over excelize that exposes the sheets
// of an xlsx document as ordered rows keyed by column header. No business
// validation happens here; callers interpret the raw cell strings.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMalformedDocument indicates the input is not a readable workbook or
// contains no sheets.
var ErrMalformedDocument = errors.New("malformed document")

// Row is one data row of a sheet. Cells are trimmed strings addressed by
// case-insensitive column header.
type Row struct {
	// Index is the 1-based row number in the source sheet, including the
	// header row, so it matches what a user sees in a spreadsheet editor.
	Index int

	cells map[string]string
}

// Get returns the trimmed cell value under the given header, or "" when the
// column is absent or the cell is empty.
func (r Row) Get(header string) string {
	return r.cells[normalizeHeader(header)]
}

// Empty reports whether every cell in the row is blank.
func (r Row) Empty() bool {
	for _, v := range r.cells {
		if v != "" {
			return false
		}
	}
	return true
}

// Sheet holds the parsed contents of one worksheet.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// MissingColumns returns the subset of the given headers that the sheet does
// not declare, compared case-insensitively.
func (s *Sheet) MissingColumns(headers ...string) []string {
	present := make(map[string]bool, len(s.Headers))
	for _, h := range s.Headers {
		present[normalizeHeader(h)] = true
	}
	var missing []string
	for _, h := range headers {
		if !present[normalizeHeader(h)] {
			missing = append(missing, h)
		}
	}
	return missing
}

// Workbook is an in-memory view of an xlsx document.
type Workbook struct {
	names  []string
	sheets map[string]*Sheet
}

// Open reads a workbook from r. It fails with ErrMalformedDocument when the
// bytes cannot be parsed as an xlsx document or the document has no sheets.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer f.Close()
	return load(f)
}

// OpenFile reads a workbook from the file at path.
func OpenFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer f.Close()
	return load(f)
}

func load(f *excelize.File) (*Workbook, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedDocument)
	}

	wb := &Workbook{
		names:  names,
		sheets: make(map[string]*Sheet, len(names)),
	}
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrMalformedDocument, name, err)
		}
		wb.sheets[name] = buildSheet(name, rows)
	}
	return wb, nil
}

func buildSheet(name string, raw [][]string) *Sheet {
	sheet := &Sheet{Name: name}
	if len(raw) == 0 {
		return sheet
	}

	for _, h := range raw[0] {
		sheet.Headers = append(sheet.Headers, strings.TrimSpace(h))
	}

	for i, cells := range raw[1:] {
		row := Row{
			Index: i + 2, // 1-based, after the header row
			cells: make(map[string]string, len(sheet.Headers)),
		}
		for col, header := range sheet.Headers {
			if header == "" {
				continue
			}
			value := ""
			if col < len(cells) {
				value = strings.TrimSpace(cells[col])
			}
			row.cells[normalizeHeader(header)] = value
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// SheetNames returns the sheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	return wb.names
}

// Sheet returns the named sheet, or nil when it does not exist.
func (wb *Workbook) Sheet(name string) *Sheet {
	return wb.sheets[name]
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
