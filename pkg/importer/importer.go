// Package importer reads and writes the spreadsheet formats used for bulk
// asset and employee transfer. Parsing is storage free: it turns a CSV or
// XLSX file into validated records plus per-row errors, and the caller
// decides what to persist.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tealeg/xlsx/v3"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Format is a spreadsheet file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format: expected .csv or .xlsx")

// ParseFormat accepts "csv" or "xlsx"; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// FormatFromFilename picks the format from a file extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// ImportOptions defines the configuration for import operations
type ImportOptions struct {
	DryRun    bool
	MaxErrors int // default 100
}

// WithDefaults fills zero values
func (o ImportOptions) WithDefaults() ImportOptions {
	if o.MaxErrors <= 0 {
		o.MaxErrors = 100
	}
	return o
}

// RowError represents an error that occurred during row processing.
// Row numbers count the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors"`
	Truncated    bool     `json:"errors_truncated,omitempty"`
	DryRun       bool     `json:"dry_run"`
}

// NewSummary builds a summary from row errors, keeping at most maxErrors messages.
func NewSummary(success int, rowErrs []RowError, opts ImportOptions) ImportSummary {
	opts = opts.WithDefaults()
	s := ImportSummary{
		SuccessCount: success,
		ErrorCount:   len(rowErrs),
		Errors:       make([]string, 0, min(len(rowErrs), opts.MaxErrors)),
		DryRun:       opts.DryRun,
	}
	for i, e := range rowErrs {
		if i >= opts.MaxErrors {
			s.Truncated = true
			break
		}
		s.Errors = append(s.Errors, e.String())
	}
	return s
}

// Table is a raw sheet: a header row and data rows.
// RowNumbers holds the file row number of each data row.
type Table struct {
	Header     []string
	Rows       [][]string
	RowNumbers []int
}

// ReadTable reads the first sheet of an XLSX file or a whole CSV file.
// Blank rows are skipped.
func ReadTable(r io.Reader, f Format) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, errors.New("file is empty")
	}

	var (
		records [][]string
		lines   []int
	)
	switch f {
	case FormatCSV:
		records, lines, err = readCSV(data)
	case FormatXLSX:
		records, lines, err = readXLSX(data)
	default:
		return Table{}, ErrUnsupportedFormat
	}
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, errors.New("file has no header row")
	}

	t := Table{Header: records[0]}
	for i, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
		t.RowNumbers = append(t.RowNumbers, lines[i+1])
	}
	return t, nil
}

// DecodeText returns UTF-8 text, falling back to Latin-1 when the input is
// not valid UTF-8. A leading byte order mark is dropped.
func DecodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode latin-1: %w", err)
	}
	return out, nil
}

// readCSV returns the records with the file line each one starts on.
// encoding/csv skips empty lines, so lines may have gaps.
func readCSV(data []byte) ([][]string, []int, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, nil, err
	}
	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func readXLSX(data []byte) ([][]string, []int, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	sheet := xlFile.Sheets[0]

	records := make([][]string, 0, sheet.MaxRow)
	lines := make([]int, 0, sheet.MaxRow)
	for rowIdx := 0; rowIdx < sheet.MaxRow; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", rowIdx+1, err)
		}
		rec := make([]string, sheet.MaxCol)
		for colIdx := 0; colIdx < sheet.MaxCol; colIdx++ {
			rec[colIdx] = cellText(row.GetCell(colIdx), xlFile.Date1904)
		}
		records = append(records, rec)
		lines = append(lines, rowIdx+1)
	}
	return records, lines, nil
}

func cellText(cell *xlsx.Cell, date1904 bool) string {
	if cell == nil {
		return ""
	}
	if cell.IsTime() {
		if t, err := cell.GetTime(date1904); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return strings.TrimSpace(cell.String())
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// NormalizeHeader lower-cases a column title, strips required markers and
// turns spaces into underscores: "Serial Number*" becomes "serial_number".
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, "*", "")
	h = strings.TrimSpace(h)
	return strings.ReplaceAll(h, " ", "_")
}
