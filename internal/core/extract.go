package core

// extract.go turns uploaded file bytes into an ordered header row and row
// records keyed by those headers. Extraction is the only place raw file
// formats are touched; everything downstream works on RawTable.
//
// CSV and delimited text go through encoding/csv with lenient field counts.
// Excel workbooks go through excelize; only the first sheet is read, with
// its first row as the header.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Extract parses a file into a RawTable. The filename is only used to
// pick the parser by extension. A file with no header row is an
// extraction error; a header with zero data rows is not, and is rejected
// later by the wizard so it can stay in the upload stage.
func Extract(filename string, data []byte) (RawTable, error) {
	if len(data) == 0 {
		return RawTable{}, &ExtractionError{Err: ErrEmptyFile}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv", ".txt":
		return extractDelimited(data, ',')
	case ".tsv":
		return extractDelimited(data, '\t')
	case ".xlsx", ".xlsm":
		return extractWorkbook(data)
	default:
		return RawTable{}, &ExtractionError{Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)}
	}
}

// extractDelimited reads CSV or tab-delimited text.
func extractDelimited(data []byte, delimiter rune) (RawTable, error) {
	data = sanitizeUTF8(stripBOM(data))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // tolerate ragged rows, validated later
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return RawTable{}, &ExtractionError{Err: err}
	}
	if len(records) == 0 {
		return RawTable{}, &ExtractionError{Err: ErrEmptyFile}
	}

	return tableFromRecords(records), nil
}

// extractWorkbook reads the first sheet of an Excel workbook.
func extractWorkbook(data []byte) (RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return RawTable{}, &ExtractionError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawTable{}, &ExtractionError{Err: ErrEmptyFile}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return RawTable{}, &ExtractionError{Err: err}
	}
	if len(records) == 0 {
		return RawTable{}, &ExtractionError{Err: ErrEmptyFile}
	}

	return tableFromRecords(records), nil
}

// tableFromRecords builds a RawTable from raw string records: first record
// is the header, fully empty data rows are dropped, and short rows pad
// with empty cells.
func tableFromRecords(records [][]string) RawTable {
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = CleanCell(h)
	}

	table := RawTable{Headers: headers}
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := make(RawRow, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = StringCell(record[i])
			} else {
				row[header] = StringCell("")
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// isEmptyRecord reports whether every cell is blank.
func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// stripBOM removes a UTF-8 byte order mark, a common Excel export artifact.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// sanitizeUTF8 replaces invalid UTF-8 sequences so the CSV reader does not
// choke on files saved in legacy encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte{'?'})
}
