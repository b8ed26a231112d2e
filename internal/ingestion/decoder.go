package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when the upload contains no rows at all.
	ErrEmptyFile = errors.New("no rows found in file")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// requiredColumns are the logical fields every upload must provide. Column
// order in the file does not matter; extra columns are ignored.
var requiredColumns = []string{"nombre", "apellido", "edad", "correo", "tipo_sangre"}

// RawRow is one decoded data row: its row number as it appears in the source
// file (the header is row 1, so data starts at 2) and the raw cell value for
// each required column. RawRows are ephemeral; only validated records persist.
type RawRow struct {
	Number int
	Fields map[string]string
}

// StructureError reports required columns missing from the header row. It
// aborts decoding before any data row is produced.
type StructureError struct {
	Missing []string
	Found   []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("columnas faltantes: %s", strings.Join(e.Missing, ", "))
}

// Decode parses the uploaded file into an ordered sequence of raw rows. Rows
// where every cell is blank are skipped entirely and never counted.
func Decode(fileName string, payload []byte) ([]RawRow, error) {
	if len(payload) == 0 {
		return nil, errors.New("file is empty")
	}

	records, err := readRecords(fileName, payload)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := normalizeHeaders(records[0])
	positions := make(map[string]int, len(headers))
	for idx, header := range headers {
		if _, seen := positions[header]; !seen {
			positions[header] = idx
		}
	}

	var missing []string
	for _, column := range requiredColumns {
		if _, ok := positions[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, &StructureError{Missing: missing, Found: headers}
	}

	var rows []RawRow
	for idx, record := range records[1:] {
		if isBlankRow(record) {
			continue
		}

		fields := make(map[string]string, len(requiredColumns))
		for _, column := range requiredColumns {
			pos := positions[column]
			if pos < len(record) {
				fields[column] = record[pos]
			} else {
				fields[column] = ""
			}
		}

		rows = append(rows, RawRow{
			Number: idx + 2, // header occupies row 1
			Fields: fields,
		})
	}

	return rows, nil
}

func readRecords(fileName string, payload []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return readCSV(payload)
	case ".xlsx":
		return readExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// normalizeHeaders trims, lower-cases, and collapses internal whitespace to
// underscores so "Tipo Sangre " maps to tipo_sangre.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		headers[idx] = strings.Join(strings.Fields(name), "_")
	}
	return headers
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
