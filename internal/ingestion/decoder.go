package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	expectedHeader = []string{"name", "sku", "description"}
)

// Row is one decoded product row. Field values are trimmed; the SKU keeps
// its original casing.
type Row struct {
	Name        string
	SKU         string
	Description string
	Line        int
}

// RowReader yields decoded rows one at a time and io.EOF when the stream is
// exhausted. Malformed rows are skipped and counted, never yielded. The
// sequence is not restartable.
type RowReader interface {
	Next() (Row, error)
	Skipped() int
}

// NewDecoder validates the header of the uploaded payload and returns a row
// reader for it. A bad header or unreadable file is fatal; individual bad
// rows are not.
func NewDecoder(fileName string, payload []byte) (RowReader, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return newCSVDecoder(payload)
	case ".xlsx":
		return newExcelDecoder(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// validateHeader enforces the fixed name,sku,description column layout.
// Header-driven reordering is not supported.
func validateHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return fmt.Errorf("expected header %q, got %d columns", strings.Join(expectedHeader, ","), len(header))
	}
	for i, want := range expectedHeader {
		got := strings.ToLower(strings.TrimSpace(header[i]))
		if got != want {
			return fmt.Errorf("expected header column %d to be %q, got %q", i+1, want, header[i])
		}
	}
	return nil
}

// makeRow turns a raw record into a Row, or reports why it must be skipped.
func makeRow(record []string, line int) (Row, bool) {
	if len(record) != len(expectedHeader) {
		return Row{}, false
	}
	row := Row{
		Name:        strings.TrimSpace(record[0]),
		SKU:         strings.TrimSpace(record[1]),
		Description: strings.TrimSpace(record[2]),
		Line:        line,
	}
	if row.Name == "" || row.SKU == "" {
		return Row{}, false
	}
	return row, true
}

type csvDecoder struct {
	reader  *csv.Reader
	line    int
	skipped int
}

func newCSVDecoder(payload []byte) (*csvDecoder, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	return &csvDecoder{reader: csvReader, line: 1}, nil
}

func (d *csvDecoder) Next() (Row, error) {
	for {
		record, err := d.reader.Read()
		if err != nil {
			if err == io.EOF {
				return Row{}, io.EOF
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				d.line++
				d.skipped++
				continue
			}
			return Row{}, fmt.Errorf("failed to read csv row: %w", err)
		}

		d.line++
		row, ok := makeRow(record, d.line)
		if !ok {
			d.skipped++
			continue
		}
		return row, nil
	}
}

func (d *csvDecoder) Skipped() int {
	return d.skipped
}

type excelDecoder struct {
	rows    [][]string
	pos     int
	skipped int
}

func newExcelDecoder(payload []byte) (*excelDecoder, error) {
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
	if len(rows) == 0 {
		return nil, errors.New("excel file has no header row")
	}
	if err := validateHeader(rows[0]); err != nil {
		return nil, err
	}

	return &excelDecoder{rows: rows[1:]}, nil
}

func (d *excelDecoder) Next() (Row, error) {
	for d.pos < len(d.rows) {
		record := d.rows[d.pos]
		d.pos++

		// excelize drops trailing empty cells; pad so a present name and SKU
		// with an empty description still forms a complete record.
		if len(record) < len(expectedHeader) {
			padded := make([]string, len(expectedHeader))
			copy(padded, record)
			record = padded
		}

		row, ok := makeRow(record, d.pos+1)
		if !ok {
			d.skipped++
			continue
		}
		return row, nil
	}
	return Row{}, io.EOF
}

func (d *excelDecoder) Skipped() int {
	return d.skipped
}
