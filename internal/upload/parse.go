package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// row is one uploaded record keyed by the header of its column, the raw
// form is kept so rejected rows can be echoed back unchanged.
type row map[string]string

// parseCSV reads the payload record by record, the first record names the
// columns.
func parseCSV(data []byte) ([]row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []row{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	rows := []row{}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}

		rows = append(rows, zipRow(header, record))
	}
}

// parseWorkbook reads the first sheet of an xlsx workbook, the first row
// names the columns.
func parseWorkbook(data []byte) ([]row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	if len(records) == 0 {
		return []row{}, nil
	}

	header := records[0]

	rows := make([]row, 0, len(records)-1)

	for _, record := range records[1:] {
		rows = append(rows, zipRow(header, record))
	}

	return rows, nil
}

func zipRow(header, record []string) row {
	r := make(row, len(header))

	for i, name := range header {
		if i < len(record) {
			r[name] = record[i]
		}
	}

	return r
}
