package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads delimited text into one field map per row, keyed by the
// header row. Header names are stripped of stray quotes and whitespace (the
// CORDIS dump quotes its header cells). Short rows are skipped rather than
// failing the whole file.
func ParseCSV(data []byte, comma rune) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(h), `"`))
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row is a record-level problem, not a file-level one.
			continue
		}
		if len(rec) < len(header) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			row[h] = strings.TrimSpace(strings.Trim(strings.TrimSpace(rec[i]), `"`))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
