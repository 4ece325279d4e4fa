package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer renders Dataset records into delimited text. Cells containing
// the delimiter, quotes, or newlines are quoted with embedded quotes doubled,
// per encoding/csv.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render produces CSV encoded bytes for the dataset. An empty dataset is an
// error rather than an empty file.
func (r *CSVRenderer) Render(data Dataset, _ string) (*File, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	if len(data.Rows) == 0 {
		return nil, fmt.Errorf("csv requires at least one row")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return &File{Data: buf.Bytes(), Extension: "csv", ContentType: ContentTypeCSV}, nil
}
