// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVWriter writes data in CSV format. Columns are fixed by the first write.
type CSVWriter struct {
	out     io.WriteCloser
	writer  *csv.Writer
	keys    []string
	headers []string
}

// NewCSVWriter creates a new CSV writer on out. keys, when set, are the columns.
func NewCSVWriter(out io.WriteCloser, keys []string) *CSVWriter {
	return &CSVWriter{
		out:    out,
		writer: csv.NewWriter(out),
		keys:   keys,
	}
}

// Write writes data rows, writing the header first when needed
func (w *CSVWriter) Write(data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if w.writer == nil {
		return fmt.Errorf("CSV writer is closed")
	}

	if w.headers == nil {
		w.headers = columnsFor(data, w.keys)
		if err := w.writer.Write(w.headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, row := range data {
		record := make([]string, len(w.headers))
		for i, field := range w.headers {
			record[i] = cellString(row[field])
		}
		if err := w.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// WriteRecord writes a single record to CSV file
func (w *CSVWriter) WriteRecord(record map[string]interface{}) error {
	return w.Write([]map[string]interface{}{record})
}

// Flush flushes any buffered data to the underlying writer
func (w *CSVWriter) Flush() error {
	if w.writer != nil {
		w.writer.Flush()
		return w.writer.Error()
	}
	return nil
}

// Close closes the CSV writer
func (w *CSVWriter) Close() error {
	var err error
	if w.writer != nil {
		w.writer.Flush()
		err = w.writer.Error()
		w.writer = nil
	}
	if w.out != nil {
		if cerr := w.out.Close(); err == nil {
			err = cerr
		}
		w.out = nil
	}
	return err
}
