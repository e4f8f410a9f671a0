// internal/output/json.go
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter streams records as one indented JSON array.
type JSONWriter struct {
	out   io.WriteCloser
	count int
}

// NewJSONWriter creates a new JSON writer on out
func NewJSONWriter(out io.WriteCloser) *JSONWriter {
	return &JSONWriter{out: out}
}

// Write writes records to the array
func (w *JSONWriter) Write(data []map[string]interface{}) error {
	for _, record := range data {
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord appends a single record to the array
func (w *JSONWriter) WriteRecord(record map[string]interface{}) error {
	if w.out == nil {
		return fmt.Errorf("JSON writer is closed")
	}
	b, err := marshalJSON(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, b, "  ", "  "); err != nil {
		return fmt.Errorf("failed to indent record: %w", err)
	}

	sep := ",\n  "
	if w.count == 0 {
		sep = "[\n  "
	}
	if _, err := io.WriteString(w.out, sep); err != nil {
		return err
	}
	if _, err := w.out.Write(indented.Bytes()); err != nil {
		return err
	}
	w.count++
	return nil
}

// Flush is a no-op; records are written as they arrive
func (w *JSONWriter) Flush() error {
	return nil
}

// Close terminates the array and closes the output
func (w *JSONWriter) Close() error {
	if w.out == nil {
		return nil
	}
	tail := "\n]\n"
	if w.count == 0 {
		tail = "[]\n"
	}
	_, err := io.WriteString(w.out, tail)
	if cerr := w.out.Close(); err == nil {
		err = cerr
	}
	w.out = nil
	return err
}

// JSONLinesWriter writes one compact JSON record per line.
type JSONLinesWriter struct {
	out io.WriteCloser
}

// NewJSONLinesWriter creates a new newline delimited JSON writer on out
func NewJSONLinesWriter(out io.WriteCloser) *JSONLinesWriter {
	return &JSONLinesWriter{out: out}
}

// Write writes records, one per line
func (w *JSONLinesWriter) Write(data []map[string]interface{}) error {
	for _, record := range data {
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord writes a single record line
func (w *JSONLinesWriter) WriteRecord(record map[string]interface{}) error {
	if w.out == nil {
		return fmt.Errorf("JSON lines writer is closed")
	}
	b, err := marshalJSON(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = w.out.Write(append(b, '\n'))
	return err
}

// Flush is a no-op; lines are written as they arrive
func (w *JSONLinesWriter) Flush() error {
	return nil
}

// Close closes the output
func (w *JSONLinesWriter) Close() error {
	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	return err
}
