// internal/output/yaml.go
package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes records as a YAML sequence when closed.
type YAMLWriter struct {
	out     io.WriteCloser
	records []map[string]interface{}
}

// NewYAMLWriter creates a new YAML writer on out
func NewYAMLWriter(out io.WriteCloser) *YAMLWriter {
	return &YAMLWriter{out: out}
}

// Write buffers records
func (w *YAMLWriter) Write(data []map[string]interface{}) error {
	for _, record := range data {
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord buffers a single record. Values are normalized at once so lazy
// fields are not held open.
func (w *YAMLWriter) WriteRecord(record map[string]interface{}) error {
	if w.out == nil {
		return fmt.Errorf("YAML writer is closed")
	}
	p, err := plain(record)
	if err != nil {
		return fmt.Errorf("failed to normalize record: %w", err)
	}
	w.records = append(w.records, p)
	return nil
}

// Flush is a no-op; the document is written on Close
func (w *YAMLWriter) Flush() error {
	return nil
}

// Close writes the document and closes the output
func (w *YAMLWriter) Close() error {
	if w.out == nil {
		return nil
	}
	defer func() { w.out = nil }()

	records := w.records
	if records == nil {
		records = []map[string]interface{}{}
	}
	enc := yaml.NewEncoder(w.out)
	enc.SetIndent(2)
	err := enc.Encode(records)
	if err == nil {
		err = enc.Close()
	}
	if cerr := w.out.Close(); err == nil {
		err = cerr
	}
	return err
}
