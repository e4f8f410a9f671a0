// internal/output/excel.go
package output

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Excel limits
const (
	DefaultExcelMaxSheetRows  = 1048576
	DefaultExcelMaxCellLength = 32767
)

// ExcelConfig defines the Excel writer settings
type ExcelConfig struct {
	FilePath  string   `yaml:"file_path" json:"file_path"`
	SheetName string   `yaml:"sheet_name" json:"sheet_name"`
	Keys      []string `yaml:"keys,omitempty" json:"keys,omitempty"`
}

// ExcelWriter writes records as rows of one worksheet. The header row is
// taken from the first record and the workbook is saved on Close.
type ExcelWriter struct {
	file        *excelize.File
	config      ExcelConfig
	headers     []string
	row         int
	headerStyle int
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter(config ExcelConfig) (*ExcelWriter, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("Excel file path is required")
	}
	if config.SheetName == "" {
		config.SheetName = "Sheet1"
	}

	file := excelize.NewFile()
	if defaultSheet := file.GetSheetName(0); defaultSheet != config.SheetName {
		if err := file.SetSheetName(defaultSheet, config.SheetName); err != nil {
			file.Close()
			return nil, fmt.Errorf("invalid sheet name: %w", err)
		}
	}

	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	return &ExcelWriter{
		file:        file,
		config:      config,
		row:         1,
		headerStyle: style,
	}, nil
}

// Write writes data to the worksheet
func (w *ExcelWriter) Write(data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if w.headers == nil {
		w.headers = columnsFor(data, w.config.Keys)
		if err := w.writeHeaders(); err != nil {
			return err
		}
	}
	for _, record := range data {
		if err := w.writeRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord writes a single record to Excel
func (w *ExcelWriter) WriteRecord(record map[string]interface{}) error {
	return w.Write([]map[string]interface{}{record})
}

// Flush is a no-op; the workbook is saved on Close
func (w *ExcelWriter) Flush() error {
	return nil
}

// Close saves the workbook
func (w *ExcelWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.SaveAs(w.config.FilePath)
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

// writeHeaders writes the header row
func (w *ExcelWriter) writeHeaders() error {
	row := make([]interface{}, len(w.headers))
	for i, h := range w.headers {
		row[i] = h
	}
	if err := w.file.SetSheetRow(w.config.SheetName, "A1", &row); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(w.headers), 1)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStyle(w.config.SheetName, "A1", last, w.headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	w.row = 2
	return nil
}

// writeRecord writes a single record to the worksheet
func (w *ExcelWriter) writeRecord(record map[string]interface{}) error {
	if w.row > DefaultExcelMaxSheetRows {
		return fmt.Errorf("sheet %s is full", w.config.SheetName)
	}
	row := make([]interface{}, len(w.headers))
	for i, h := range w.headers {
		v := cellValue(record[h])
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > DefaultExcelMaxCellLength {
			v = string([]rune(s)[:DefaultExcelMaxCellLength])
		}
		row[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.config.SheetName, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}
