// internal/output/manager.go
package output

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/valpere/FBScrapexter/internal/extract"
)

// Stdout is where streaming formats go when no file is named.
var Stdout io.Writer = os.Stdout

// Open returns the writer for opts. An existing file is refused unless
// Overwrite is set; SQLite databases are appended to instead.
func Open(opts Options) (Writer, error) {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if !opts.Format.IsValid() {
		return nil, fmt.Errorf("unsupported output format: %s", opts.Format)
	}

	toStdout := opts.File == "" || opts.File == "-"
	if toStdout && !opts.Format.Streams() {
		return nil, fmt.Errorf("the %s format needs an output file", opts.Format)
	}
	if !toStdout && !opts.Overwrite && opts.Format != FormatSQLite {
		if _, err := os.Stat(opts.File); err == nil {
			return nil, fmt.Errorf("refusing to overwrite %s: %w", opts.File, os.ErrExist)
		}
	}

	switch opts.Format {
	case FormatSQLite:
		return NewSQLiteWriter(SQLiteOptions{DatabasePath: opts.File, Table: opts.Table, Keys: opts.Keys})
	case FormatExcel:
		return NewExcelWriter(ExcelConfig{FilePath: opts.File, SheetName: opts.Sheet, Keys: opts.Keys})
	}

	var out io.WriteCloser
	if toStdout {
		out = nopCloser{Stdout}
	} else {
		if dir := filepath.Dir(opts.File); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		out = f
	}

	switch opts.Format {
	case FormatNDJSON:
		return NewJSONLinesWriter(out), nil
	case FormatCSV:
		return NewCSVWriter(out, opts.Keys), nil
	case FormatYAML:
		return NewYAMLWriter(out), nil
	default:
		return NewJSONWriter(out), nil
	}
}

// Copy writes every post of seq to w and returns how many were written. It
// stops at the first error, from the sequence or from w.
func Copy(w Writer, seq iter.Seq2[extract.Post, error]) (int, error) {
	n := 0
	for post, err := range seq {
		if err != nil {
			return n, err
		}
		if err := w.WriteRecord(post); err != nil {
			return n, fmt.Errorf("failed to write record: %w", err)
		}
		n++
	}
	return n, w.Flush()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
