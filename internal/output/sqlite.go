// internal/output/sqlite.go
package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteOptions defines SQLite-specific options
type SQLiteOptions struct {
	DatabasePath string   `yaml:"database_path" json:"database_path"`
	Table        string   `yaml:"table" json:"table"`
	Keys         []string `yaml:"keys,omitempty" json:"keys,omitempty"`
	BatchSize    int      `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
}

// SQLiteWriter writes records to a SQLite table. The table is created on the
// first flush and gains columns as new keys appear; lists and maps are stored
// as JSON text.
type SQLiteWriter struct {
	db      *sql.DB
	config  SQLiteOptions
	columns map[string]bool
	batch   []map[string]interface{}
	created bool
}

// NewSQLiteWriter creates a new SQLite writer
func NewSQLiteWriter(options SQLiteOptions) (*SQLiteWriter, error) {
	if options.DatabasePath == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	if options.Table == "" {
		options.Table = "posts"
	}
	if err := ValidateSQLiteIdentifier(options.Table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	if options.BatchSize <= 0 {
		options.BatchSize = 100
	}

	if dir := filepath.Dir(options.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", options.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	return &SQLiteWriter{
		db:      db,
		config:  options,
		columns: make(map[string]bool),
	}, nil
}

// Write writes records in batches
func (w *SQLiteWriter) Write(data []map[string]interface{}) error {
	for _, record := range data {
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord queues a record, inserting the batch when it is full
func (w *SQLiteWriter) WriteRecord(record map[string]interface{}) error {
	if w.db == nil {
		return fmt.Errorf("SQLite writer is closed")
	}
	if len(w.config.Keys) > 0 {
		projected := make(map[string]interface{}, len(w.config.Keys))
		for _, k := range w.config.Keys {
			projected[k] = record[k]
		}
		record = projected
	}
	w.batch = append(w.batch, record)
	if len(w.batch) >= w.config.BatchSize {
		return w.Flush()
	}
	return nil
}

// Flush inserts the queued records in one transaction
func (w *SQLiteWriter) Flush() error {
	if len(w.batch) == 0 || w.db == nil {
		return nil
	}
	columns := columnsFor(w.batch, w.config.Keys)
	if err := w.ensureColumns(columns); err != nil {
		return err
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdentifier(c)
		marks[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(w.config.Table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range w.batch {
		args := make([]interface{}, len(columns))
		for i, c := range columns {
			args[i] = convertValue(record[c])
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	w.batch = w.batch[:0]
	return nil
}

// ensureColumns creates the table or adds the columns it lacks.
func (w *SQLiteWriter) ensureColumns(columns []string) error {
	if !w.created {
		if err := w.loadColumns(); err != nil {
			return err
		}
		if len(w.columns) == 0 {
			defs := make([]string, len(columns))
			for i, c := range columns {
				defs[i] = fmt.Sprintf("%s %s", quoteIdentifier(c), w.columnType(c))
			}
			query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(w.config.Table), strings.Join(defs, ", "))
			if _, err := w.db.Exec(query); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
			for _, c := range columns {
				w.columns[c] = true
			}
		}
		w.created = true
	}

	for _, c := range columns {
		if w.columns[c] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdentifier(w.config.Table), quoteIdentifier(c), w.columnType(c))
		if _, err := w.db.Exec(query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", c, err)
		}
		w.columns[c] = true
	}
	return nil
}

// loadColumns reads the columns of an existing table.
func (w *SQLiteWriter) loadColumns() error {
	rows, err := w.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(w.config.Table)))
	if err != nil {
		return fmt.Errorf("failed to inspect table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, ctype      string
			dflt             interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to inspect table: %w", err)
		}
		w.columns[name] = true
	}
	return rows.Err()
}

// columnType infers a column type from the first queued value of column.
func (w *SQLiteWriter) columnType(column string) string {
	for _, record := range w.batch {
		switch record[column].(type) {
		case nil:
			continue
		case int, int64, bool:
			return "INTEGER"
		case float64:
			return "REAL"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// convertValue converts Go values to SQLite-compatible values
func convertValue(value interface{}) interface{} {
	switch v := cellValue(value).(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return v
	}
}

func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// Close flushes remaining records and closes the database
func (w *SQLiteWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.Flush()
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	w.db = nil
	return err
}
