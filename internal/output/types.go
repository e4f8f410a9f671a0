// internal/output/types.go
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/FBScrapexter/internal/extract"
)

// OutputFormat represents supported output formats
type OutputFormat string

const (
	FormatJSON   OutputFormat = "json"
	FormatNDJSON OutputFormat = "ndjson"
	FormatCSV    OutputFormat = "csv"
	FormatYAML   OutputFormat = "yaml"
	FormatSQLite OutputFormat = "sqlite"
	FormatExcel  OutputFormat = "excel"
)

// ValidOutputFormats returns all valid output format values
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{FormatJSON, FormatNDJSON, FormatCSV, FormatYAML, FormatSQLite, FormatExcel}
}

// IsValid checks if the output format is valid
func (of OutputFormat) IsValid() bool {
	for _, valid := range ValidOutputFormats() {
		if of == valid {
			return true
		}
	}
	return false
}

// Streams reports whether the format writes to a byte stream, so stdout can
// receive it.
func (of OutputFormat) Streams() bool {
	return of != FormatSQLite && of != FormatExcel
}

// GetFileExtension returns the appropriate file extension for the format
func (of OutputFormat) GetFileExtension() string {
	switch of {
	case FormatJSON:
		return ".json"
	case FormatNDJSON:
		return ".ndjson"
	case FormatCSV:
		return ".csv"
	case FormatYAML:
		return ".yaml"
	case FormatSQLite:
		return ".db"
	case FormatExcel:
		return ".xlsx"
	default:
		return ".txt"
	}
}

// GetMimeType returns the MIME type for the format
func (of OutputFormat) GetMimeType() string {
	switch of {
	case FormatJSON:
		return "application/json"
	case FormatNDJSON:
		return "application/x-ndjson"
	case FormatCSV:
		return "text/csv"
	case FormatYAML:
		return "application/yaml"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Writer defines the interface for record sinks. Records are posts or the
// profile, page and group records.
type Writer interface {
	Write(data []map[string]interface{}) error
	WriteRecord(record map[string]interface{}) error
	Flush() error
	Close() error
}

// Options selects and configures a Writer.
type Options struct {
	Format OutputFormat `yaml:"format" json:"format"`

	// File is the destination; "" or "-" means stdout
	File string `yaml:"file" json:"file"`

	// Keys fixes the column order of tabular formats
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`

	Table string `yaml:"table,omitempty" json:"table,omitempty"`
	Sheet string `yaml:"sheet,omitempty" json:"sheet,omitempty"`

	// Overwrite allows replacing an existing file
	Overwrite bool `yaml:"overwrite" json:"overwrite"`
}

// SQL identifier validation
const MaxSQLiteIdentifierLength = 1000

var (
	// SQL identifier regex: starts with letter or underscore, contains letters, digits, underscores
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// Reserved SQL keywords for SQLite (from https://www.sqlite.org/lang_keywords.html)
	sqliteReservedWords = map[string]bool{
		"ABORT": true, "ACTION": true, "ADD": true, "AFTER": true, "ALL": true, "ALTER": true, "ANALYZE": true, "AND": true,
		"AS": true, "ASC": true, "ATTACH": true, "AUTOINCREMENT": true, "BEFORE": true, "BEGIN": true, "BETWEEN": true,
		"BY": true, "CASCADE": true, "CASE": true, "CAST": true, "CHECK": true, "COLLATE": true, "COLUMN": true,
		"COMMIT": true, "CONFLICT": true, "CONSTRAINT": true, "CREATE": true, "CROSS": true, "CURRENT": true,
		"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true, "DATABASE": true, "DEFAULT": true,
		"DEFERRABLE": true, "DEFERRED": true, "DELETE": true, "DESC": true, "DETACH": true, "DISTINCT": true,
		"DROP": true, "EACH": true, "ELSE": true, "END": true, "ESCAPE": true, "EXCEPT": true, "EXCLUSIVE": true,
		"EXISTS": true, "EXPLAIN": true, "FAIL": true, "FOR": true, "FOREIGN": true, "FROM": true, "FULL": true,
		"GLOB": true, "GROUP": true, "HAVING": true, "IF": true, "IGNORE": true, "IMMEDIATE": true, "IN": true,
		"INDEX": true, "INDEXED": true, "INITIALLY": true, "INNER": true, "INSERT": true, "INSTEAD": true, "INTERSECT": true,
		"INTO": true, "IS": true, "ISNULL": true, "JOIN": true, "KEY": true, "LEFT": true, "LIKE": true, "LIMIT": true,
		"MATCH": true, "NATURAL": true, "NO": true, "NOT": true, "NOTNULL": true, "NULL": true, "OF": true, "OFFSET": true,
		"ON": true, "OR": true, "ORDER": true, "OUTER": true, "PLAN": true, "PRAGMA": true, "PRIMARY": true, "QUERY": true,
		"RAISE": true, "RECURSIVE": true, "REFERENCES": true, "REGEXP": true, "REINDEX": true, "RELEASE": true,
		"RENAME": true, "REPLACE": true, "RESTRICT": true, "RIGHT": true, "ROLLBACK": true, "ROW": true, "SAVEPOINT": true,
		"SELECT": true, "SET": true, "TABLE": true, "TEMP": true, "TEMPORARY": true, "THEN": true, "TO": true, "TRANSACTION": true,
		"TRIGGER": true, "UNION": true, "UNIQUE": true, "UPDATE": true, "USING": true, "VACUUM": true, "VALUES": true,
		"VIEW": true, "VIRTUAL": true, "WHEN": true, "WHERE": true, "WITH": true, "WITHOUT": true,
	}
)

// ValidateSQLiteIdentifier validates SQLite-specific identifier constraints
func ValidateSQLiteIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(identifier) > MaxSQLiteIdentifierLength {
		return fmt.Errorf("identifier too long (max %d characters): %s", MaxSQLiteIdentifierLength, identifier)
	}

	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}

	if sqliteReservedWords[strings.ToUpper(identifier)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", identifier)
	}

	return nil
}

// columnsFor returns keys when set, otherwise the union of the records' keys
// in post key order.
func columnsFor(records []map[string]interface{}, keys []string) []string {
	if len(keys) > 0 {
		return keys
	}
	union := extract.Post{}
	for _, record := range records {
		for k := range record {
			union[k] = nil
		}
	}
	return union.Keys()
}

// cellValue renders a value for one table cell. Scalars pass through, times
// become RFC 3339 and lists or maps become JSON.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64:
		return x
	case json.Number:
		return x.String()
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil
		}
		return x.Format(time.RFC3339)
	}

	b, err := marshalJSON(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	if s := string(b); s != "null" {
		return s
	}
	return nil
}

// cellString renders a value as cell text.
func cellString(v interface{}) string {
	switch x := cellValue(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// marshalJSON encodes without HTML escaping, so markup in post text stays
// readable.
func marshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// plain turns a record into maps, slices and scalars by way of JSON, so
// encoders without JSON hooks see what the JSON output shows.
func plain(record map[string]interface{}) (map[string]interface{}, error) {
	b, err := marshalJSON(record)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
