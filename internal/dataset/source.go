package dataset

import "fmt"

// Source kinds accepted by NewSource.
const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// DefaultTable is the table read by SQL sources when none is configured.
const DefaultTable = "service_usage"

// NewSource builds a Source from configuration values.
// For sqlite an empty dsn falls back to path. CSV options are ignored by SQL sources.
func NewSource(kind, path, dsn, table string, opts ...CSVOption) (Source, error) {
	if table == "" {
		table = DefaultTable
	}
	switch kind {
	case SourceCSV:
		if path == "" {
			return nil, fmt.Errorf("csv source requires a path")
		}
		src := NewCSVSource(path, opts...)
		if err := ValidateEncoding(src.Encoding); err != nil {
			return nil, err
		}
		return src, nil
	case SourceSQLite:
		if dsn == "" {
			dsn = path
		}
		if dsn == "" {
			return nil, fmt.Errorf("sqlite source requires a path or dsn")
		}
		return NewSQLSource(DriverSQLite, dsn, table)
	case SourcePostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres source requires a dsn")
		}
		return NewSQLSource(DriverPostgres, dsn, table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, kind)
	}
}
