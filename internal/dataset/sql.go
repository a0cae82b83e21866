package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads records from a table in SQLite or Postgres.
type SQLSource struct {
	Driver string
	DSN    string
	Table  string
}

// NewSQLSource validates the driver and table name and returns a source.
func NewSQLSource(driver, dsn, table string) (*SQLSource, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: sql driver %q", ErrUnsupportedSource, driver)
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLSource{Driver: driver, DSN: dsn, Table: table}, nil
}

// Name returns the source identifier. The DSN is left out since it may carry credentials.
func (s *SQLSource) Name() string {
	return s.Driver + ":" + s.Table
}

// recordRow is the scan target for one table row.
type recordRow struct {
	Date           sqlDate         `db:"date"`
	State          sql.NullString  `db:"state"`
	District       sql.NullString  `db:"district"`
	NewEnrolments  sql.NullFloat64 `db:"new_enrolments"`
	UpdateRequests sql.NullFloat64 `db:"update_requests"`
	Failures       sql.NullFloat64 `db:"failures"`
	Operators      sql.NullFloat64 `db:"operators"`
	ServiceHours   sql.NullFloat64 `db:"service_hours"`
}

// Read queries the whole table in storage order.
func (s *SQLSource) Read(ctx context.Context) ([]Record, error) {
	db, err := sqlx.ConnectContext(ctx, s.Driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.Driver, err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		"SELECT date, state, district, new_enrolments, update_requests, failures, operators, service_hours FROM %s",
		s.Table,
	)

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var row recordRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(records)+1, err)
		}
		records = append(records, row.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.Table, err)
	}
	return records, nil
}

func (r recordRow) toRecord() Record {
	state, _ := parseLabel(r.State.String)
	district, hasDistrict := parseLabel(r.District.String)
	return Record{
		Date:           r.Date.Time,
		State:          state,
		District:       district,
		HasDistrict:    r.District.Valid && hasDistrict,
		NewEnrolments:  nullFloat(r.NewEnrolments),
		UpdateRequests: nullFloat(r.UpdateRequests),
		Failures:       nullFloat(r.Failures),
		Operators:      nullFloat(r.Operators),
		ServiceHours:   nullFloat(r.ServiceHours),
	}
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// sqlDate scans DATE/TIMESTAMP columns as well as text dates.
type sqlDate struct {
	time.Time
}

// Scan implements sql.Scanner.
func (d *sqlDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = truncateDay(v)
		return nil
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case []byte:
		t, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case nil:
		return fmt.Errorf("%w: null", ErrInvalidDate)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, src)
	}
}
