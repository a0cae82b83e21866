// Package dataset holds the service-usage snapshot the analytics engine reads from.
//
// A Dataset is loaded once at process start from a Source (CSV file, SQLite table or
// Postgres table) and never mutated afterwards. Readers share it without locks; every
// query derives its own view from Records().
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrUnsupportedSource is returned when the configured source kind is unknown.
	ErrUnsupportedSource = errors.New("unsupported dataset source")

	// ErrMissingColumn is returned when a required column is absent from the source.
	ErrMissingColumn = errors.New("missing required column")

	// ErrUnsupportedEncoding is returned for a CSV character set with no decoder.
	ErrUnsupportedEncoding = errors.New("unsupported csv encoding")

	// ErrInvalidDate is returned when a date cell cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
)

// Columns is the column set every source must provide.
var Columns = []string{
	"date",
	"state",
	"district",
	"new_enrolments",
	"update_requests",
	"failures",
	"operators",
	"service_hours",
}

// Record is one row of the dataset.
//
// Numeric fields hold math.NaN() when the source cell was empty or non-numeric.
// HasDistrict is false when the district cell was empty/null.
type Record struct {
	Date           time.Time
	State          string
	District       string
	HasDistrict    bool
	NewEnrolments  float64
	UpdateRequests float64
	Failures       float64
	Operators      float64
	ServiceHours   float64
}

// DateKey returns the record date as an ISO calendar date.
func (r Record) DateKey() string {
	return r.Date.Format(DateLayout)
}

// DateLayout is the ISO calendar-date layout used for keys and serialization.
const DateLayout = "2006-01-02"

// Source produces the raw records of a dataset.
type Source interface {
	// Name identifies the source in logs and the info endpoint.
	Name() string

	// Read returns every record in source order.
	Read(ctx context.Context) ([]Record, error)
}

// Dataset is the immutable snapshot of records.
type Dataset struct {
	records  []Record
	source   string
	loadedAt time.Time
}

// Info describes a loaded dataset.
type Info struct {
	Source    string    `json:"source" yaml:"source"`
	Records   int       `json:"records" yaml:"records"`
	States    int       `json:"states" yaml:"states"`
	Districts int       `json:"districts" yaml:"districts"`
	FirstDate string    `json:"first_date,omitempty" yaml:"first_date,omitempty"`
	LastDate  string    `json:"last_date,omitempty" yaml:"last_date,omitempty"`
	LoadedAt  time.Time `json:"loaded_at" yaml:"loaded_at"`
}

// Load reads src exactly once and returns the snapshot. Any error is fatal for callers
// that serve queries.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	if src == nil {
		return nil, fmt.Errorf("load dataset: %w", ErrUnsupportedSource)
	}
	records, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset from %s: %w", src.Name(), err)
	}
	return New(src.Name(), records), nil
}

// New wraps records into a Dataset. The slice is copied so later changes by the caller
// cannot reach the snapshot.
func New(source string, records []Record) *Dataset {
	owned := make([]Record, len(records))
	copy(owned, records)
	return &Dataset{
		records:  owned,
		source:   source,
		loadedAt: time.Now().UTC(),
	}
}

// Records returns the snapshot rows. Callers must treat the slice as read-only.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return d.records
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Info summarises the snapshot.
func (d *Dataset) Info() Info {
	info := Info{}
	if d == nil {
		return info
	}
	info.Source = d.source
	info.Records = len(d.records)
	info.LoadedAt = d.loadedAt

	states := make(map[string]struct{})
	districts := make(map[string]struct{})
	var first, last time.Time
	for i, r := range d.records {
		states[r.State] = struct{}{}
		if r.HasDistrict {
			districts[r.State+"\x00"+r.District] = struct{}{}
		}
		if i == 0 || r.Date.Before(first) {
			first = r.Date
		}
		if i == 0 || r.Date.After(last) {
			last = r.Date
		}
	}
	info.States = len(states)
	info.Districts = len(districts)
	if len(d.records) > 0 {
		info.FirstDate = first.Format(DateLayout)
		info.LastDate = last.Format(DateLayout)
	}
	return info
}

// States returns the distinct state names in ascending order.
func (d *Dataset) States() []string {
	seen := make(map[string]struct{})
	for _, r := range d.Records() {
		seen[r.State] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Missing reports whether v is the missing-value marker.
func Missing(v float64) bool {
	return math.IsNaN(v)
}
