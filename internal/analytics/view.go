package analytics

import (
	"sort"

	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

// Query carries the optional dimension filters of an inbound request.
// A nil field means "no filter on that dimension"; a pointer to "" filters for the empty string.
type Query struct {
	State    *string `json:"state,omitempty"`
	District *string `json:"district,omitempty"`
}

// ForState returns a query filtered on state only.
func ForState(state string) Query {
	return Query{State: &state}
}

// ForDistrict returns a query filtered on state and district.
func ForDistrict(state, district string) Query {
	return Query{State: &state, District: &district}
}

// IsEmpty reports whether the query carries no filter.
func (q Query) IsEmpty() bool {
	return q.State == nil && q.District == nil
}

// View is a filtered, read-only projection of the dataset owned by one request.
type View struct {
	rows []dataset.Record
}

// NewView wraps rows as a view. The rows must not be mutated afterwards.
func NewView(rows []dataset.Record) View {
	return View{rows: rows}
}

// Filter projects ds onto the rows matching q. Filter values are normalized like dataset
// labels and then compared by exact string equality.
// Without filters the view aliases the snapshot rows; otherwise the matching rows are copied.
func Filter(ds *dataset.Dataset, q Query) View {
	all := ds.Records()
	if q.IsEmpty() {
		return View{rows: all}
	}

	var state, district string
	if q.State != nil {
		state = dataset.NormalizeLabel(*q.State)
	}
	if q.District != nil {
		district = dataset.NormalizeLabel(*q.District)
	}

	rows := make([]dataset.Record, 0)
	for _, r := range all {
		if q.State != nil && r.State != state {
			continue
		}
		if q.District != nil && (!r.HasDistrict || r.District != district) {
			continue
		}
		rows = append(rows, r)
	}
	return View{rows: rows}
}

// Len returns the number of rows in the view.
func (v View) Len() int {
	return len(v.rows)
}

// Rows returns the view rows. Callers must not mutate them.
func (v View) Rows() []dataset.Record {
	return v.rows
}

// Sum adds up a measure over the view, skipping missing values.
func (v View) Sum(m Measure) float64 {
	total := 0.0
	for _, r := range v.rows {
		if x := m.Value(r); !dataset.Missing(x) {
			total += x
		}
	}
	return total
}

// Mean averages a measure over the view, skipping missing values.
// ok is false when no row carried a value.
func (v View) Mean(m Measure) (mean float64, ok bool) {
	total, n := 0.0, 0
	for _, r := range v.rows {
		if x := m.Value(r); !dataset.Missing(x) {
			total += x
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// DistinctDates counts the distinct calendar dates in the view.
func (v View) DistinctDates() int {
	seen := make(map[string]struct{})
	for _, r := range v.rows {
		seen[r.DateKey()] = struct{}{}
	}
	return len(seen)
}

// Districts returns the sorted distinct non-null districts of the view.
func (v View) Districts() []string {
	seen := make(map[string]struct{})
	for _, r := range v.rows {
		if r.HasDistrict {
			seen[r.District] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
