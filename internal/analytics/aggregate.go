package analytics

import (
	"math"
	"sort"

	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

// Measure is a numeric value extracted (or derived) from a record.
type Measure struct {
	Name  string
	Value func(r dataset.Record) float64
}

// Base measures and the derived per-row load ratio.
var (
	NewEnrolments  = Measure{Name: "new_enrolments", Value: func(r dataset.Record) float64 { return r.NewEnrolments }}
	UpdateRequests = Measure{Name: "update_requests", Value: func(r dataset.Record) float64 { return r.UpdateRequests }}
	Failures       = Measure{Name: "failures", Value: func(r dataset.Record) float64 { return r.Failures }}
	Operators      = Measure{Name: "operators", Value: func(r dataset.Record) float64 { return r.Operators }}
	ServiceHours   = Measure{Name: "service_hours", Value: func(r dataset.Record) float64 { return r.ServiceHours }}

	// LoadRatio is update_requests / (operators × service_hours) for one row.
	LoadRatio = Measure{Name: "load_ratio", Value: func(r dataset.Record) float64 {
		return SafeRatio(r.UpdateRequests, r.Operators*r.ServiceHours)
	}}
)

// Dimension is a grouping key.
type Dimension string

const (
	ByDistrict Dimension = "district"
	ByState    Dimension = "state"
	ByDate     Dimension = "date"
)

// key returns the grouping key of r; ok is false for null keys, which are left out of every group.
func (d Dimension) key(r dataset.Record) (string, bool) {
	switch d {
	case ByDistrict:
		return r.District, r.HasDistrict
	case ByState:
		return r.State, true
	case ByDate:
		return r.DateKey(), true
	default:
		return "", false
	}
}

// Reducer folds the values of a group into one number.
type Reducer string

const (
	Sum  Reducer = "sum"
	Mean Reducer = "mean"
)

// Bucket is one group of an aggregate.
type Bucket struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	// Count is the number of non-missing values folded into Value.
	Count int `json:"count"`
}

type accumulator struct {
	sum float64
	n   int
}

// Aggregate groups v by dim and reduces m with red. Buckets are returned in ascending key
// order, which for ByDate is chronological. A mean over a group with no values is NaN.
func Aggregate(v View, dim Dimension, m Measure, red Reducer) []Bucket {
	groups := make(map[string]*accumulator)
	for _, r := range v.rows {
		k, ok := dim.key(r)
		if !ok {
			continue
		}
		acc, exists := groups[k]
		if !exists {
			acc = &accumulator{}
			groups[k] = acc
		}
		if x := m.Value(r); !dataset.Missing(x) {
			acc.sum += x
			acc.n++
		}
	}

	buckets := make([]Bucket, 0, len(groups))
	for k, acc := range groups {
		b := Bucket{Key: k, Count: acc.n}
		switch red {
		case Mean:
			if acc.n == 0 {
				b.Value = math.NaN()
			} else {
				b.Value = acc.sum / float64(acc.n)
			}
		default:
			b.Value = acc.sum
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

// AggregateRatio groups v by dim and divides the per-group sum of num by the per-group
// sum of den, with the denominator floored.
func AggregateRatio(v View, dim Dimension, num, den Measure) []Bucket {
	nums := Aggregate(v, dim, num, Sum)
	dens := Aggregate(v, dim, den, Sum)

	denByKey := make(map[string]float64, len(dens))
	for _, b := range dens {
		denByKey[b.Key] = b.Value
	}
	out := make([]Bucket, len(nums))
	for i, b := range nums {
		out[i] = Bucket{Key: b.Key, Value: SafeRatio(b.Value, denByKey[b.Key]), Count: b.Count}
	}
	return out
}

// Ranked returns a copy of buckets ordered by value, largest first. Equal values keep
// ascending key order so output is deterministic.
func Ranked(buckets []Bucket) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	return out
}
