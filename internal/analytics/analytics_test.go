package analytics

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

func day(s string) time.Time {
	t, err := time.Parse(dataset.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(date, state, district string, enr, upd, fail, ops, hours float64) dataset.Record {
	return dataset.Record{
		Date:           day(date),
		State:          state,
		District:       district,
		HasDistrict:    district != "",
		NewEnrolments:  enr,
		UpdateRequests: upd,
		Failures:       fail,
		Operators:      ops,
		ServiceHours:   hours,
	}
}

func sampleDataset() *dataset.Dataset {
	return dataset.New("test", []dataset.Record{
		rec("2024-01-01", "A", "A1", 60, 20, 2, 2, 8),
		rec("2024-01-01", "A", "A2", 40, 10, 1, 1, 8),
		rec("2024-01-02", "A", "A1", 50, 30, 3, 2, 8),
		rec("2024-01-01", "B", "B1", 30, 90, 10, 1, 4),
		rec("2024-01-02", "B", "", 20, 40, 5, 0, 0),
	})
}

func TestFilter(t *testing.T) {
	ds := sampleDataset()

	tests := []struct {
		name  string
		query Query
		want  int
	}{
		{"no filter", Query{}, 5},
		{"state", ForState("A"), 3},
		{"state and district", ForDistrict("A", "A1"), 2},
		{"district of other state", ForDistrict("B", "A1"), 0},
		{"unknown state", ForState("Z"), 0},
		{"empty string is a value", ForState(""), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(ds, tt.query).Len())
		})
	}
}

func TestFilter_Conjunctive(t *testing.T) {
	ds := sampleDataset()
	all := Filter(ds, Query{}).Rows()
	byState := Filter(ds, ForState("A")).Rows()
	byDistrict := Filter(ds, ForDistrict("A", "A1")).Rows()

	assert.Subset(t, all, byState)
	assert.Subset(t, byState, byDistrict)
}

func TestFilter_DoesNotMutateDataset(t *testing.T) {
	ds := sampleDataset()
	before := append([]dataset.Record(nil), ds.Records()...)

	_ = Filter(ds, ForState("A"))
	NewEngine(ds, DefaultOptions(), nil).KPIs(Query{})

	assert.Equal(t, before, ds.Records())
}

func TestSummarize(t *testing.T) {
	ds := sampleDataset()

	s := Summarize(Filter(ds, ForState("A")))
	assert.Equal(t, Summary{TotalEnrolments: 150, TotalUpdates: 60, TotalFailures: 6, Records: 3}, s)

	empty := Summarize(Filter(ds, ForState("Z")))
	assert.Equal(t, Summary{}, empty)
}

func TestSummarize_SkipsMissing(t *testing.T) {
	ds := dataset.New("test", []dataset.Record{
		rec("2024-01-01", "A", "A1", 10, 1, 0, 1, 1),
		rec("2024-01-02", "A", "A1", math.NaN(), 1, 0, 1, 1),
	})
	s := Summarize(Filter(ds, Query{}))
	assert.Equal(t, int64(10), s.TotalEnrolments)
	assert.Equal(t, 2, s.Records)
}

func TestComputeKPIs(t *testing.T) {
	ds := sampleDataset()

	k := ComputeKPIs(Filter(ds, ForState("A")))
	// 150 enrolments over 2 dates
	assert.Equal(t, 75.0, k.AvgDailyEnrolments)
	// 6 / 210 * 100
	assert.Equal(t, 2.86, k.FailureRate)
	// mean(20/16, 10/8, 30/16) = (1.25 + 1.25 + 1.875) / 3
	assert.Equal(t, 1.46, k.AvgServiceLoad)
}

func TestComputeKPIs_EmptyView(t *testing.T) {
	k := ComputeKPIs(Filter(sampleDataset(), ForState("Z")))
	assert.Equal(t, KPIs{}, k)
}

func TestComputeKPIs_ZeroOperators(t *testing.T) {
	ds := dataset.New("test", []dataset.Record{
		rec("2024-01-01", "A", "A1", 10, 5, 1, 0, 0),
	})
	v := Filter(ds, Query{})

	k := ComputeKPIs(v)
	assert.Equal(t, 5.0, k.AvgServiceLoad)
	assert.False(t, math.IsNaN(k.AvgServiceLoad))
	assert.False(t, math.IsInf(k.AvgServiceLoad, 0))

	assert.Len(t, GenerateInsights(v), 3)
}

func TestFailureRate_ScaleInvariant(t *testing.T) {
	base := dataset.New("test", []dataset.Record{rec("2024-01-01", "A", "A1", 400, 600, 37, 1, 1)})
	scaled := dataset.New("test", []dataset.Record{rec("2024-01-01", "A", "A1", 4000, 6000, 370, 1, 1)})

	assert.Equal(t,
		ComputeKPIs(Filter(base, Query{})).FailureRate,
		ComputeKPIs(Filter(scaled, Query{})).FailureRate,
	)
}

func TestSafeRatio(t *testing.T) {
	assert.Equal(t, 5.0, SafeRatio(5, 0))
	assert.Equal(t, 5.0, SafeRatio(5, 0.5))
	assert.Equal(t, 2.5, SafeRatio(5, 2))
	assert.True(t, math.IsNaN(SafeRatio(math.NaN(), 2)))
	assert.True(t, math.IsNaN(SafeRatio(1, math.NaN())))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 2.0, Round2(2.0))
	assert.Equal(t, 1.46, Round2(1.4583))
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, int64(2), RoundInt(2.5))
	assert.Equal(t, int64(4), RoundInt(3.5))
	assert.Equal(t, int64(-3), RoundInt(-3.4))
}

func TestAggregate(t *testing.T) {
	v := Filter(sampleDataset(), Query{})

	byState := Aggregate(v, ByState, NewEnrolments, Sum)
	require.Len(t, byState, 2)
	assert.Equal(t, Bucket{Key: "A", Value: 150, Count: 3}, byState[0])
	assert.Equal(t, Bucket{Key: "B", Value: 50, Count: 2}, byState[1])

	byDistrict := Aggregate(v, ByDistrict, NewEnrolments, Sum)
	keys := make([]string, len(byDistrict))
	for i, b := range byDistrict {
		keys[i] = b.Key
	}
	assert.Equal(t, []string{"A1", "A2", "B1"}, keys)

	byDate := Aggregate(v, ByDate, UpdateRequests, Mean)
	require.Len(t, byDate, 2)
	assert.Equal(t, "2024-01-01", byDate[0].Key)
	assert.Equal(t, 40.0, byDate[0].Value)
}

func TestAggregate_MeanOfMissingIsNaN(t *testing.T) {
	ds := dataset.New("test", []dataset.Record{
		rec("2024-01-01", "A", "A1", math.NaN(), 1, 0, 1, 1),
	})
	out := Aggregate(Filter(ds, Query{}), ByDate, NewEnrolments, Mean)
	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0].Value))
	assert.Equal(t, 0, out[0].Count)
}

func TestRanked(t *testing.T) {
	in := []Bucket{{Key: "c", Value: 5}, {Key: "a", Value: 10}, {Key: "b", Value: 5}}
	out := Ranked(in)

	assert.Equal(t, []Bucket{{Key: "a", Value: 10}, {Key: "b", Value: 5}, {Key: "c", Value: 5}}, out)
	assert.Equal(t, "c", in[0].Key, "input must not be reordered")
}

func TestGenerateInsights(t *testing.T) {
	ds := sampleDataset()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "enrolment heavy",
			query: ForDistrict("A", "A2"),
			want:  []string{InsightEnrolmentDemand, InsightFailureOK, InsightLoadHigh},
		},
		{
			name:  "update heavy",
			query: ForState("B"),
			want:  []string{InsightUpdateDemand, InsightFailureHigh, InsightLoadHigh},
		},
		{
			name:  "empty view",
			query: ForState("Z"),
			want:  []string{InsightEnrolmentDemand, InsightFailureOK, InsightLoadBalanced},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateInsights(Filter(ds, tt.query)))
		})
	}
}

func TestInsightWording(t *testing.T) {
	assert.Equal(t, []string{
		"Update demand exceeds enrolments.",
		"Enrolments dominate demand.",
		"Failure rate is high.",
		"Failure rate acceptable.",
		"Operational load is high.",
		"Operational load balanced.",
	}, []string{
		InsightUpdateDemand, InsightEnrolmentDemand,
		InsightFailureHigh, InsightFailureOK,
		InsightLoadHigh, InsightLoadBalanced,
	})
}

func TestGenerateInsights_HighFailure(t *testing.T) {
	ds := dataset.New("test", []dataset.Record{
		rec("2024-01-01", "A", "A1", 50, 50, 6, 10, 10),
	})
	got := GenerateInsights(Filter(ds, Query{}))
	assert.Equal(t, []string{InsightEnrolmentDemand, InsightFailureHigh, InsightLoadBalanced}, got)
}

func TestFilter_NormalizesQueryValues(t *testing.T) {
	data := "date,state,district,new_enrolments,update_requests,failures,operators,service_hours\n" +
		"2024-01-01,Odisha,Bhadrake\u0301,1,2,3,4,5\n" +
		"2024-01-01, Goa ,Panaji,1,2,3,4,5\n"
	records, err := dataset.ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	ds := dataset.New("test", records)

	tests := []struct {
		name  string
		query Query
		want  int
	}{
		{"decomposed district as in file", ForDistrict("Odisha", "Bhadrake\u0301"), 1},
		{"composed district", ForDistrict("Odisha", "Bhadrak\u00e9"), 1},
		{"padded state as in file", ForState(" Goa "), 1},
		{"trimmed state", ForState("Goa"), 1},
		{"other state", ForState("Kerala"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(ds, tt.query).Len())
		})
	}
}

func TestView_Districts(t *testing.T) {
	v := Filter(sampleDataset(), ForState("B"))
	assert.Equal(t, []string{"B1"}, v.Districts())
}
