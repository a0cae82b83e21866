package analytics

import (
	"fmt"

	"github.com/RishithDsouza/Hackethon/internal/analytics/ml"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

// AnomalySet holds the flagged dates and their daily mean load ratios.
type AnomalySet struct {
	Dates  []string  `json:"dates" yaml:"dates"`
	Values []float64 `json:"values" yaml:"values"`
}

// OutlierScorer labels each value of series as outlier (true) or inlier.
// Implementations must be deterministic for a given seed.
type OutlierScorer interface {
	ScoreOutliers(series []float64, contamination float64, seed int64) ([]bool, error)
}

// IsolationForestScorer scores outliers with a seeded isolation forest.
type IsolationForestScorer struct {
	Trees int
}

// ScoreOutliers implements OutlierScorer.
func (s IsolationForestScorer) ScoreOutliers(series []float64, contamination float64, seed int64) ([]bool, error) {
	cfg := ml.DefaultConfig()
	cfg.Seed = seed
	if s.Trees > 0 {
		cfg.NumTrees = s.Trees
	}

	points := make([]ml.DataPoint, len(series))
	for i, v := range series {
		points[i] = ml.DataPoint{Value: v}
	}
	results, err := ml.NewIsolationForest(cfg).FitPredict(points, contamination)
	if err != nil {
		return nil, err
	}

	labels := make([]bool, len(results))
	for i, r := range results {
		labels[i] = r.IsAnomaly
	}
	return labels, nil
}

// AnomalyOptions controls outlier detection.
type AnomalyOptions struct {
	MinPoints     int
	Contamination float64
	Seed          int64
}

func emptyAnomalies() AnomalySet {
	return AnomalySet{Dates: []string{}, Values: []float64{}}
}

// DetectAnomalies averages the per-row load ratio of v per date and flags outlying dates.
// The minimum-points gate counts distinct dates; dates whose rows carry no computable ratio
// are then left out of the scored series. Flagged dates are returned in ascending date order
// with values rounded to two decimals.
func DetectAnomalies(v View, scorer OutlierScorer, opts AnomalyOptions) (AnomalySet, error) {
	daily := Aggregate(v, ByDate, LoadRatio, Mean)

	dates := make([]string, 0, len(daily))
	series := make([]float64, 0, len(daily))
	for _, b := range daily {
		if dataset.Missing(b.Value) {
			continue
		}
		dates = append(dates, b.Key)
		series = append(series, b.Value)
	}
	if v.DistinctDates() < opts.MinPoints || len(series) == 0 {
		return emptyAnomalies(), nil
	}

	labels, err := scorer.ScoreOutliers(series, opts.Contamination, opts.Seed)
	if err != nil {
		return emptyAnomalies(), fmt.Errorf("score outliers: %w", err)
	}
	if len(labels) != len(series) {
		return emptyAnomalies(), fmt.Errorf("score outliers: got %d labels for %d values", len(labels), len(series))
	}

	out := emptyAnomalies()
	for i, outlier := range labels {
		if outlier {
			out.Dates = append(out.Dates, dates[i])
			out.Values = append(out.Values, Round2(series[i]))
		}
	}
	return out, nil
}
