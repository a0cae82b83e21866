package analytics

import (
	"fmt"
	"time"

	"github.com/RishithDsouza/Hackethon/internal/analytics/forecast"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

// ForecastResult is a projection as parallel sequences. All four are empty when the
// history is too short.
type ForecastResult struct {
	Dates    []string `json:"dates" yaml:"dates"`
	Forecast []int64  `json:"forecast" yaml:"forecast"`
	Upper    []int64  `json:"upper" yaml:"upper"`
	Lower    []int64  `json:"lower" yaml:"lower"`
}

// ForecastOptions controls the projection.
type ForecastOptions struct {
	Horizon   int     // days projected after the last observed date
	MinPoints int     // fewer distinct dates yield an empty result
	Band      float64 // static band half-width as a fraction, 0.15 = ±15%
}

func emptyForecast() ForecastResult {
	return ForecastResult{
		Dates:    []string{},
		Forecast: []int64{},
		Upper:    []int64{},
		Lower:    []int64{},
	}
}

// Forecast fits fitter on the daily enrolment totals of v (index as the only feature) and
// projects opts.Horizon days after the last observed date.
//
// The band is a fixed percentage of the unrounded point forecast, not a confidence
// interval. Negative projections are not clamped.
func Forecast(v View, fitter forecast.TrendFitter, opts ForecastOptions) (ForecastResult, error) {
	daily := Aggregate(v, ByDate, NewEnrolments, Sum)
	if len(daily) < opts.MinPoints || len(daily) == 0 {
		return emptyForecast(), nil
	}

	series := make([]float64, len(daily))
	for i, b := range daily {
		series[i] = b.Value
	}
	last, err := time.Parse(dataset.DateLayout, daily[len(daily)-1].Key)
	if err != nil {
		return emptyForecast(), fmt.Errorf("parse last observed date: %w", err)
	}

	predictor, err := fitter.Fit(series)
	if err != nil {
		return emptyForecast(), fmt.Errorf("fit trend: %w", err)
	}

	predictions := forecast.Project(predictor, len(series), opts.Horizon)
	out := ForecastResult{
		Dates:    make([]string, len(predictions)),
		Forecast: make([]int64, len(predictions)),
		Upper:    make([]int64, len(predictions)),
		Lower:    make([]int64, len(predictions)),
	}
	for i, p := range predictions {
		out.Dates[i] = last.AddDate(0, 0, i+1).Format(dataset.DateLayout)
		out.Forecast[i] = RoundInt(p)
		out.Upper[i] = RoundInt(p * (1 + opts.Band))
		out.Lower[i] = RoundInt(p * (1 - opts.Band))
	}
	return out, nil
}
