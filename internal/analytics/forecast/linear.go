package forecast

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptySeries is returned when fitting a trend on no observations.
var ErrEmptySeries = errors.New("cannot fit trend on empty series")

// Predictor evaluates a fitted trend at an index.
type Predictor interface {
	PredictAt(index float64) float64
}

// TrendFitter fits a Predictor on an evenly spaced series indexed 0..n-1.
type TrendFitter interface {
	Fit(series []float64) (Predictor, error)
}

// LinearTrend is y = Intercept + Slope*x.
type LinearTrend struct {
	Intercept float64
	Slope     float64
	// RSquared is the coefficient of determination of the fit, NaN for a flat series.
	RSquared float64
}

// PredictAt returns the trend value at index x.
func (t LinearTrend) PredictAt(x float64) float64 {
	return t.Intercept + t.Slope*x
}

// OLS fits LinearTrend by ordinary least squares with the sequence index as the only feature.
type OLS struct{}

// Fit implements TrendFitter.
func (OLS) Fit(series []float64) (Predictor, error) {
	return FitLinear(series)
}

// FitLinear fits y over x = 0, 1, ..., len(series)-1.
func FitLinear(series []float64) (LinearTrend, error) {
	if len(series) == 0 {
		return LinearTrend{}, ErrEmptySeries
	}
	if len(series) == 1 {
		return LinearTrend{Intercept: series[0], RSquared: math.NaN()}, nil
	}

	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(xs, series, nil, false)
	return LinearTrend{
		Intercept: alpha,
		Slope:     beta,
		RSquared:  stat.RSquared(xs, series, nil, alpha, beta),
	}, nil
}

// Project evaluates p at the horizon indices following n observations: n, n+1, ..., n+horizon-1.
func Project(p Predictor, n, horizon int) []float64 {
	if horizon <= 0 {
		return []float64{}
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = p.PredictAt(float64(n + i))
	}
	return out
}
