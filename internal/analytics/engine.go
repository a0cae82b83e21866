package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/RishithDsouza/Hackethon/internal/analytics/forecast"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
	"github.com/RishithDsouza/Hackethon/internal/metrics"
)

// Intent names a query the engine answers.
type Intent string

const (
	IntentSummary      Intent = "summary"
	IntentKPIs         Intent = "kpis"
	IntentBarData      Intent = "bar-data"
	IntentHeatmap      Intent = "heatmap-data"
	IntentTimeseries   Intent = "timeseries"
	IntentServiceLoad  Intent = "service-load"
	IntentDistribution Intent = "distribution"
	IntentForecast     Intent = "forecast"
	IntentAnomalies    Intent = "timeseries-anomalies"
	IntentInsights     Intent = "insights"
	IntentDistricts    Intent = "districts"
	IntentInfo         Intent = "info"
)

// ErrUnknownIntent is returned by Run for an intent outside Intents().
var ErrUnknownIntent = errors.New("unknown intent")

// Intents lists every intent Run accepts, in dashboard order.
func Intents() []Intent {
	return []Intent{
		IntentSummary,
		IntentKPIs,
		IntentBarData,
		IntentHeatmap,
		IntentTimeseries,
		IntentServiceLoad,
		IntentDistribution,
		IntentForecast,
		IntentAnomalies,
		IntentInsights,
		IntentDistricts,
		IntentInfo,
	}
}

// ParseIntent validates name.
func ParseIntent(name string) (Intent, error) {
	for _, i := range Intents() {
		if string(i) == name {
			return i, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIntent, name)
}

// Options configures the statistical routines.
type Options struct {
	ForecastHorizon      int
	ForecastMinPoints    int
	ForecastBand         float64
	AnomalyMinPoints     int
	AnomalyContamination float64
	AnomalySeed          int64
	AnomalyTrees         int

	// TrendFitter and OutlierScorer replace the default models when set.
	TrendFitter   forecast.TrendFitter
	OutlierScorer OutlierScorer
}

// DefaultOptions returns a 30-day forecast with a ±15% band needing 5 dates, and 10%
// contamination anomaly detection seeded with 42 needing 10 dates.
func DefaultOptions() Options {
	return Options{
		ForecastHorizon:      30,
		ForecastMinPoints:    5,
		ForecastBand:         0.15,
		AnomalyMinPoints:     10,
		AnomalyContamination: 0.1,
		AnomalySeed:          42,
		AnomalyTrees:         100,
	}
}

// TimeSeries is the daily enrolment series of a view.
type TimeSeries struct {
	Dates      []string `json:"dates" yaml:"dates"`
	Enrolments []int64  `json:"values" yaml:"values"`
}

// ServiceLoad is the daily update-to-operator ratio of a view.
type ServiceLoad struct {
	Dates []string  `json:"dates" yaml:"dates"`
	Load  []float64 `json:"values" yaml:"values"`
}

// Engine answers dashboard queries over one immutable dataset snapshot. It is safe for
// concurrent use: every query derives its own view and nothing is written after NewEngine.
type Engine struct {
	ds     *dataset.Dataset
	opts   Options
	logger *zap.Logger
	tracer trace.Tracer
}

// NewEngine creates an engine over ds.
func NewEngine(ds *dataset.Dataset, opts Options, logger *zap.Logger) *Engine {
	if opts.TrendFitter == nil {
		opts.TrendFitter = forecast.OLS{}
	}
	if opts.OutlierScorer == nil {
		opts.OutlierScorer = IsolationForestScorer{Trees: opts.AnomalyTrees}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ds:     ds,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("github.com/RishithDsouza/Hackethon/internal/analytics"),
	}
}

// Dataset returns the snapshot the engine reads.
func (e *Engine) Dataset() *dataset.Dataset {
	return e.ds
}

// Run executes intent for q. Data conditions never produce errors; only an unknown intent,
// a cancelled context or a failing model does.
func (e *Engine) Run(ctx context.Context, intent Intent, q Query) (any, error) {
	ctx, span := e.tracer.Start(ctx, "analytics."+string(intent), trace.WithAttributes(queryAttributes(q)...))
	defer span.End()

	start := time.Now()
	result, err := e.dispatch(ctx, intent, q)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.QueriesTotal.WithLabelValues(string(intent), status).Inc()
	if !errors.Is(err, ErrUnknownIntent) {
		metrics.QueryDuration.WithLabelValues(string(intent)).Observe(elapsed.Seconds())
	}

	e.logger.Debug("Query executed",
		zap.String("intent", string(intent)),
		zap.Stringp("state", q.State),
		zap.Stringp("district", q.District),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
	return result, err
}

func (e *Engine) dispatch(ctx context.Context, intent Intent, q Query) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch intent {
	case IntentSummary:
		return e.Summary(q), nil
	case IntentKPIs:
		return e.KPIs(q), nil
	case IntentBarData:
		return e.BarData(q), nil
	case IntentHeatmap:
		return e.Heatmap(), nil
	case IntentTimeseries:
		return e.Timeseries(q), nil
	case IntentServiceLoad:
		return e.ServiceLoad(q), nil
	case IntentDistribution:
		return e.Distribution(q), nil
	case IntentForecast:
		return e.Forecast(q)
	case IntentAnomalies:
		return e.Anomalies(q)
	case IntentInsights:
		return e.Insights(q), nil
	case IntentDistricts:
		return e.Districts(q), nil
	case IntentInfo:
		return e.ds.Info(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
	}
}

func queryAttributes(q Query) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if q.State != nil {
		attrs = append(attrs, attribute.String("query.state", *q.State))
	}
	if q.District != nil {
		attrs = append(attrs, attribute.String("query.district", *q.District))
	}
	return attrs
}

// View returns the rows of the snapshot matching q.
func (e *Engine) View(q Query) View {
	return Filter(e.ds, q)
}

// Summary returns raw totals and the row count.
func (e *Engine) Summary(q Query) Summary {
	return Summarize(e.View(q))
}

// KPIs returns the operational metrics.
func (e *Engine) KPIs(q Query) KPIs {
	return ComputeKPIs(e.View(q))
}

// BarData ranks summed enrolments, largest first. With a state filter the bars are that
// state's districts; otherwise they are states. The district filter is ignored.
func (e *Engine) BarData(q Query) *orderedmap.OrderedMap[string, int64] {
	dim := ByState
	view := e.View(Query{})
	if q.State != nil {
		dim = ByDistrict
		view = e.View(Query{State: q.State})
	}
	return bucketMap(Ranked(Aggregate(view, dim, NewEnrolments, Sum)))
}

// Heatmap returns summed enrolments per state over the whole snapshot, keyed in ascending
// state order.
func (e *Engine) Heatmap() *orderedmap.OrderedMap[string, int64] {
	return bucketMap(Aggregate(e.View(Query{}), ByState, NewEnrolments, Sum))
}

func bucketMap(buckets []Bucket) *orderedmap.OrderedMap[string, int64] {
	m := orderedmap.New[string, int64](orderedmap.WithCapacity[string, int64](len(buckets)))
	for _, b := range buckets {
		m.Set(b.Key, RoundInt(b.Value))
	}
	return m
}

// Timeseries returns daily enrolment totals in ascending date order.
func (e *Engine) Timeseries(q Query) TimeSeries {
	daily := Aggregate(e.View(q), ByDate, NewEnrolments, Sum)
	ts := TimeSeries{
		Dates:      make([]string, len(daily)),
		Enrolments: make([]int64, len(daily)),
	}
	for i, b := range daily {
		ts.Dates[i] = b.Key
		ts.Enrolments[i] = RoundInt(b.Value)
	}
	return ts
}

// ServiceLoad returns, per date, summed update requests over summed operators.
func (e *Engine) ServiceLoad(q Query) ServiceLoad {
	daily := AggregateRatio(e.View(q), ByDate, UpdateRequests, Operators)
	sl := ServiceLoad{
		Dates: make([]string, len(daily)),
		Load:  make([]float64, len(daily)),
	}
	for i, b := range daily {
		sl.Dates[i] = b.Key
		sl.Load[i] = Round2(b.Value)
	}
	return sl
}

// Distribution returns the enrolment/update split.
func (e *Engine) Distribution(q Query) Distribution {
	return Distribute(e.View(q))
}

// Forecast projects daily enrolments with the configured trend model.
func (e *Engine) Forecast(q Query) (ForecastResult, error) {
	res, err := Forecast(e.View(q), e.opts.TrendFitter, ForecastOptions{
		Horizon:   e.opts.ForecastHorizon,
		MinPoints: e.opts.ForecastMinPoints,
		Band:      e.opts.ForecastBand,
	})
	if err == nil && len(res.Dates) == 0 {
		metrics.InsufficientData.WithLabelValues("forecast").Inc()
	}
	return res, err
}

// Anomalies flags outlying daily load ratios with the configured outlier model.
func (e *Engine) Anomalies(q Query) (AnomalySet, error) {
	view := e.View(q)
	res, err := DetectAnomalies(view, e.opts.OutlierScorer, AnomalyOptions{
		MinPoints:     e.opts.AnomalyMinPoints,
		Contamination: e.opts.AnomalyContamination,
		Seed:          e.opts.AnomalySeed,
	})
	if err != nil {
		return res, err
	}
	if view.DistinctDates() < e.opts.AnomalyMinPoints {
		metrics.InsufficientData.WithLabelValues("anomaly").Inc()
	}
	metrics.AnomaliesFlagged.Add(float64(len(res.Dates)))
	return res, nil
}

// Insights returns the three rule statements.
func (e *Engine) Insights(q Query) []string {
	return GenerateInsights(e.View(q))
}

// Districts lists the districts of the queried state. Without a state the list is empty.
func (e *Engine) Districts(q Query) []string {
	if q.State == nil {
		return []string{}
	}
	return e.View(Query{State: q.State}).Districts()
}
