package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	"github.com/RishithDsouza/Hackethon/internal/api/middleware"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

func record(date, state, district string, enr, upd, fail, ops, hours float64) dataset.Record {
	d, err := time.Parse(dataset.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return dataset.Record{
		Date:           d,
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

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	ds := dataset.New("test", []dataset.Record{
		record("2024-01-01", "A", "A1", 60, 20, 2, 2, 8),
		record("2024-01-01", "A", "A2", 40, 10, 1, 1, 8),
		record("2024-01-02", "A", "A1", 50, 30, 3, 2, 8),
		record("2024-01-01", "B", "B1", 30, 90, 10, 1, 4),
		record("2024-01-02", "B", "", 20, 40, 5, 0, 0),
	})
	engine := analytics.NewEngine(ds, analytics.DefaultOptions(), nil)
	return middleware.RequestID(NewRouter(NewHandler(engine, nil)))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestIntentRoutes(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"summary", "/api/v1/summary?state=A", `{"total_enrolments":150,"total_updates":60,"total_failures":6,"records":3}`},
		{"kpis", "/api/v1/kpis?state=A", `{"avg_daily_enrolments":75,"failure_rate":2.86,"avg_service_load":1.46}`},
		{"bar-data ranks states", "/api/v1/bar-data", `{"A":150,"B":50}`},
		{"bar-data ranks districts", "/api/v1/bar-data?state=A", `{"A1":110,"A2":40}`},
		{"heatmap ignores filters", "/api/v1/heatmap-data?state=A", `{"A":150,"B":50}`},
		{"distribution", "/api/v1/distribution?state=B", `{"enrolments":50,"updates":130}`},
		{"timeseries", "/api/v1/timeseries?state=A", `{"dates":["2024-01-01","2024-01-02"],"values":[100,50]}`},
		{"service-load", "/api/v1/service-load?state=A", `{"dates":["2024-01-01","2024-01-02"],"values":[10,15]}`},
		{"forecast with too little history", "/api/v1/forecast", `{"dates":[],"forecast":[],"upper":[],"lower":[]}`},
		{"anomalies with too little history", "/api/v1/timeseries-anomalies", `{"dates":[],"values":[]}`},
		{"districts", "/api/v1/districts?state=A", `["A1","A2"]`},
		{"districts without state", "/api/v1/districts", `[]`},
		{"unknown state", "/api/v1/summary?state=Z", `{"total_enrolments":0,"total_updates":0,"total_failures":0,"records":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.want, rr.Body.String())
		})
	}
}

func TestInsightsRoute(t *testing.T) {
	rr := get(t, newTestServer(t), "/api/v1/insights?state=B")
	require.Equal(t, http.StatusOK, rr.Code)

	var insights []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &insights))
	assert.Equal(t, []string{"Update demand exceeds enrolments.", "Failure rate is high.", "Operational load is high."}, insights)
}

func TestInfoRoute(t *testing.T) {
	rr := get(t, newTestServer(t), "/api/v1/info")
	require.Equal(t, http.StatusOK, rr.Code)

	var info dataset.Info
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, 5, info.Records)
	assert.Equal(t, 2, info.States)
	assert.Equal(t, "2024-01-01", info.FirstDate)
	assert.Equal(t, "2024-01-02", info.LastDate)
}

func TestIntentsRoute(t *testing.T) {
	rr := get(t, newTestServer(t), "/api/v1/intents")
	require.Equal(t, http.StatusOK, rr.Code)

	var intents []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &intents))
	assert.Len(t, intents, len(analytics.Intents()))
	assert.Contains(t, intents, "timeseries-anomalies")
}

func TestQueryFromRequest(t *testing.T) {
	q := queryFromRequest(httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil))
	assert.True(t, q.IsEmpty())

	q = queryFromRequest(httptest.NewRequest(http.MethodGet, "/api/v1/kpis?state=&district=X", nil))
	require.NotNil(t, q.State)
	require.NotNil(t, q.District)
	assert.Equal(t, "", *q.State)
	assert.Equal(t, "X", *q.District)
}

func TestNotFound(t *testing.T) {
	rr := get(t, newTestServer(t), "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeNotFound, apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestMethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/summary", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t)

	rr := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)
}

func TestStatusRoute(t *testing.T) {
	rr := get(t, newTestServer(t), "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"Aadhaar Intelligence System API Running"}`, rr.Body.String())
}

func TestDashboardPaths(t *testing.T) {
	h := newTestServer(t)

	for _, intent := range analytics.Intents() {
		if intent == analytics.IntentInfo {
			continue
		}
		t.Run(string(intent), func(t *testing.T) {
			legacy := get(t, h, "/"+string(intent)+"?state=A")
			versioned := get(t, h, APIPrefix+"/"+string(intent)+"?state=A")
			require.Equal(t, http.StatusOK, legacy.Code, legacy.Body.String())
			assert.JSONEq(t, versioned.Body.String(), legacy.Body.String())
		})
	}

	assert.Equal(t, http.StatusNotFound, get(t, h, "/info").Code)
}

func TestReady_NoDataset(t *testing.T) {
	rr := get(t, NewRouter(NewHandler(nil, nil)), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	h := newTestServer(t)
	_ = get(t, h, "/api/v1/kpis")

	rr := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "enrolpulse_queries_total")
}

type failingRunner struct{ err error }

func (f failingRunner) Run(context.Context, analytics.Intent, analytics.Query) (any, error) {
	return nil, f.err
}

func (f failingRunner) Dataset() *dataset.Dataset { return nil }

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"model failure", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
		{"cancelled", context.Canceled, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"unknown intent", analytics.ErrUnknownIntent, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, NewRouter(NewHandler(failingRunner{err: tt.err}, nil)), "/api/v1/forecast")
			assert.Equal(t, tt.status, rr.Code)

			var apiErr APIError
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}
