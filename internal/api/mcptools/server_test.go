package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

func testEngine() *analytics.Engine {
	day := func(s string) time.Time {
		d, _ := time.Parse(dataset.DateLayout, s)
		return d
	}
	ds := dataset.New("test", []dataset.Record{
		{Date: day("2024-01-01"), State: "A", District: "A1", HasDistrict: true, NewEnrolments: 60, UpdateRequests: 20, Failures: 2, Operators: 2, ServiceHours: 8},
		{Date: day("2024-01-01"), State: "A", District: "A2", HasDistrict: true, NewEnrolments: 40, UpdateRequests: 10, Failures: 1, Operators: 1, ServiceHours: 8},
		{Date: day("2024-01-01"), State: "B", District: "B1", HasDistrict: true, NewEnrolments: 30, UpdateRequests: 90, Failures: 10, Operators: 1, ServiceHours: 4},
	})
	return analytics.NewEngine(ds, analytics.DefaultOptions(), nil)
}

func call(t *testing.T, s *Server, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	registered := s.MCPServer().GetTool(tool)
	require.NotNil(t, registered, "tool %s not registered", tool)

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := registered.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "bar_data", ToolName(analytics.IntentBarData))
	assert.Equal(t, "timeseries_anomalies", ToolName(analytics.IntentAnomalies))
	assert.Equal(t, "kpis", ToolName(analytics.IntentKPIs))
}

func TestEveryIntentIsATool(t *testing.T) {
	s := NewServer(testEngine(), "test", nil)
	tools := s.MCPServer().ListTools()

	assert.Len(t, tools, len(analytics.Intents()))
	for _, intent := range analytics.Intents() {
		assert.Contains(t, tools, ToolName(intent))
	}
}

func TestToolsList_JSONRPC(t *testing.T) {
	s := NewServer(testEngine(), "test", nil)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := s.MCPServer().HandleMessage(context.Background(), msg)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"heatmap_data"`)
	assert.Contains(t, string(raw), `"name":"forecast"`)
}

func TestCallTool(t *testing.T) {
	s := NewServer(testEngine(), "test", nil)

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"summary", map[string]any{"state": "A"}, `{"total_enrolments":100,"total_updates":30,"total_failures":3,"records":2}`},
		{"bar_data", nil, `{"A":100,"B":30}`},
		{"bar_data", map[string]any{"state": "A"}, `{"A1":60,"A2":40}`},
		{"districts", map[string]any{"state": "A"}, `["A1","A2"]`},
		{"districts", nil, `[]`},
		{"forecast", nil, `{"dates":[],"forecast":[],"upper":[],"lower":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			assert.False(t, res.IsError)
			assert.JSONEq(t, tt.want, text(t, res))
		})
	}

	stats := s.GetStats()
	assert.Equal(t, int64(len(tests)), stats.TotalRequests)
	assert.Equal(t, int64(len(tests)), stats.SuccessfulCalls)
	assert.Equal(t, int64(2), stats.ToolUsage["bar_data"])
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, analytics.Intent, analytics.Query) (any, error) {
	return nil, errors.New("model unavailable")
}

func TestCallTool_Error(t *testing.T) {
	s := NewServer(failingRunner{}, "test", nil)

	res := call(t, s, "forecast", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "model unavailable")
	assert.Equal(t, int64(1), s.GetStats().FailedCalls)
}

func TestQueryFromArguments(t *testing.T) {
	q := queryFromArguments(nil)
	assert.True(t, q.IsEmpty())

	q = queryFromArguments(map[string]any{"state": "", "district": 3})
	require.NotNil(t, q.State)
	assert.Equal(t, "", *q.State)
	assert.Nil(t, q.District)
}
