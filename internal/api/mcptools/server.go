// Package mcptools exposes the analytics intents as Model Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	"github.com/RishithDsouza/Hackethon/internal/metrics"
)

// Runner answers intents. *analytics.Engine implements it.
type Runner interface {
	Run(ctx context.Context, intent analytics.Intent, q analytics.Query) (any, error)
}

// Stats tracks tool call statistics
type Stats struct {
	TotalRequests   int64
	SuccessfulCalls int64
	FailedCalls     int64
	ToolUsage       map[string]int64
	AverageLatency  time.Duration
}

// Server registers one tool per intent on an MCP server.
type Server struct {
	mcp    *server.MCPServer
	runner Runner
	log    *zap.Logger

	mu    sync.Mutex
	stats Stats
	spent time.Duration
}

type toolDef struct {
	intent      analytics.Intent
	description string
	state       bool
	district    bool
}

var toolDefs = []toolDef{
	{analytics.IntentSummary, "Total enrolments, updates and failures with the record count.", true, true},
	{analytics.IntentKPIs, "Average daily enrolments, failure rate (%) and average service load.", true, true},
	{analytics.IntentBarData, "Summed enrolments per state, or per district when a state is given, largest first.", true, false},
	{analytics.IntentHeatmap, "Summed enrolments per state over the whole dataset.", false, false},
	{analytics.IntentTimeseries, "Daily summed enrolments in date order.", true, true},
	{analytics.IntentServiceLoad, "Daily ratio of update requests to operators.", true, true},
	{analytics.IntentDistribution, "Total enrolments against total updates.", true, true},
	{analytics.IntentForecast, "Linear 30-day enrolment forecast with a ±15% band. Empty with fewer than 5 dates.", true, true},
	{analytics.IntentAnomalies, "Dates whose service load is an outlier. Empty with fewer than 10 dates.", true, true},
	{analytics.IntentInsights, "Three plain-language statements about demand, failures and load.", true, true},
	{analytics.IntentDistricts, "Sorted district names of a state. Empty without a state.", true, false},
	{analytics.IntentInfo, "Record count, state and district counts and the date range of the loaded dataset.", false, false},
}

// ToolName maps an intent to its tool name, e.g. bar-data to bar_data.
func ToolName(intent analytics.Intent) string {
	return strings.ReplaceAll(string(intent), "-", "_")
}

// NewServer creates the MCP server with every intent registered as a tool.
func NewServer(runner Runner, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		mcp: server.NewMCPServer("enrolpulse", version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		runner: runner,
		log:    log,
		stats:  Stats{ToolUsage: make(map[string]int64)},
	}
	for _, def := range toolDefs {
		s.mcp.AddTool(newTool(def), s.handler(def.intent))
	}
	return s
}

func newTool(def toolDef) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(def.description),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	if def.state {
		opts = append(opts, mcp.WithString("state", mcp.Description("State to filter on")))
	}
	if def.district {
		opts = append(opts, mcp.WithString("district", mcp.Description("District to filter on, within the state")))
	}
	return mcp.NewTool(ToolName(def.intent), opts...)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Handler returns the streamable HTTP transport mounted at path.
func (s *Server) Handler(path string) http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(path),
		server.WithStateLess(true),
	)
}

func (s *Server) handler(intent analytics.Intent) server.ToolHandlerFunc {
	name := ToolName(intent)
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := s.runner.Run(ctx, intent, queryFromArguments(req.GetArguments()))
		if err == nil {
			var body []byte
			body, err = json.Marshal(result)
			if err == nil {
				s.record(name, true, time.Since(start))
				return mcp.NewToolResultText(string(body)), nil
			}
		}

		s.record(name, false, time.Since(start))
		s.log.Warn("MCP tool failed", zap.String("tool", name), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
	}
}

func (s *Server) record(tool string, ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	metrics.MCPToolCalls.WithLabelValues(tool, status).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalRequests++
	s.stats.ToolUsage[tool]++
	if ok {
		s.stats.SuccessfulCalls++
	} else {
		s.stats.FailedCalls++
	}
	s.spent += elapsed
	s.stats.AverageLatency = s.spent / time.Duration(s.stats.TotalRequests)
}

// GetStats returns a copy of the call statistics.
func (s *Server) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.ToolUsage = make(map[string]int64, len(s.stats.ToolUsage))
	for k, v := range s.stats.ToolUsage {
		out.ToolUsage[k] = v
	}
	return out
}

// queryFromArguments treats a string argument that is present as a filter, even when empty.
func queryFromArguments(args map[string]any) analytics.Query {
	var q analytics.Query
	if v, ok := args["state"].(string); ok {
		q.State = &v
	}
	if v, ok := args["district"].(string); ok {
		q.District = &v
	}
	return q
}
