// Package rest exposes the analytics intents over HTTP.
package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	"github.com/RishithDsouza/Hackethon/internal/api/middleware"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

// APIPrefix is the path prefix of every intent route.
const APIPrefix = "/api/v1"

// QueryRunner answers intents. *analytics.Engine implements it.
type QueryRunner interface {
	Run(ctx context.Context, intent analytics.Intent, q analytics.Query) (any, error)
	Dataset() *dataset.Dataset
}

// Handler manages HTTP request handlers
type Handler struct {
	runner QueryRunner
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(runner QueryRunner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, logger: logger}
}

// SetupRoutes configures API routes
func SetupRoutes(router *mux.Router, h *Handler) {
	api := router.PathPrefix(APIPrefix).Subrouter()
	for _, intent := range analytics.Intents() {
		api.HandleFunc("/"+string(intent), h.intentHandler(intent)).Methods(http.MethodGet)
	}
	api.HandleFunc("/intents", h.ListIntents).Methods(http.MethodGet)

	// Dashboard paths predate the versioned prefix and stay mounted at the root.
	for _, intent := range analytics.Intents() {
		if intent == analytics.IntentInfo {
			continue
		}
		router.HandleFunc("/"+string(intent), h.intentHandler(intent)).Methods(http.MethodGet)
	}

	router.HandleFunc("/", h.Status).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Live).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
}

// NewRouter returns a router with every route registered.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	SetupRoutes(router, h)
	return router
}

func (h *Handler) intentHandler(intent analytics.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := queryFromRequest(r)
		result, err := h.runner.Run(r.Context(), intent, q)
		if err != nil {
			h.respondRunError(w, r, intent, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// ListIntents handles GET /api/v1/intents
func (h *Handler) ListIntents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, analytics.Intents())
}

func (h *Handler) respondRunError(w http.ResponseWriter, r *http.Request, intent analytics.Intent, err error) {
	reqID := middleware.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, analytics.ErrUnknownIntent):
		respondStructuredError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), reqID)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondStructuredError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "request cancelled before completion", reqID)
	default:
		h.logger.Error("Query failed",
			zap.String("request_id", reqID),
			zap.String("intent", string(intent)),
			zap.Error(err),
		)
		respondStructuredError(w, http.StatusInternalServerError, ErrCodeInternalError, "query failed", reqID)
	}
}

// queryFromRequest maps the state and district parameters onto a query. A parameter that is
// present but empty is still a filter value.
func queryFromRequest(r *http.Request) analytics.Query {
	values := r.URL.Query()
	var q analytics.Query
	if values.Has("state") {
		state := values.Get("state")
		q.State = &state
	}
	if values.Has("district") {
		district := values.Get("district")
		q.District = &district
	}
	return q
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondStructuredError(w, http.StatusNotFound, ErrCodeNotFound,
		"no route for "+r.URL.Path, middleware.RequestIDFromContext(r.Context()))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondStructuredError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
		r.Method+" is not supported on "+r.URL.Path, middleware.RequestIDFromContext(r.Context()))
}
