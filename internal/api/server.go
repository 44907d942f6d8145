// Package api provides the local HTTP control API for the syncfix daemon.
// The CLI and any front-end talk to the daemon only through these routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/health"
	"github.com/syncfix/syncfix/internal/infra/metrics"
)

const defaultLogLimit = 100

// Coordinator is the run coordinator. Implemented by trigger.Coordinator.
type Coordinator interface {
	Status() domain.Status
	TriggerNow() (runID string, ok bool)
	ResetCooldown()
	ApplyCooldown()
	StartApp(ctx context.Context, app domain.AppID) error
	StopApp(ctx context.Context, app domain.AppID) error
}

// AppLister reports the running state of both applications.
// Implemented by process.Controller.
type AppLister interface {
	States(ctx context.Context) []domain.AppState
}

// HealthReporter exposes the latest health results.
// Implemented by health.Checker.
type HealthReporter interface {
	Statuses() []health.Status
	IsHealthy() bool
}

// LogSource returns recent log events. Implemented by eventlog.Ring.
type LogSource interface {
	Recent(limit int) []domain.LogEvent
}

// Server is the syncfix HTTP API server.
type Server struct {
	coord          Coordinator
	apps           AppLister
	health         HealthReporter
	logs           LogSource
	version        string
	corsOrigins    []string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(coord Coordinator, apps AppLister, hc HealthReporter, logs LogSource, version string) *Server {
	return &Server{coord: coord, apps: apps, health: hc, logs: logs, version: version}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetCORSOrigins sets the browser origins allowed to call the API.
// An origin matches with or without a port suffix.
func (s *Server) SetCORSOrigins(origins []string) { s.corsOrigins = origins }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.corsMiddleware)
	r.Use(countRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"version": s.version,
			})
		})
		r.Post("/trigger", s.handleTrigger)
		r.Post("/cooldown/reset", s.handleCooldownReset)
		r.Post("/cooldown/apply", s.handleCooldownApply)
		r.Get("/apps", s.handleApps)
		r.Post("/apps/{app}/start", s.handleAppStart)
		r.Post("/apps/{app}/stop", s.handleAppStop)
		r.Get("/logs", s.handleLogs)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Handlers ───────────────────────────────────────────────────────────────

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Healthy bool            `json:"healthy"`
	Checks  []health.Status `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Healthy: true, Checks: []health.Status{}}
	if s.health != nil {
		resp.Healthy = s.health.IsHealthy()
		resp.Checks = s.health.Statuses()
	}
	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Status())
}

// TriggerResponse is the body of a successful POST /api/trigger.
type TriggerResponse struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.coord.TriggerNow()
	if !ok {
		writeError(w, http.StatusConflict, domain.ErrRunInProgress.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, TriggerResponse{RunID: runID})
}

func (s *Server) handleCooldownReset(w http.ResponseWriter, r *http.Request) {
	s.coord.ResetCooldown()
	writeJSON(w, http.StatusOK, s.coord.Status())
}

func (s *Server) handleCooldownApply(w http.ResponseWriter, r *http.Request) {
	s.coord.ApplyCooldown()
	writeJSON(w, http.StatusOK, s.coord.Status())
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.apps.States(r.Context()))
}

func (s *Server) handleAppStart(w http.ResponseWriter, r *http.Request) {
	s.appAction(w, r, s.coord.StartApp)
}

func (s *Server) handleAppStop(w http.ResponseWriter, r *http.Request) {
	s.appAction(w, r, s.coord.StopApp)
}

func (s *Server) appAction(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, domain.AppID) error) {
	app, err := domain.ParseAppID(chi.URLParam(r, "app"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := fn(r.Context(), app); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.appState(r.Context(), app))
}

func (s *Server) appState(ctx context.Context, app domain.AppID) domain.AppState {
	for _, st := range s.apps.States(ctx) {
		if st.App == app {
			return st
		}
	}
	return domain.AppState{App: app}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events := s.logs.Recent(limit)
	if events == nil {
		events = []domain.LogEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownApp):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAppNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: msg, Type: "error"}})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// corsMiddleware adds CORS headers for the configured local origins.
// State-changing requests from any other browser origin are refused
// before they reach a handler; requests without an Origin (the CLI) pass.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !s.originAllowed(origin) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
		} else if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.corsOrigins {
		if o == "*" || origin == o || strings.HasPrefix(origin, o+":") {
			return true
		}
	}
	return false
}

// countRequests records syncfix_api_requests_total by route pattern.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	})
}
