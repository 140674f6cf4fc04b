package shaped

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/goshape/shaper-core/internal/metrics"
	"github.com/goshape/shaper-core/pkg/config"
	"github.com/goshape/shaper-core/pkg/logger"
)

// HTTPServer exposes run management over a JSON API
type HTTPServer struct {
	router   *mux.Router
	store    *RunStore
	executor *RunExecutor
	prom     *metrics.Prom
}

// NewHTTPServer wires the API routes. prom may be nil, in which case
// the /metrics endpoint is not registered.
func NewHTTPServer(store *RunStore, executor *RunExecutor, prom *metrics.Prom) *HTTPServer {
	s := &HTTPServer{
		router:   mux.NewRouter(),
		store:    store,
		executor: executor,
		prom:     prom,
	}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/runs", s.handleCreateRun).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/runs", s.handleListRuns).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/runs/{id}/stop", s.handleStopRun).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/runs/{id}/stats", s.handleRunStats).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/runs/{id}/export", s.handleExportRun).Methods(http.MethodGet)
	if prom != nil {
		s.router.Handle("/metrics", prom.Handler()).Methods(http.MethodGet)
	}

	return s
}

// Handler returns the root handler for an http.Server
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// createRunRequest starts a run from either a named built-in scenario
// or an inline scenario definition.
type createRunRequest struct {
	RunID        string           `json:"run_id,omitempty"`
	ScenarioName string           `json:"scenario_name,omitempty"`
	Scenario     *config.Scenario `json:"scenario,omitempty"`
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	scenario, err := s.resolveScenario(&req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Create(req.RunID, scenario)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	runID := rec.Run.ID
	s.executor.StartRun(rec)

	run, _ := s.store.Snapshot(runID)
	logger.Info("run created", "runId", runID, "scenario", scenario.Name)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": run,
	})
}

func (s *HTTPServer) resolveScenario(req *createRunRequest) (*config.Scenario, error) {
	switch {
	case req.ScenarioName != "" && req.Scenario != nil:
		return nil, fmt.Errorf("scenario_name and scenario are mutually exclusive")
	case req.ScenarioName != "":
		return BuiltinScenario(req.ScenarioName)
	case req.Scenario != nil:
		if err := req.Scenario.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		return req.Scenario, nil
	default:
		return nil, fmt.Errorf("scenario_name or scenario is required")
	}
}

// handleListRuns handles GET /v1/runs
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	runs := s.store.Snapshots(limit)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.store.Snapshot(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": run,
	})
}

// handleStopRun handles POST /v1/runs/{id}/stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	if _, ok := s.store.Snapshot(runID); !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	if !s.executor.StopRun(runID) {
		s.writeError(w, http.StatusConflict, "run is not active")
		return
	}

	logger.Info("run stop requested", "runId", runID)
	run, _ := s.store.Snapshot(runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": run,
	})
}

// handleRunStats handles GET /v1/runs/{id}/stats. The full sample
// history is included when ?history=true.
func (s *HTTPServer) handleRunStats(w http.ResponseWriter, r *http.Request) {
	collector, ok := s.store.GetCollector(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if collector == nil {
		s.writeError(w, http.StatusPreconditionFailed, "statistics not available")
		return
	}

	resp := map[string]any{
		"sample_count": collector.SampleCount(),
	}
	if latest, ok := collector.Latest(); ok {
		resp["latest"] = latest
	}
	if r.URL.Query().Get("history") == "true" {
		resp["history"] = collector.History()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleExportRun handles GET /v1/runs/{id}/export, streaming the run's
// sample history as CSV.
func (s *HTTPServer) handleExportRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	collector, ok := s.store.GetCollector(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if collector == nil {
		s.writeError(w, http.StatusPreconditionFailed, "statistics not available")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+".csv"))
	if err := collector.WriteCSV(w); err != nil {
		logger.Error("CSV export failed", "runId", runID, "error", err)
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
