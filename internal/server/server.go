// Package server exposes the dashboard core over HTTP: chart health
// snapshots, monitor history, the service dependency graph and a few
// operational triggers.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/panelkit/panelkit/internal/app"
	"github.com/panelkit/panelkit/pkg/registry"
)

// New builds the HTTP handler for the assembled application. A nil logger
// discards logs.
func New(a *app.App, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &server{app: a, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/charts", s.handleCharts)
		r.Get("/history", s.handleHistory)
		r.Get("/registry/graph", s.handleGraph)
		r.Get("/registry/graph.svg", s.handleGraphSVG)
		r.Post("/tick", s.handleTick)
		r.Post("/cache/clear", s.handleCacheClear)
	})
	return r
}

type server struct {
	app    *app.App
	logger *log.Logger
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCharts returns every chart record with its state name.
func (s *server) handleCharts(w http.ResponseWriter, r *http.Request) {
	type chartStatus struct {
		ContainerID      string   `json:"container_id"`
		Kind             string   `json:"kind"`
		State            string   `json:"state"`
		LastChecked      string   `json:"last_checked,omitempty"`
		RecoveryAttempts int      `json:"recovery_attempts"`
		ErrorLog         []string `json:"error_log,omitempty"`
	}

	records := s.app.Monitor.Snapshot()
	out := make([]chartStatus, 0, len(records))
	for _, rec := range records {
		status := chartStatus{
			ContainerID:      rec.ContainerID,
			Kind:             rec.Kind,
			State:            rec.State.String(),
			RecoveryAttempts: rec.RecoveryAttempts,
			ErrorLog:         rec.ErrorLog,
		}
		if !rec.LastChecked.IsZero() {
			status.LastChecked = rec.LastChecked.Format(time.RFC3339)
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	recent, err := s.app.History.Recent(r.Context(), n)
	if err != nil {
		s.logger.Warn("history read failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Registry.DependencyGraph())
}

func (s *server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := registry.RenderSVG(r.Context(), s.app.Registry.ToDOT())
	if err != nil {
		s.logger.Warn("graph render failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "graph render failed"})
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

// handleTick runs one out-of-band audit.
func (s *server) handleTick(w http.ResponseWriter, r *http.Request) {
	s.app.Monitor.Tick(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ticked"})
}

func (s *server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Fetcher.ClearCache(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
