// Package health exposes a small observation endpoint for an active
// sync run: liveness plus the Prometheus registry.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edupulse/edusync/pkg/logger"
	"github.com/edupulse/edusync/pkg/metrics"
)

const (
	defaultAddr            = ":9090"
	defaultShutdownTimeout = 5 * time.Second
)

// Status is the payload served on /healthz.
type Status struct {
	Status  string `json:"status"`
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Started string `json:"started_at"`
}

// StatusFunc reports the current run state. It is polled per request.
type StatusFunc func() Status

// Server serves /healthz and /metrics while a sync run is in flight.
type Server struct {
	addr    string
	status  StatusFunc
	log     logger.Logger
	httpSrv *http.Server
}

// NewServer creates a health server. status may be nil, in which case
// /healthz reports a bare "ok".
func NewServer(status StatusFunc, opts ...Option) *Server {
	s := &Server{
		addr:   defaultAddr,
		status: status,
		log:    logger.Named("health"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins serving in a background goroutine. Listen errors other
// than graceful close are logged, not fatal: the sync run outranks its
// observation endpoint.
func (s *Server) Start(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.log.Info(ctx, "health endpoint listening", logger.String("addr", s.addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn(ctx, "health endpoint stopped", logger.Error(err))
		}
	}()
}

// Shutdown stops the server, waiting briefly for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpSrv == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(sctx); err != nil {
		s.log.Warn(ctx, "health endpoint shutdown", logger.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := Status{Status: "ok"}
	if s.status != nil {
		st = s.status()
		if st.Status == "" {
			st.Status = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(st)
}
