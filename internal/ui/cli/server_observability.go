package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	coreapp "nexalint/internal/core/app"
	"nexalint/internal/ui/report"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityServer exposes Prometheus metrics, a health check and the
// latest report while a run or watch session is active.
type ObservabilityServer struct {
	addr   string
	app    *coreapp.App
	health *coreapp.HealthService
	srv    *http.Server
	ln     net.Listener
}

func NewObservabilityServer(addr string, a *coreapp.App) *ObservabilityServer {
	return &ObservabilityServer{addr: addr, app: a, health: coreapp.NewHealthService(a)}
}

func (s *ObservabilityServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.serveHealth)
	mux.HandleFunc("GET /report", s.serveReport)
	return mux
}

func (s *ObservabilityServer) serveHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// serveReport answers 404 until the first run completes.
func (s *ObservabilityServer) serveReport(w http.ResponseWriter, _ *http.Request) {
	result, ok := s.app.LastResult()
	if !ok {
		http.Error(w, "no completed run yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(result, versionString))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

// Start binds the listener before returning so address errors surface to the
// caller. Serving continues in the background until Stop.
func (s *ObservabilityServer) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.routes(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("observability server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *ObservabilityServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
