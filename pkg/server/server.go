package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/metrics"
	"github.com/agentrt/runtime/pkg/runtimeapi"
)

// HTTPServer is the agent runtime's HTTP server: chi router over
// runtimeapi.Service, a shutdown path, and a metrics handler. Grounded
// on the teacher's initialize/startTransport/cleanup lifecycle shape
// (pkg/server/server.go), narrowed from dual gRPC+REST transports with
// config hot-reload to the single HTTP listener §6.2 names — the ADL
// hot-reload the teacher's config watcher drove is handled upstream by
// agentloader.Loader.Watch instead.
type HTTPServer struct {
	cfg     config.RuntimeConfig
	svc     *runtimeapi.Service
	metrics *metrics.Metrics
	server  *http.Server
}

// New builds an HTTPServer over an already-wired Service and metrics
// sink. mtr may be nil to disable metrics recording; the /metrics route
// is then not registered.
func New(cfg config.RuntimeConfig, svc *runtimeapi.Service, mtr *metrics.Metrics) *HTTPServer {
	return &HTTPServer{cfg: cfg, svc: svc, metrics: mtr}
}

// Start binds the listener and serves in the background. It returns
// once the listener is open; Serve errors after that point are logged,
// not returned (the caller observes shutdown through ctx/Stop instead).
func (s *HTTPServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("agent runtime listening", "addr", addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("agent runtime server stopped", "error", err)
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
