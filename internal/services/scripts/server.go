// Package scripts hosts the Healing Home Scripts browser-facing service.
package scripts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/healinghome/internal/platform/timeouts"
	"github.com/louisbranch/healinghome/internal/services/scripts/catalog"
	"github.com/louisbranch/healinghome/internal/services/scripts/platform/httpx"
	"github.com/louisbranch/healinghome/internal/services/scripts/platform/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config defines startup inputs for the scripts service.
type Config struct {
	HTTPAddr string
	// DataURL points view sessions at a remote base URL serving /scripts.json.
	// Empty means sessions read the resource this service serves.
	DataURL string
	// DataFile replaces the built-in situations file.
	DataFile  string
	WatchData bool
	// Source overrides the resolved view-session data source when set.
	Source catalog.Source

	SessionIdle  time.Duration
	SessionSweep time.Duration
	MaxSessions  int
	FetchTimeout time.Duration
	Logger       *log.Logger
}

// Server hosts the scripts HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	service    *Service
}

// NewHandler builds the root handler with its middleware chain.
func NewHandler(service *Service) (http.Handler, error) {
	if service == nil {
		return nil, errors.New("scripts service is required")
	}
	handler := httpx.Chain(service.routes(),
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(service.logger),
		httpx.RequireSameOrigin(),
	)
	return otelhttp.NewHandler(handler, "healinghome.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	), nil
}

// NewServer validates config and constructs a scripts server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	service, err := NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("build scripts service: %w", err)
	}
	handler, err := NewHandler(service)
	if err != nil {
		service.Close()
		return nil, fmt.Errorf("compose scripts handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		service:  service,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("scripts server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	runCtx, stopRun := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.service.Run(runCtx)
	}()
	defer func() {
		stopRun()
		wg.Wait()
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	log.Printf("scripts server listening addr=%s", s.httpAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown scripts http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve scripts http: %w", err)
	}
}

// Close closes open server resources and unmounts every view session.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	s.service.Close()
}
