// ABOUTME: Gateway orchestrator that wires the auth core to the HTTP server
// ABOUTME: Manages the store, metrics exporter, and health endpoints lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/classifieds/backoffice/internal/auth"
	"github.com/classifieds/backoffice/internal/config"
	"github.com/classifieds/backoffice/internal/metrics"
	"github.com/classifieds/backoffice/internal/store"
)

// Store is the persistence the gateway serves from.
type Store interface {
	store.AccountStore
	store.AuditStore
}

// pinger is implemented by stores that can report readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

// Gateway owns the HTTP server and the auth components behind it.
type Gateway struct {
	config     *config.Config
	store      Store
	codec      *auth.Codec
	gate       *auth.Gate
	guard      *auth.Guard
	login      *auth.LoginFlow
	refresh    *auth.RefreshFlow
	exporter   *metrics.Exporter
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore opens the SQLite store at the configured path.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway backed by the SQLite store named in cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	gw, err := NewWithStore(cfg, s, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return gw, nil
}

// NewWithStore creates a Gateway over an existing store. The gateway takes
// ownership of s and closes it on Shutdown if it implements io.Closer.
func NewWithStore(cfg *config.Config, s Store, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var exporter *metrics.Exporter
	var observer auth.Observer
	if cfg.Metrics.Enabled {
		exp, err := metrics.NewPrometheusExporter()
		if err != nil {
			return nil, fmt.Errorf("creating metrics exporter: %w", err)
		}
		authMetrics, err := metrics.NewAuthMetrics(exp.MeterProvider())
		if err != nil {
			return nil, fmt.Errorf("creating auth metrics: %w", err)
		}
		exporter = exp
		observer = authMetrics
	}

	codec := auth.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	gate := auth.NewGate(codec, s, observer, logger)

	gw := &Gateway{
		config:   cfg,
		store:    s,
		codec:    codec,
		gate:     gate,
		guard:    auth.NewGuard(gate, logger),
		login:    auth.NewLoginFlow(codec, s, s, loginConfig(cfg), observer, logger),
		refresh:  auth.NewRefreshFlow(codec, s, s, observer, logger),
		exporter: exporter,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)

	if exporter != nil {
		mux.Handle(cfg.Metrics.Path, exporter.Handler())
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	gw.registerHTTPAPIRoutes(mux)
	gw.handler = mux

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

func loginConfig(cfg *config.Config) auth.LoginConfig {
	return auth.LoginConfig{
		AccessCode:     cfg.Auth.AccessCode,
		AccessCodeHash: cfg.Auth.AccessCodeHash,
		FailureDelay:   cfg.Auth.FailedLoginDelay,
		DefaultAdmin: store.AccountDefaults{
			Username: cfg.Auth.DefaultAdmin.Username,
			Email:    cfg.Auth.DefaultAdmin.Email,
		},
	}
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until the context is canceled.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	serverErr := g.waitForShutdownSignal(ctx, errCh)
	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The caller's context is already canceled at this point.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases the store and metrics provider.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.exporter != nil {
		errs = appendCloseError(errs, "metrics shutdown", g.exporter.Shutdown(ctx))
	}
	if c, ok := g.store.(io.Closer); ok {
		errs = appendCloseError(errs, "store close", c.Close())
	}

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the store answers.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := g.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			g.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
