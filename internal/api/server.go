// Package api serves the journal's HTTP/JSON interface.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"trade-journal/internal/auth"
	"trade-journal/internal/resilience"
	"trade-journal/internal/security"
	"trade-journal/internal/store"
)

// Options wires the server's dependencies. Store and Auth are required.
type Options struct {
	Store     store.DataStore
	Auth      *auth.Service
	Validator *security.InputValidator
	Access    *security.AccessController
	Audit     *security.AuditLogger // nil disables auditing
	Health    *resilience.HealthMonitor
	Logger    zerolog.Logger

	BodyLimit   int64
	CORSOrigins []string
	// Production serves the web bundle from StaticDir.
	Production bool
	StaticDir  string
}

// Server is the journal HTTP API.
type Server struct {
	store     store.DataStore
	auth      *auth.Service
	validator *security.InputValidator
	access    *security.AccessController
	audit     *security.AuditLogger
	health    *resilience.HealthMonitor
	logger    zerolog.Logger

	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates the API server and its routes.
func NewServer(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		auth:      opts.Auth,
		validator: opts.Validator,
		access:    opts.Access,
		audit:     opts.Audit,
		health:    opts.Health,
		logger:    opts.Logger.With().Str("component", "api").Logger(),
	}
	if s.validator == nil {
		s.validator = security.NewInputValidator(true)
	}
	if s.access == nil {
		s.access = security.NewAccessController(false, s.audit)
	}
	if s.health == nil {
		s.health = resilience.NewHealthMonitor(resilience.DefaultHealthMonitorConfig())
		s.health.RegisterComponent("database",
			resilience.DatabaseHealthCheck(s.store.Backend(), s.store.Ping, s.store.CountTrades))
	}

	mux := http.NewServeMux()
	s.routes(mux, opts)

	s.handler = chain(mux,
		hlog.NewHandler(s.logger),
		recoverer,
		requestID,
		accessLog(),
		corsHandler(opts.CORSOrigins),
		bodyLimit(opts.BodyLimit),
	)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux, opts Options) {
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/trades", s.protect(s.handleListTrades))
	mux.HandleFunc("GET /api/trades/{id}", s.protect(s.handleGetTrade))
	mux.HandleFunc("POST /api/trades", s.protect(s.guard(security.OpCreateTrade, s.handleCreateTrade)))
	mux.HandleFunc("PUT /api/trades/{id}", s.protect(s.guard(security.OpUpdateTrade, s.handleUpdateTrade)))
	mux.HandleFunc("DELETE /api/trades/{id}", s.protect(s.guard(security.OpDeleteTrade, s.handleDeleteTrade)))

	mux.HandleFunc("GET /api/rules", s.protect(s.handleListRules))
	mux.HandleFunc("POST /api/rules", s.protect(s.guard(security.OpAddRule, s.handleAddRule)))
	mux.HandleFunc("DELETE /api/rules/{id}", s.protect(s.guard(security.OpDeleteRule, s.handleDeleteRule)))

	mux.HandleFunc("GET /api/stats", s.protect(s.handleStats))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	})

	if opts.Production && opts.StaticDir != "" {
		mux.Handle("/", spaHandler(opts.StaticDir))
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			writeErrorMessage(w, http.StatusNotFound, "Not found")
		})
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run listens on addr and serves until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
