package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/munashe04/buyza/pkg/config"
	"github.com/munashe04/buyza/pkg/flow"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/server/middleware"
	"github.com/munashe04/buyza/pkg/server/store"
)

const shutdownTimeout = 10 * time.Second

// Check is a named readiness probe
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	Config *config.BotConfig
	Router *mux.Router
	Flow   *flow.Service
	// Orders is the PostgreSQL order mirror, nil when disabled
	Orders store.OrderStore
	// HealthStore checks the mirror database, nil when disabled
	HealthStore store.HealthStore
	// Checks are extra readiness probes such as Redis
	Checks []Check
	// JWT guards the admin API, nil when no secret is configured
	JWT *middleware.JWTAuthenticator

	srv    *http.Server
	logger zerolog.Logger
}

func NewServer(
	cfg *config.BotConfig,
	svc *flow.Service,
	host string,
	port string,
) *Server {

	router := mux.NewRouter()
	router.Use(middleware.RequestID)

	logger := log.WithComponent("server")
	var handler http.Handler = router
	handler = handlers.LoggingHandler(log.WithComponent("http"), handler)
	handler = handlers.ProxyHeaders(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))(handler)

	srv := &http.Server{
		Handler:      handler,
		Addr:         net.JoinHostPort(host, port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	s := &Server{
		Config: cfg,
		Router: router,
		Flow:   svc,
		srv:    srv,
		logger: logger,
	}
	if cfg != nil && cfg.AdminEnabled() {
		s.JWT = middleware.NewJWTAuthenticator([]byte(cfg.AdminJWTSecret))
	}
	return s
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Handler returns the root handler with every middleware applied
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("listening")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(s.Start)
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// recoveryLogger routes panics recovered by gorilla/handlers to zerolog
type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Interface("panic", v).Msg("recovered from panic")
}
