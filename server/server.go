// Package server exposes stepflow over HTTP: listing workflows, starting runs,
// and reading run history. Routes are served by gin behind the net/http
// middleware chain in server/middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kbukum/stepflow/history"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/server/middleware"
	"github.com/kbukum/stepflow/workflow"
)

// Service is what the HTTP API drives.
type Service interface {
	Workflows() []workflow.Info
	Run(ctx context.Context, name, subject string) (*history.Run, error)
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*history.Run, error)
	Health(ctx context.Context) *observability.ServiceHealth
}

// Server is the stepflow HTTP server backed by gin.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	handler    http.Handler
	svc        Service
	config     Config
	log        *logger.Logger
	listener   net.Listener
}

// New creates a Server with every route registered and the middleware stack
// applied. Call ApplyDefaults on cfg first.
func New(cfg Config, svc Service, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine: gin.New(),
		svc:    svc,
		config: cfg,
		log:    log.WithComponent("server"),
	}
	s.engine.HandleMethodNotAllowed = true
	s.registerRoutes()

	s.handler = middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(cfg.CORS),
		middleware.BodySizeLimit(cfg.MaxBodySize),
		middleware.RequestLogger(s.log),
	)(s.engine)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.Fields("error", err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Routes lists the registered routes as "METHOD /path".
func (s *Server) Routes() []string {
	var out []string
	for _, r := range s.engine.Routes() {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}
