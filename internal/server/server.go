// Package server provides the HTTP API for matchd.
//
// Every POST body carries the organizational scope (project_id,
// manager_id). Handlers validate at the boundary, put the scope into
// the request context, and hand typed records to the core; the core
// never sees untyped maps.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/scope"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// DefaultTopK is used when match requests omit top_k.
	DefaultTopK int
}

// Server provides the matchd HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	service Service
	config  Config
	logger  *zap.Logger
}

// NewServer creates the HTTP server.
func NewServer(service Service, cfg Config, logger *zap.Logger) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		config:  cfg,
		logger:  logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health-check", s.handleHealthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/generate-tasks", s.handleGenerateTasks)
	s.echo.POST("/index-users", s.handleIndexUsers)
	s.echo.POST("/index-tasks", s.handleIndexTasks)
	s.echo.POST("/match-tasks-for-users", s.handleMatchTasksForUsers)
	s.echo.POST("/match-users-for-tasks", s.handleMatchUsersForTasks)
	s.echo.POST("/match-tasks-for-user", s.handleMatchTasksForUser)
	s.echo.POST("/match-user-for-task", s.handleMatchUserForTask)
	s.echo.POST("/delete-indexed-users", s.handleDeleteUsers)
	s.echo.POST("/delete-indexed-tasks", s.handleDeleteTasks)
}

// scopeContext validates the declared scope and installs it in the
// request context. Missing or empty scope fields are a 400.
func (s *Server) scopeContext(c echo.Context, sc scoped) (context.Context, error) {
	ctx, err := scope.NewContext(c.Request().Context(), scope.Scope{
		ProjectID: sc.ProjectID,
		ManagerID: sc.ManagerID,
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "project_id and manager_id are required")
	}
	return ctx, nil
}

// resolveTopK applies the configured default when top_k is omitted.
// Negative values are a 400; zero is a valid "no results" request.
func (s *Server) resolveTopK(topK *int) (int, error) {
	if topK == nil {
		return s.config.DefaultTopK, nil
	}
	if *topK < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "top_k cannot be negative")
	}
	return *topK, nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
