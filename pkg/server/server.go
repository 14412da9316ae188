// Package server exposes read-only scene documents over HTTP so a browser
// renderer can draw the graph. Handlers keep no state between requests:
// every call loads the dataset, replays balances up to the requested date
// and lays the graph out from scratch.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vanderheijden86/graph3d/internal/datasource"
	"github.com/vanderheijden86/graph3d/pkg/config"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/loader"
	"github.com/vanderheijden86/graph3d/pkg/model"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// GraphLoader fetches the graph for a resolved dataset. Warnings go to warn.
type GraphLoader func(ctx context.Context, ds config.Dataset, warn func(string)) (model.Graph, error)

// DatasourceLoader loads through internal/datasource.
func DatasourceLoader(ctx context.Context, ds config.Dataset, warn func(string)) (model.Graph, error) {
	return datasource.Load(ctx, ds, loader.Options{WarningHandler: warn})
}

// Server wraps an echo instance serving the scene API.
type Server struct {
	cfg   config.Config
	load  GraphLoader
	clock func() time.Time
	e     *echo.Echo
}

// Option configures a Server.
type Option func(*Server)

// WithLoader replaces the dataset loader (tests use an in-memory one).
func WithLoader(l GraphLoader) Option {
	return func(s *Server) {
		if l != nil {
			s.load = l
		}
	}
}

// WithClock sets the clock used for "today" when no start date is configured.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds the echo instance and registers routes.
func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		load:  DatasourceLoader,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = goccyJSONSerializer{}

	if cfg.Server.CORS {
		e.Use(middleware.CORS())
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			debug.Log("server: %s %s -> %d (%v)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s.e = e
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api := s.e.Group("/api")
	api.GET("/datasets", s.getDatasets)
	api.GET("/scene", s.getScene)
	api.GET("/graph", s.getGraph)
}

// Handler returns the http.Handler, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.cfg.Server.Addr
	}
	errc := make(chan error, 1)
	go func() {
		debug.Log("server: listening on %s", addr)
		if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
