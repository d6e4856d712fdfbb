package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/ecocarto/internal/api/middleware"
	api "github.com/tphakala/ecocarto/internal/api/v1"
	"github.com/tphakala/ecocarto/internal/app"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
)

// DefaultShutdownTimeout bounds graceful shutdown when settings leave it unset.
const DefaultShutdownTimeout = 10 * time.Second

// EchoServer serves the API controller on echo.
type EchoServer struct {
	Echo     *echo.Echo
	services *app.Services
	api      *api.Controller
	addr     string
	timeout  time.Duration

	listener net.Listener
	errCh    chan error
	wg       sync.WaitGroup
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the httpserver package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("httpserver")
	})
	return serviceLogger
}

// New builds the echo instance with middleware and API routes.
func New(services *app.Services) (*EchoServer, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	security := middleware.DefaultSecurityConfig()
	e.Use(echomw.Recover())
	e.Use(middleware.NewRequestLoggerWithSkipper(GetLogger(), middleware.SkipMetrics))
	e.Use(middleware.NewSecureHeaders(security))
	e.Use(middleware.NewCORS(security))
	e.Use(middleware.NewBodyLimit(middleware.DefaultBodyLimit))

	controller, err := api.New(e, services.Sessions, services.Fetcher,
		api.WithMetrics(services.Metrics),
		api.WithZoneGenerator(services.Zones),
		api.WithVersion(services.Version))
	if err != nil {
		return nil, err
	}

	timeout := services.Settings.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	return &EchoServer{
		Echo:     e,
		services: services,
		api:      controller,
		addr:     services.Settings.Server.Address(),
		timeout:  timeout,
		errCh:    make(chan error, 1),
	}, nil
}

// Start binds the listen address and serves in the background. Bind
// failures are returned; later serve failures are reported on Errors.
func (s *EchoServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.New(err).
			Component("httpserver").
			Category(errors.CategoryNetwork).
			Context("address", s.addr).
			Build()
	}
	s.listener = ln
	s.Echo.Listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		GetLogger().Info("http server listening", logger.String("address", ln.Addr().String()))
		if err := s.Echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			GetLogger().Error("http server stopped", logger.Error(err))
			s.errCh <- err
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *EchoServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Errors reports fatal serve errors.
func (s *EchoServer) Errors() <-chan error {
	return s.errCh
}

// Shutdown drains in-flight requests within the shutdown timeout.
func (s *EchoServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.Echo.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return errors.New(err).
			Component("httpserver").
			Category(errors.CategoryTimeout).
			Context("timeout", s.timeout.String()).
			Build()
	}
	GetLogger().Info("http server stopped")
	return nil
}

// APIController returns the API controller.
func (s *EchoServer) APIController() *api.Controller {
	return s.api
}

var _ Server = (*EchoServer)(nil)
