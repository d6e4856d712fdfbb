// Package api implements the EcoCarto HTTP API: stateless classification
// helpers, interactive map sessions and the report archive.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/observability"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
	"github.com/tphakala/ecocarto/internal/session"
	"github.com/tphakala/ecocarto/internal/zones"
)

// BasePath is where the API group is mounted.
const BasePath = "/api/v1"

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Sessions *session.Manager
	Fetcher  session.SampleFetcher
	Zones    *zones.Generator
	DS       datastore.Interface // the sessions' archive, nil when disabled

	metrics   *observability.Metrics
	version   string
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics exposes the registry on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithZoneGenerator sets the generator used by the stateless zones route.
func WithZoneGenerator(g *zones.Generator) Option {
	return func(c *Controller) {
		c.Zones = g
	}
}

// WithVersion sets the version reported by the health check.
func WithVersion(version string) Option {
	return func(c *Controller) {
		c.version = version
	}
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the API package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("api")
	})
	return serviceLogger
}

// New creates a new API controller and registers its routes on e.
func New(e *echo.Echo, sessions *session.Manager, fetcher session.SampleFetcher, opts ...Option) (*Controller, error) {
	if e == nil || sessions == nil || fetcher == nil {
		return nil, errors.Newf("api controller requires echo, a session manager and a sample fetcher").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:      e,
		Sessions:  sessions,
		Fetcher:   fetcher,
		DS:        sessions.Archive(),
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Zones == nil {
		c.Zones = zones.NewGenerator(nil, c.ecoZoneMetrics())
	}

	c.Group = e.Group(BasePath)
	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.Group.GET("/health", c.HealthCheck)

	c.Group.POST("/classify", c.Classify)
	c.Group.GET("/sample", c.GetSample)
	c.Group.POST("/zones", c.GenerateZones)

	c.initSessionRoutes()
	c.initReportRoutes()
	c.initSystemRoutes()
}

// HealthCheck reports service status.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	response := map[string]any{
		"status":         "healthy",
		"version":        c.version,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"sessions":       c.Sessions.Count(),
	}

	if c.DS != nil {
		dbStatus := "connected"
		if _, err := c.DS.ListReports(ctx.Request().Context(), 1, 0); err != nil {
			dbStatus = "disconnected"
			response["database_error"] = err.Error()
		}
		response["database_status"] = dbStatus
	}

	return ctx.JSON(http.StatusOK, response)
}

func (c *Controller) ecoZoneMetrics() *metrics.EcoZoneMetrics {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.EcoZone
}
