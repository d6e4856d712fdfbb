package app

import (
	"time"

	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
)

// InitLogging installs the process-wide logger described by settings.
// Debug mode lowers the console and default levels to debug.
func InitLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}
	logger.SetGlobal(cl)
	return cl, nil
}

// InitTelemetry enables Sentry error reporting when configured.
func InitTelemetry(settings *conf.Settings, version string) {
	if !settings.Sentry.Enabled {
		return
	}
	if err := errors.InitSentry(settings.Sentry.DSN, "ecocarto@"+version); err != nil {
		GetLogger().Warn("error telemetry disabled", logger.Error(err))
		return
	}
	GetLogger().Info("error telemetry enabled")
}

// FlushTelemetry sends pending error reports before exit.
func FlushTelemetry() {
	if !errors.FlushTelemetry(2 * time.Second) {
		GetLogger().Warn("timed out flushing error telemetry")
	}
}
