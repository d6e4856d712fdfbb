package serve

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/ecocarto/internal/app"
	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/httpserver"
	"github.com/tphakala/ecocarto/internal/logger"
)

// Command creates the serve command, which runs the HTTP API.
func Command(settings *conf.Settings, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the EcoCarto HTTP API",
		Long:  "Start the HTTP API serving interactive map sessions, zone classification and the report archive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if host, _ := cmd.Flags().GetString("host"); cmd.Flags().Changed("host") {
				settings.Server.Host = host
			}
			if port, _ := cmd.Flags().GetString("port"); cmd.Flags().Changed("port") {
				settings.Server.Port = port
			}
			return run(cmd.Context(), settings, version)
		},
	}

	// Flags override the loaded settings only when set explicitly.
	cmd.Flags().String("host", "", "Listen host (default from server.host)")
	cmd.Flags().StringP("port", "p", "", "Listen port (default from server.port)")

	return cmd
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully.
func run(parent context.Context, settings *conf.Settings, version string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := app.GetLogger()
	defer app.FlushTelemetry()

	services, err := app.New(ctx, settings, version, app.Options{Archive: true, Publish: true})
	if err != nil {
		return err
	}
	defer services.Close()

	srv, err := httpserver.New(services)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	log.Info("ecocarto started",
		logger.String("version", version),
		logger.String("address", srv.Addr()),
		logger.Bool("air_quality", settings.AirQuality.Enabled),
		logger.Bool("archive", services.Archive != nil),
		logger.Bool("mqtt", services.Publisher != nil))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-srv.Errors():
	}

	if err := srv.Shutdown(); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}
