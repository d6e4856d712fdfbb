// Package app assembles the EcoCarto services from settings: metrics, the
// outbound HTTP client, the air quality and geocoding clients, the report
// archive, MQTT publishing and the session manager.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/ecocarto/internal/airquality"
	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/httpclient"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/mapview"
	"github.com/tphakala/ecocarto/internal/mqtt"
	"github.com/tphakala/ecocarto/internal/observability"
	"github.com/tphakala/ecocarto/internal/session"
	"github.com/tphakala/ecocarto/internal/synthetic"
	"github.com/tphakala/ecocarto/internal/zones"
)

// Services holds the assembled collaborators. Optional services are nil
// when disabled or unavailable.
type Services struct {
	Settings   *conf.Settings
	Version    string
	Metrics    *observability.Metrics
	HTTP       *httpclient.Client
	AirQuality *airquality.Client
	Fetcher    *environment.Fetcher
	Geocoder   *geocoding.Client
	Zones      *zones.Generator
	Archive    datastore.Interface
	MQTT       mqtt.Client
	Publisher  *mqtt.Publisher
	Sessions   *session.Manager

	closeOnce sync.Once
}

// Options selects which optional services New starts.
type Options struct {
	// Archive opens the report datastore.
	Archive bool
	// Publish connects to the MQTT broker when MQTT is enabled in settings.
	Publish bool
	// Random overrides the synthetic source, for reproducible runs.
	Random synthetic.Source
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the app package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("app")
	})
	return serviceLogger
}

// New builds the services described by settings. Failures of optional
// services are logged and leave the service nil.
func New(ctx context.Context, settings *conf.Settings, version string, opts Options) (*Services, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_metrics").
			Build()
	}

	s := &Services{Settings: settings, Version: version, Metrics: m}

	userAgent := settings.Geocoding.UserAgent
	if userAgent == "" {
		userAgent = "EcoCarto/" + version
	}
	s.HTTP = httpclient.New(&httpclient.Config{UserAgent: userAgent})

	random := opts.Random
	if random == nil {
		random = synthetic.Default()
	}

	if err := s.initAirQuality(random); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.initGeocoder(userAgent); err != nil {
		s.Close()
		return nil, err
	}
	s.Zones = zones.NewGenerator(random, m.EcoZone)

	if opts.Archive {
		s.initArchive()
	}
	if opts.Publish && settings.MQTT.Enabled {
		s.initMQTT(ctx)
	}

	s.Sessions = session.NewManager(s.SessionConfig(), session.Dependencies{
		Fetcher:   s.Fetcher,
		Geocoder:  s.Geocoder,
		Zones:     s.Zones,
		Random:    random,
		Publisher: s.Publisher,
		Archive:   s.Archive,
		Metrics:   m.EcoZone,
	}, settings.Server.SessionTTL)

	return s, nil
}

func (s *Services) initAirQuality(random synthetic.Source) error {
	fetcherOpts := []environment.FetcherOption{
		environment.WithSource(random),
		environment.WithMetrics(s.Metrics.Provider, s.Metrics.EcoZone),
	}

	aq := s.Settings.AirQuality
	if !aq.Enabled {
		GetLogger().Info("air quality feed disabled, all samples are synthesized")
		s.Fetcher = environment.NewFetcher(nil, fetcherOpts...)
		return nil
	}

	client, err := airquality.NewClient(airquality.Config{
		Token:     aq.Token,
		BaseURL:   aq.BaseURL,
		Timeout:   aq.Timeout,
		RateLimit: aq.RateLimit,
		CacheTTL:  aq.CacheTTL,
	}, s.HTTP, s.Metrics.Provider)
	if err != nil {
		return err
	}
	s.AirQuality = client
	s.Fetcher = environment.NewFetcher(client, fetcherOpts...)
	return nil
}

func (s *Services) initGeocoder(userAgent string) error {
	g := s.Settings.Geocoding
	client, err := geocoding.NewClient(geocoding.Config{
		BaseURL:         g.BaseURL,
		UserAgent:       userAgent,
		Timeout:         g.Timeout,
		RateLimit:       g.RateLimit,
		CacheTTL:        g.CacheTTL,
		SuggestionLimit: g.SuggestionLimit,
	}, s.HTTP, s.Metrics.Provider)
	if err != nil {
		return err
	}
	s.Geocoder = client
	return nil
}

func (s *Services) initArchive() {
	store, err := datastore.New(s.Settings, s.Metrics.Datastore)
	if err == nil {
		err = store.Open()
	}
	if err != nil {
		GetLogger().Warn("report archive unavailable, exports will not be archived",
			logger.String("type", s.Settings.Datastore.Type),
			logger.Error(err))
		return
	}
	s.Archive = store
}

func (s *Services) initMQTT(ctx context.Context) {
	client, err := mqtt.NewClient(s.Settings, s.Metrics.MQTT)
	if err != nil {
		GetLogger().Warn("mqtt disabled", logger.Error(err))
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		// paho keeps retrying in the background once the client exists
		GetLogger().Warn("mqtt connection failed, zone summaries will be dropped until connected",
			logger.String("broker", s.Settings.MQTT.Broker),
			logger.Error(err))
	}
	s.MQTT = client
	s.Publisher = mqtt.NewPublisher(client, s.Settings.MQTT.Topic)
}

// SessionConfig maps settings onto the session configuration.
func (s *Services) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	st := s.Settings

	if st.Geocoding.Debounce > 0 {
		cfg.Debounce = st.Geocoding.Debounce
	}
	if st.Geocoding.MinQueryLength > 0 {
		cfg.MinQueryLength = st.Geocoding.MinQueryLength
	}
	if st.Geocoding.SuggestionLimit > 0 {
		cfg.SuggestionLimit = st.Geocoding.SuggestionLimit
	}
	if st.History.StartYear > 0 && st.History.EndYear > 0 {
		cfg.StartYear, cfg.EndYear = st.History.StartYear, st.History.EndYear
	}
	if st.Map.Name != "" {
		cfg.DefaultCenter = mapview.Marker{Lat: st.Map.Latitude, Lng: st.Map.Longitude, Name: st.Map.Name}
	}
	if st.Map.Zoom > 0 {
		cfg.Zoom = st.Map.Zoom
	}
	if st.Geocoding.Timeout > 0 {
		cfg.RequestTimeout = st.Geocoding.Timeout
	}
	return cfg
}

// Close releases every service. It is safe to call more than once.
func (s *Services) Close() {
	s.closeOnce.Do(func() {
		if s.Sessions != nil {
			s.Sessions.Close()
		}
		if s.MQTT != nil {
			s.MQTT.Disconnect()
		}
		if s.Archive != nil {
			if err := s.Archive.Close(); err != nil {
				GetLogger().Warn("failed to close report archive", logger.Error(err))
			}
		}
		if s.Geocoder != nil {
			s.Geocoder.Close()
		}
		if s.AirQuality != nil {
			s.AirQuality.Close()
		}
		if s.HTTP != nil {
			s.HTTP.Close()
		}
	})
}
