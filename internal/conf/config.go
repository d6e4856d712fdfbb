// conf/config.go
package conf

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
)

// Settings contains all configuration options for EcoCarto.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"` // true to enable debug mode

	Main struct {
		Name string `yaml:"name" mapstructure:"name"` // name of the instance, used in MQTT client IDs
	} `yaml:"main" mapstructure:"main"`

	Logging logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`

	AirQuality AirQualitySettings `yaml:"airquality" mapstructure:"airquality"`
	Geocoding  GeocodingSettings  `yaml:"geocoding" mapstructure:"geocoding"`
	Map        MapSettings        `yaml:"map" mapstructure:"map"`
	History    HistorySettings    `yaml:"history" mapstructure:"history"`
	Server     ServerSettings     `yaml:"server" mapstructure:"server"`
	Datastore  DatastoreSettings  `yaml:"datastore" mapstructure:"datastore"`
	MQTT       MQTTSettings       `yaml:"mqtt" mapstructure:"mqtt"`
	Sentry     SentrySettings     `yaml:"sentry" mapstructure:"sentry"`
}

// AirQualitySettings configures the WAQI air quality feed.
type AirQualitySettings struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`     // false forces synthetic samples
	Token     string        `yaml:"token" mapstructure:"token"`         // aqicn.org API token
	BaseURL   string        `yaml:"baseurl" mapstructure:"baseurl"`     // feed endpoint root
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`     // per-request timeout
	RateLimit float64       `yaml:"ratelimit" mapstructure:"ratelimit"` // requests per second
	CacheTTL  time.Duration `yaml:"cachettl" mapstructure:"cachettl"`   // how long a feed response is reused
}

// GeocodingSettings configures the Nominatim geocoder.
type GeocodingSettings struct {
	BaseURL         string        `yaml:"baseurl" mapstructure:"baseurl"`
	UserAgent       string        `yaml:"useragent" mapstructure:"useragent"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit       float64       `yaml:"ratelimit" mapstructure:"ratelimit"` // Nominatim policy is 1 request per second
	CacheTTL        time.Duration `yaml:"cachettl" mapstructure:"cachettl"`
	SuggestionLimit int           `yaml:"suggestionlimit" mapstructure:"suggestionlimit"`
	MinQueryLength  int           `yaml:"minquerylength" mapstructure:"minquerylength"`
	Debounce        time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// MapSettings holds the initial map view.
type MapSettings struct {
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
	Name      string  `yaml:"name" mapstructure:"name"`
	Zoom      int     `yaml:"zoom" mapstructure:"zoom"`
}

// HistorySettings bounds the selectable years of the historical series.
type HistorySettings struct {
	StartYear int `yaml:"startyear" mapstructure:"startyear"`
	EndYear   int `yaml:"endyear" mapstructure:"endyear"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            string        `yaml:"port" mapstructure:"port"`
	SessionTTL      time.Duration `yaml:"sessionttl" mapstructure:"sessionttl"` // idle time before a session is evicted
	ShutdownTimeout time.Duration `yaml:"shutdowntimeout" mapstructure:"shutdowntimeout"`
}

// DatastoreSettings selects the report archive backend.
type DatastoreSettings struct {
	Type   string `yaml:"type" mapstructure:"type"` // sqlite or mysql
	SQLite struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Username string `yaml:"username" mapstructure:"username"`
		Password string `yaml:"password" mapstructure:"password"`
		Host     string `yaml:"host" mapstructure:"host"`
		Port     string `yaml:"port" mapstructure:"port"`
		Database string `yaml:"database" mapstructure:"database"`
	} `yaml:"mysql" mapstructure:"mysql"`
}

// MQTTSettings contains settings for MQTT integration.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"` // tcp://host:1883
	Topic    string `yaml:"topic" mapstructure:"topic"`   // base topic, zone summaries go to <topic>/zones
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// SentrySettings controls error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings. An empty configFile searches the default config paths.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	viper.Reset()
	viper.SetConfigType("yaml")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			// No config file anywhere, run on defaults and environment
			return nil
		}
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Context("config_file", configFile).
			Build()
	}

	return nil
}

// Setting returns the current settings instance, loading defaults on first use.
func Setting() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	settings, err := Load("")
	if err != nil {
		// Defaults always validate, so this only trips on a broken environment
		settings = defaultSettings()
		settingsMutex.Lock()
		settingsInstance = settings
		settingsMutex.Unlock()
	}
	return settings
}

// ConfigFileUsed returns the path of the config file viper read, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// Address returns the host:port the HTTP server listens on.
func (s *ServerSettings) Address() string {
	return s.Host + ":" + s.Port
}

// Dump renders settings as YAML with secrets masked.
func Dump(s *Settings) ([]byte, error) {
	masked := *s
	masked.AirQuality.Token = mask(s.AirQuality.Token)
	masked.MQTT.Password = mask(s.MQTT.Password)
	masked.Datastore.MySQL.Password = mask(s.Datastore.MySQL.Password)
	masked.Sentry.DSN = mask(s.Sentry.DSN)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryFileParsing).
			Context("operation", "dump-yaml").
			Build()
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
