// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with packages that run without loaded settings.
const (
	DefaultLatitude   = 40.7128
	DefaultLongitude  = -74.0060
	DefaultPlaceName  = "New York"
	DefaultZoom       = 12
	DefaultStartYear  = 2015
	DefaultEndYear    = 2024
	DefaultWAQIURL    = "https://api.waqi.info"
	DefaultNominatim  = "https://nominatim.openstreetmap.org"
	DefaultSessionTTL = 30 * time.Minute
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "EcoCarto")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/ecocarto.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("airquality.enabled", true)
	viper.SetDefault("airquality.token", "")
	viper.SetDefault("airquality.baseurl", DefaultWAQIURL)
	viper.SetDefault("airquality.timeout", 10*time.Second)
	viper.SetDefault("airquality.ratelimit", 5.0)
	viper.SetDefault("airquality.cachettl", 10*time.Minute)

	viper.SetDefault("geocoding.baseurl", DefaultNominatim)
	viper.SetDefault("geocoding.useragent", "")
	viper.SetDefault("geocoding.timeout", 10*time.Second)
	viper.SetDefault("geocoding.ratelimit", 1.0)
	viper.SetDefault("geocoding.cachettl", time.Hour)
	viper.SetDefault("geocoding.suggestionlimit", 5)
	viper.SetDefault("geocoding.minquerylength", 3)
	viper.SetDefault("geocoding.debounce", 300*time.Millisecond)

	viper.SetDefault("map.latitude", DefaultLatitude)
	viper.SetDefault("map.longitude", DefaultLongitude)
	viper.SetDefault("map.name", DefaultPlaceName)
	viper.SetDefault("map.zoom", DefaultZoom)

	viper.SetDefault("history.startyear", DefaultStartYear)
	viper.SetDefault("history.endyear", DefaultEndYear)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.sessionttl", DefaultSessionTTL)
	viper.SetDefault("server.shutdowntimeout", 10*time.Second)

	viper.SetDefault("datastore.type", "sqlite")
	viper.SetDefault("datastore.sqlite.enabled", true)
	viper.SetDefault("datastore.sqlite.path", "ecocarto.db")
	viper.SetDefault("datastore.mysql.enabled", false)
	viper.SetDefault("datastore.mysql.username", "ecocarto")
	viper.SetDefault("datastore.mysql.password", "")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", "3306")
	viper.SetDefault("datastore.mysql.database", "ecocarto")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "ecocarto")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}

// defaultSettings returns Settings populated only from defaults.
func defaultSettings() *Settings {
	viper.Reset()
	setDefaultConfig()
	settings := &Settings{}
	_ = viper.Unmarshal(settings)
	return settings
}
