// env.go - Environment variable configuration and validation for EcoCarto
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "ECOCARTO_DEBUG", validateEnvBool},

		// Air quality feed
		{"airquality.enabled", "ECOCARTO_AIRQUALITY_ENABLED", validateEnvBool},
		{"airquality.token", "ECOCARTO_AQICN_TOKEN", nil},
		{"airquality.baseurl", "ECOCARTO_AIRQUALITY_BASEURL", validateEnvURL},
		{"airquality.timeout", "ECOCARTO_AIRQUALITY_TIMEOUT", validateEnvDuration},

		// Geocoding
		{"geocoding.baseurl", "ECOCARTO_GEOCODING_BASEURL", validateEnvURL},
		{"geocoding.useragent", "ECOCARTO_GEOCODING_USERAGENT", nil},

		// Map
		{"map.latitude", "ECOCARTO_MAP_LATITUDE", validateEnvLatitude},
		{"map.longitude", "ECOCARTO_MAP_LONGITUDE", validateEnvLongitude},

		// Server
		{"server.host", "ECOCARTO_SERVER_HOST", nil},
		{"server.port", "ECOCARTO_SERVER_PORT", validateEnvPort},

		// Datastore
		{"datastore.type", "ECOCARTO_DATASTORE_TYPE", validateEnvDatastoreType},
		{"datastore.sqlite.path", "ECOCARTO_SQLITE_PATH", nil},
		{"datastore.mysql.password", "ECOCARTO_MYSQL_PASSWORD", nil},

		// Integrations
		{"mqtt.enabled", "ECOCARTO_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "ECOCARTO_MQTT_BROKER", validateEnvURL},
		{"mqtt.password", "ECOCARTO_MQTT_PASSWORD", nil},
		{"sentry.enabled", "ECOCARTO_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "ECOCARTO_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value: %s", value)
	}
	return nil
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid latitude format: %w", err)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", lat)
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lng, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid longitude format: %w", err)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", lng)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

func validateEnvDatastoreType(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sqlite", "mysql":
		return nil
	default:
		return fmt.Errorf("datastore type must be sqlite or mysql, got %q", value)
	}
}
