// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateAirQualitySettings,
		validateGeocodingSettings,
		validateMapSettings,
		validateHistorySettings,
		validateServerSettings,
		validateDatastoreSettings,
		validateMQTTSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAirQualitySettings(s *Settings) error {
	aq := &s.AirQuality
	if !aq.Enabled {
		return nil
	}
	if err := validateBaseURL("airquality.baseurl", aq.BaseURL); err != nil {
		return err
	}
	if aq.Timeout <= 0 {
		return fmt.Errorf("airquality.timeout must be positive")
	}
	if aq.RateLimit <= 0 {
		return fmt.Errorf("airquality.ratelimit must be positive")
	}
	if aq.CacheTTL < 0 {
		return fmt.Errorf("airquality.cachettl cannot be negative")
	}
	return nil
}

func validateGeocodingSettings(s *Settings) error {
	g := &s.Geocoding
	if err := validateBaseURL("geocoding.baseurl", g.BaseURL); err != nil {
		return err
	}
	if g.RateLimit <= 0 {
		return fmt.Errorf("geocoding.ratelimit must be positive")
	}
	if g.SuggestionLimit < 1 || g.SuggestionLimit > 50 {
		return fmt.Errorf("geocoding.suggestionlimit must be between 1 and 50, got %d", g.SuggestionLimit)
	}
	if g.MinQueryLength < 1 {
		return fmt.Errorf("geocoding.minquerylength must be at least 1")
	}
	if g.Debounce < 0 {
		return fmt.Errorf("geocoding.debounce cannot be negative")
	}
	return nil
}

func validateMapSettings(s *Settings) error {
	m := &s.Map
	if m.Latitude < -90 || m.Latitude > 90 {
		return fmt.Errorf("map.latitude must be between -90 and 90")
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return fmt.Errorf("map.longitude must be between -180 and 180")
	}
	if m.Zoom < 0 || m.Zoom > 20 {
		return fmt.Errorf("map.zoom must be between 0 and 20")
	}
	return nil
}

func validateHistorySettings(s *Settings) error {
	h := &s.History
	if h.StartYear > h.EndYear {
		return fmt.Errorf("history.startyear %d is after history.endyear %d", h.StartYear, h.EndYear)
	}
	return nil
}

func validateServerSettings(s *Settings) error {
	port, err := strconv.Atoi(s.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be a number between 1 and 65535, got %q", s.Server.Port)
	}
	if s.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.sessionttl must be positive")
	}
	return nil
}

func validateDatastoreSettings(s *Settings) error {
	ds := &s.Datastore
	switch strings.ToLower(ds.Type) {
	case "sqlite":
		if ds.SQLite.Path == "" {
			return fmt.Errorf("datastore.sqlite.path is required")
		}
	case "mysql":
		if ds.MySQL.Host == "" || ds.MySQL.Database == "" {
			return fmt.Errorf("datastore.mysql.host and datastore.mysql.database are required")
		}
	default:
		return fmt.Errorf("datastore.type must be sqlite or mysql, got %q", ds.Type)
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	if s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
	}
	if s.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when MQTT is enabled")
	}
	return nil
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}
