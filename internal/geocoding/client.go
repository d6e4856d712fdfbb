package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/httpclient"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
)

const providerName = metrics.ProviderNominatim

// Geocoder resolves between place names and coordinates.
type Geocoder interface {
	// Search returns the best match for query.
	Search(ctx context.Context, query string) (Location, error)
	// Suggest returns up to limit candidates for query.
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
	// Reverse returns the display name of the place at a coordinate.
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Client is a Nominatim Geocoder.
type Client struct {
	config  Config
	http    *httpclient.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	metrics *metrics.ProviderMetrics
}

// NewClient creates a new Nominatim client. A nil httpClient gets a private
// one; a nil metrics disables instrumentation.
func NewClient(config Config, httpClient *httpclient.Client, m *metrics.ProviderMetrics) (*Client, error) {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaults.RateLimit
	}
	if config.SuggestionLimit <= 0 {
		config.SuggestionLimit = defaults.SuggestionLimit
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, errors.New(err).
			Component("geocoding").
			Category(errors.CategoryConfiguration).
			Context("base_url", config.BaseURL).
			Build()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if httpClient == nil {
		httpClient = httpclient.New(&httpclient.Config{
			DefaultTimeout: config.Timeout,
			UserAgent:      config.UserAgent,
		})
	}

	c := &Client{
		config:  config,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		metrics: m,
	}
	if config.CacheTTL > 0 {
		c.cache = cache.New(config.CacheTTL, config.CacheTTL*2)
	}

	GetLogger().Info("geocoding client initialized",
		logger.String("base_url", config.BaseURL),
		logger.Duration("cache_ttl", config.CacheTTL),
		logger.Float64("rate_limit", config.RateLimit))

	return c, nil
}

// Search returns the best forward-geocoding match. An empty result is a
// not-found error.
func (c *Client) Search(ctx context.Context, query string) (Location, error) {
	places, err := c.search(ctx, query, 1)
	if err != nil {
		return Location{}, err
	}
	if len(places) == 0 {
		return Location{}, emptyResult("search", query)
	}
	return places[0], nil
}

// Suggest returns up to limit candidates. A non-positive limit uses the
// configured suggestion limit. No matches is an empty slice, not an error.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = c.config.SuggestionLimit
	}
	places, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, 0, len(places))
	for _, p := range places {
		suggestions = append(suggestions, NewSuggestion(p))
	}
	return suggestions, nil
}

// Reverse returns the display name for a coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	cacheKey := fmt.Sprintf("reverse:%.5f,%.5f", lat, lng)
	if name, ok := c.cached(cacheKey).(string); ok {
		return name, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	body, err := c.get(ctx, metrics.OpReverse, c.config.BaseURL+"/reverse?"+params.Encode())
	if err != nil {
		return "", err
	}

	var place nominatimPlace
	if err := json.Unmarshal(body, &place); err != nil {
		return "", malformed(err, "reverse")
	}
	if place.Error != "" || place.DisplayName == "" {
		return "", emptyResult("reverse", CoordinateName(lat, lng))
	}

	c.store(cacheKey, place.DisplayName)
	return place.DisplayName, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Newf("empty search query").
			Component("geocoding").
			Category(errors.CategoryValidation).
			Build()
	}

	cacheKey := fmt.Sprintf("search:%d:%s", limit, strings.ToLower(query))
	if locations, ok := c.cached(cacheKey).([]Location); ok {
		return append([]Location(nil), locations...), nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, metrics.OpSearch, c.config.BaseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, malformed(err, "search")
	}

	locations := make([]Location, 0, len(places))
	for _, p := range places {
		loc, err := p.location()
		if err != nil {
			GetLogger().Debug("skipping unparseable place",
				logger.String("display_name", p.DisplayName),
				logger.Error(err))
			continue
		}
		locations = append(locations, loc)
		if len(locations) == limit {
			break
		}
	}

	c.store(cacheKey, locations)
	return append([]Location(nil), locations...), nil
}

func (p nominatimPlace) location() (Location, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Location{}, err
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Location{}, err
	}
	return Location{Lat: lat, Lng: lng, Name: p.DisplayName}, nil
}

// get performs a rate-limited request and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, operation, requestURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(err).
			Component("geocoding").
			Category(errors.CategoryCancellation).
			Context("operation", operation).
			Build()
	}

	if !c.limiter.Allow() {
		c.metrics.RecordRateLimitWait(providerName)
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.New(err).
				Component("geocoding").
				Category(errors.CategoryLimit).
				Context("operation", operation).
				Build()
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, errors.New(err).
			Component("geocoding").
			Category(errors.CategoryValidation).
			Context("operation", operation).
			Build()
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(reqCtx, req)
	c.metrics.RecordRequestDuration(providerName, operation, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordRequest(providerName, operation, metrics.StatusError)
		category := errors.CategoryNetwork
		if reqCtx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return nil, errors.New(err).
			Component("geocoding").
			Category(category).
			Context("provider", providerName).
			Context("operation", operation).
			NetworkContext(requestURL, c.config.Timeout).
			Build()
	}

	body, err := httpclient.ReadBody(resp, httpclient.DefaultMaxBodyBytes)
	if err != nil {
		c.metrics.RecordRequest(providerName, operation, metrics.StatusError)
		return nil, errors.New(err).
			Component("geocoding").
			Category(errors.CategoryNetwork).
			Context("operation", operation).
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordRequest(providerName, operation, metrics.StatusError)
		return nil, errors.Newf("nominatim returned status %d", resp.StatusCode).
			Component("geocoding").
			Category(errors.CategoryHTTP).
			Context("provider", providerName).
			Context("operation", operation).
			Context("status_code", resp.StatusCode).
			Build()
	}

	c.metrics.RecordRequest(providerName, operation, metrics.StatusSuccess)
	return body, nil
}

func (c *Client) cached(key string) any {
	if c.cache == nil {
		return nil
	}
	if v, found := c.cache.Get(key); found {
		c.metrics.RecordCacheHit(providerName)
		return v
	}
	c.metrics.RecordCacheMiss(providerName)
	return nil
}

func (c *Client) store(key string, v any) {
	if c.cache != nil {
		c.cache.Set(key, v, cache.DefaultExpiration)
	}
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.Close()
}

func malformed(err error, operation string) error {
	return errors.New(err).
		Component("geocoding").
		Category(errors.CategoryFileParsing).
		Context("provider", providerName).
		Context("operation", operation).
		Build()
}

func emptyResult(operation, subject string) error {
	return errors.Newf("no geocoding result for %q", subject).
		Component("geocoding").
		Category(errors.CategoryNotFound).
		Context("provider", providerName).
		Context("operation", operation).
		Build()
}

// FailureReason maps a geocoding error to the fallback reason recorded in metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.IsNotFound(err):
		return metrics.FallbackEmpty
	case errors.IsCategory(err, errors.CategoryFileParsing):
		return metrics.FallbackMalformed
	case errors.IsCategory(err, errors.CategoryHTTP):
		return metrics.FallbackStatus
	default:
		return metrics.FallbackNetwork
	}
}
