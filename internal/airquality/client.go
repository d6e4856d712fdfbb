package airquality

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/httpclient"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
)

const (
	providerName = metrics.ProviderWAQI
	statusOK     = "ok"
)

// Provider returns the live air quality reading for a coordinate.
type Provider interface {
	Fetch(ctx context.Context, lat, lng float64) (*Reading, error)
}

// Client provides methods for interacting with the WAQI geo feed
type Client struct {
	config  Config
	http    *httpclient.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	metrics *metrics.ProviderMetrics
}

// NewClient creates a new WAQI client. A nil httpClient gets a private one;
// a nil metrics disables instrumentation.
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
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, errors.New(err).
			Component("airquality").
			Category(errors.CategoryConfiguration).
			Context("base_url", config.BaseURL).
			Build()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if httpClient == nil {
		httpClient = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
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

	if config.Token == "" {
		GetLogger().Warn("no aqicn token configured, feed requests will be rejected and samples synthesized")
	}

	GetLogger().Info("air quality client initialized",
		logger.String("base_url", config.BaseURL),
		logger.Duration("cache_ttl", config.CacheTTL),
		logger.Float64("rate_limit", config.RateLimit),
		logger.Bool("token_configured", config.Token != ""))

	return c, nil
}

// feedURL builds the geo feed URL for a coordinate.
func (c *Client) feedURL(lat, lng float64) string {
	return fmt.Sprintf("%s/feed/geo:%s;%s/?token=%s",
		c.config.BaseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
		url.QueryEscape(c.config.Token))
}

// Fetch retrieves the current reading for a coordinate. No retries are made.
func (c *Client) Fetch(ctx context.Context, lat, lng float64) (*Reading, error) {
	cacheKey := fmt.Sprintf("geo:%.4f;%.4f", lat, lng)

	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			if reading, ok := cached.(*Reading); ok {
				c.metrics.RecordCacheHit(providerName)
				GetLogger().Debug("air quality cache hit", logger.String("cache_key", cacheKey))
				copied := *reading
				return &copied, nil
			}
		}
		c.metrics.RecordCacheMiss(providerName)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.New(err).
			Component("airquality").
			Category(errors.CategoryCancellation).
			Context("provider", providerName).
			Build()
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	reading, err := c.doRequest(reqCtx, lat, lng)
	elapsed := time.Since(start)
	c.metrics.RecordRequestDuration(providerName, metrics.OpFeed, elapsed.Seconds())

	if err != nil {
		c.metrics.RecordRequest(providerName, metrics.OpFeed, metrics.StatusError)
		return nil, err
	}
	c.metrics.RecordRequest(providerName, metrics.OpFeed, metrics.StatusSuccess)

	if c.cache != nil {
		copied := *reading
		c.cache.Set(cacheKey, &copied, cache.DefaultExpiration)
	}

	GetLogger().Debug("air quality reading received",
		logger.Float64("lat", lat),
		logger.Float64("lng", lng),
		logger.Float64("aqi", reading.AQI),
		logger.Bool("complete", reading.Complete()),
		logger.Duration("elapsed", elapsed))

	return reading, nil
}

// wait blocks on the outbound rate limiter
func (c *Client) wait(ctx context.Context) error {
	if c.limiter.Allow() {
		return nil
	}
	c.metrics.RecordRateLimitWait(providerName)
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Component("airquality").
			Category(errors.CategoryLimit).
			Context("provider", providerName).
			Context("operation", "rate_limiter_wait").
			Build()
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, lat, lng float64) (*Reading, error) {
	feedURL := c.feedURL(lat, lng)

	resp, err := c.http.Get(ctx, feedURL)
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return nil, errors.New(err).
			Component("airquality").
			Category(category).
			Context("provider", providerName).
			Context("operation", "fetch_feed").
			CoordinateContext(lat, lng).
			NetworkContext(feedURL, c.config.Timeout).
			Build()
	}

	body, err := httpclient.ReadBody(resp, httpclient.DefaultMaxBodyBytes)
	if err != nil {
		return nil, errors.New(err).
			Component("airquality").
			Category(errors.CategoryNetwork).
			Context("provider", providerName).
			Context("operation", "read_body").
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("air quality feed returned status %d", resp.StatusCode).
			Component("airquality").
			Category(errors.CategoryHTTP).
			Context("provider", providerName).
			Context("status_code", resp.StatusCode).
			CoordinateContext(lat, lng).
			Build()
	}

	return parseFeed(body)
}

// parseFeed extracts the reading from a feed payload. Zero, non-numeric and
// missing fields are all treated as absent.
func parseFeed(body []byte) (*Reading, error) {
	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, errors.New(err).
			Component("airquality").
			Category(errors.CategoryFileParsing).
			Context("provider", providerName).
			Context("operation", "decode_feed").
			Build()
	}

	status, err := root.GetString("status")
	if err != nil {
		return nil, errors.Newf("malformed feed payload: missing status").
			Component("airquality").
			Category(errors.CategoryFileParsing).
			Context("provider", providerName).
			Build()
	}

	if status != statusOK {
		// Error payloads carry the message in data, e.g. "Invalid key"
		message, _ := root.GetString("data")
		return nil, errors.Newf("air quality feed status %q: %s", status, message).
			Component("airquality").
			Category(errors.CategoryProvider).
			Context("provider", providerName).
			Context("feed_status", status).
			Build()
	}

	data, err := root.GetObject("data")
	if err != nil {
		return nil, errors.Newf("malformed feed payload: data is not an object").
			Component("airquality").
			Category(errors.CategoryFileParsing).
			Context("provider", providerName).
			Build()
	}

	reading := &Reading{}
	reading.AQI, reading.HasAQI = nonZeroNumber(data, "aqi")
	reading.Temperature, reading.HasTemperature = nonZeroNumber(data, "iaqi", "t", "v")
	reading.Humidity, reading.HasHumidity = nonZeroNumber(data, "iaqi", "h", "v")
	reading.Station, _ = data.GetString("city", "name")
	if iso, err := data.GetString("time", "iso"); err == nil {
		if t, err := time.Parse(time.RFC3339, iso); err == nil {
			reading.ObservedAt = t
		}
	}

	return reading, nil
}

// nonZeroNumber returns the number at path when it is present and non-zero.
func nonZeroNumber(obj *jason.Object, keys ...string) (float64, bool) {
	v, err := obj.GetFloat64(keys...)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// FailureReason maps a Fetch error to the fallback reason recorded in metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.IsCategory(err, errors.CategoryFileParsing):
		return metrics.FallbackMalformed
	case errors.IsCategory(err, errors.CategoryProvider), errors.IsCategory(err, errors.CategoryHTTP):
		return metrics.FallbackStatus
	default:
		return metrics.FallbackNetwork
	}
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.Close()
}
