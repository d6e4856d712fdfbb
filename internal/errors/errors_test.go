package errors

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *recordingReporter) IsEnabled() bool              { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := Newf("lookup failed for %s", "paris").
		Component("geocoding").
		Category(CategoryNotFound).
		Priority("bogus").
		Context("query", "paris").
		Build()

	assert.Equal(t, "geocoding", ee.GetComponent())
	assert.Equal(t, CategoryNotFound, ee.Category)
	assert.Equal(t, PriorityMedium, ee.GetPriority())
	assert.Equal(t, "paris", ee.GetContext()["query"])
	assert.True(t, IsNotFound(ee))
	assert.False(t, IsValidation(ee))
}

func TestCoordinateContextRoundsToTwoDecimals(t *testing.T) {
	ee := New(fmt.Errorf("x")).CoordinateContext(40.712776, -74.005974).Build()

	ctx := ee.GetContext()
	assert.Equal(t, "40.71", ctx["lat"])
	assert.Equal(t, "-74.01", ctx["lng"])
}

func TestIsCategoryThroughWrapping(t *testing.T) {
	inner := New(fmt.Errorf("status 502")).Category(CategoryNetwork).Build()
	wrapped := fmt.Errorf("fetch sample: %w", inner)

	assert.True(t, IsCategory(wrapped, CategoryNetwork))
	assert.False(t, IsCategory(wrapped, CategoryFileParsing))
	assert.False(t, IsCategory(fmt.Errorf("plain"), CategoryNetwork))
}

func TestReporterReceivesErrorsWhenActive(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(fmt.Errorf("connection refused")).Component("airquality").Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.Equal(t, CategoryNetwork, ee.Category, "category should be detected from message")
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name      string
		msg       string
		component string
		want      ErrorCategory
	}{
		{"timeout", "context deadline exceeded", "", CategoryTimeout},
		{"decode", "failed to decode payload", "", CategoryFileParsing},
		{"invalid", "invalid latitude", "", CategoryValidation},
		{"component fallback", "boom", "datastore", CategoryDatabase},
		{"generic", "boom", "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCategory(fmt.Errorf("%s", tt.msg), tt.component))
		})
	}
}

func TestScrubMessageForPrivacy(t *testing.T) {
	msg := "GET https://api.waqi.info/feed/geo:40.7128;-74.0060/?token=secret123 failed"
	scrubbed := scrubMessageForPrivacy(msg)

	assert.NotContains(t, scrubbed, "secret123")
	assert.NotContains(t, scrubbed, "40.7128")
	assert.True(t, strings.Contains(scrubbed, "[REDACTED]") || strings.Contains(scrubbed, "[COORDS_REDACTED]"))

	assert.Contains(t, scrubMessageForPrivacy("config token=abc123 invalid"), "[API_KEY_REDACTED]")
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(fmt.Errorf("x")).
		Component("geocoding").
		Category(CategoryNetwork).
		Context("operation", "reverse_lookup").
		Build()

	assert.Equal(t, "Geocoding Network Error Reverse Lookup", generateErrorTitle(ee))
}

func TestNetworkContextAnonymizesURL(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("dial tcp: connection refused")).
		NetworkContext("https://api.waqi.info/feed/geo:60.17;24.94/?token=secret", 10*time.Second).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "https-endpoint", ctx["url_category"])
	assert.InDelta(t, 10.0, ctx["timeout_seconds"], 0.001)
	assert.NotContains(t, fmt.Sprint(ctx), "secret")
}

func TestInitSentryRequiresDSN(t *testing.T) {
	err := InitSentry("", "ecocarto@test")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
