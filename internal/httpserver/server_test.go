package httpserver

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ecocarto/internal/app"
	"github.com/tphakala/ecocarto/internal/conf"
)

func newServices(t *testing.T) *app.Services {
	t.Helper()
	settings := &conf.Settings{}
	settings.Server.Host = "127.0.0.1"
	settings.Server.Port = "0"
	settings.Server.ShutdownTimeout = 2 * time.Second

	services, err := app.New(t.Context(), settings, "test", app.Options{})
	require.NoError(t, err)
	t.Cleanup(services.Close)
	return services
}

func TestServerLifecycle(t *testing.T) {
	services := newServices(t)

	srv, err := New(services)
	require.NoError(t, err)
	require.NotNil(t, srv.APIController())
	require.NoError(t, srv.Start())

	client := &http.Client{Timeout: 5 * time.Second}
	t.Cleanup(client.CloseIdleConnections)

	resp, err := client.Get("http://" + srv.Addr() + "/api/v1/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = client.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown())

	_, err = client.Get("http://" + srv.Addr() + "/api/v1/health")
	assert.Error(t, err, "server should refuse connections after shutdown")
}

func TestStartFailsOnBusyAddress(t *testing.T) {
	services := newServices(t)

	first, err := New(services)
	require.NoError(t, err)
	require.NoError(t, first.Start())
	t.Cleanup(func() { assert.NoError(t, first.Shutdown()) })

	services.Settings.Server.Port = portOf(t, first.Addr())
	second, err := New(services)
	require.NoError(t, err)
	assert.Error(t, second.Start())
}

func portOf(t *testing.T, addr string) string {
	t.Helper()
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return port
}
