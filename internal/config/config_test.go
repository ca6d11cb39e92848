package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CROPFLOW_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, 15*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, ResizeModeCrop, cfg.API.ResizeMode)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, int64(32<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, 75, cfg.Pipeline.JPEGQuality)
	assert.Equal(t, int64(50_000_000), cfg.Pipeline.MaxPixels)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "awskrug-cday", cfg.Storage.Bucket)
	assert.Empty(t, cfg.Storage.Endpoint)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CROPFLOW_CONFIG", "")
	t.Setenv("CROPFLOW_API_ADDR", ":9090")
	t.Setenv("CROPFLOW_RESIZE_MODE", "FIT")
	t.Setenv("CROPFLOW_FETCH_TIMEOUT", "3s")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("BUCKET_NAME", "thumbs")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.API.Addr)
	assert.Equal(t, ResizeModeFit, cfg.API.ResizeMode)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "cache", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, "thumbs", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UseSSL)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cropflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
addr = ":7000"

[pipeline]
jpeg_quality = 90
`), 0o600))

	t.Setenv("CROPFLOW_CONFIG", path)
	t.Setenv("CROPFLOW_JPEG_QUALITY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.API.Addr)
	assert.Equal(t, 90, cfg.Pipeline.JPEGQuality)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CROPFLOW_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("CROPFLOW_CONFIG", "")
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "unknown resize mode", mutate: func(c *Config) { c.API.ResizeMode = "stretch" }, errMsg: "api.resize_mode"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.Fetch.Timeout = 0 }, errMsg: "fetch.timeout"},
		{name: "quality too high", mutate: func(c *Config) { c.Pipeline.JPEGQuality = 101 }, errMsg: "jpeg_quality"},
		{name: "quality zero", mutate: func(c *Config) { c.Pipeline.JPEGQuality = 0 }, errMsg: "jpeg_quality"},
		{name: "negative max bytes", mutate: func(c *Config) { c.Fetch.MaxBytes = -1 }, errMsg: "fetch.max_bytes"},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Exporter = "zipkin" }, errMsg: "tracing.exporter"},
		{name: "zero max pixels", mutate: func(c *Config) { c.Pipeline.MaxPixels = 0 }, errMsg: "pipeline.max_pixels"},
		{name: "empty addr", mutate: func(c *Config) { c.API.Addr = " " }, errMsg: "api.addr"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidateReportsErrorsInStableOrder(t *testing.T) {
	t.Setenv("CROPFLOW_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.API.ReadTimeout = 0
	cfg.API.WriteTimeout = 0
	cfg.API.IdleTimeout = 0
	cfg.Fetch.Timeout = 0

	want := strings.Join([]string{
		"api.read_timeout must be positive, got 0s",
		"api.write_timeout must be positive, got 0s",
		"api.idle_timeout must be positive, got 0s",
		"fetch.timeout must be positive, got 0s",
	}, "\n")
	for range 20 {
		assert.Equal(t, want, cfg.Validate().Error())
	}
}
