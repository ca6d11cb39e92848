package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ResizeModeCrop = "crop"
	ResizeModeFit  = "fit"
)

type Config struct {
	API      APIConfig
	Fetch    FetchConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Tracing  TracingConfig
	Log      LogConfig
}

type APIConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	ResizeMode   string
}

type FetchConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type PipelineConfig struct {
	TempDir     string
	JPEGQuality int
	MaxPixels   int64
}

type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string
	SampleRatio  float64
}

type LogConfig struct {
	Level  string
	Format string
}

type binding struct {
	key      string
	env      string
	fallback any
}

var bindings = []binding{
	{"api.addr", "CROPFLOW_API_ADDR", ":8080"},
	{"api.read_timeout", "CROPFLOW_API_READ_TIMEOUT", 15 * time.Second},
	{"api.write_timeout", "CROPFLOW_API_WRITE_TIMEOUT", 30 * time.Second},
	{"api.idle_timeout", "CROPFLOW_API_IDLE_TIMEOUT", 60 * time.Second},
	{"api.resize_mode", "CROPFLOW_RESIZE_MODE", ResizeModeCrop},

	{"fetch.timeout", "CROPFLOW_FETCH_TIMEOUT", 20 * time.Second},
	{"fetch.max_bytes", "CROPFLOW_FETCH_MAX_BYTES", int64(32 << 20)},
	{"fetch.user_agent", "CROPFLOW_FETCH_USER_AGENT", "cropflow/1.0"},

	{"pipeline.temp_dir", "CROPFLOW_TEMP_DIR", ""},
	{"pipeline.jpeg_quality", "CROPFLOW_JPEG_QUALITY", 75},
	{"pipeline.max_pixels", "CROPFLOW_MAX_PIXELS", int64(50_000_000)},

	{"redis.host", "REDIS_HOST", "localhost"},
	{"redis.port", "REDIS_PORT", 6379},
	{"redis.db", "REDIS_DB", 0},
	{"redis.password", "REDIS_PASSWORD", ""},

	{"storage.endpoint", "MINIO_ENDPOINT", ""},
	{"storage.access_key", "MINIO_ACCESS_KEY", ""},
	{"storage.secret_key", "MINIO_SECRET_KEY", ""},
	{"storage.bucket", "BUCKET_NAME", "awskrug-cday"},
	{"storage.use_ssl", "MINIO_USE_SSL", false},

	{"tracing.exporter", "TRACE_EXPORTER", "none"},
	{"tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", ""},
	{"tracing.otlp_insecure", "OTEL_EXPORTER_OTLP_INSECURE", false},
	{"tracing.service_name", "OTEL_SERVICE_NAME", "cropflow"},
	{"tracing.sample_ratio", "OTEL_TRACES_SAMPLER_ARG", 1.0},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},
}

// Load reads defaults, the optional file named by CROPFLOW_CONFIG and the
// environment, in increasing order of precedence.
func Load() (Config, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.fallback)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("CROPFLOW_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			v.SetConfigType(ext)
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		API: APIConfig{
			Addr:         v.GetString("api.addr"),
			ReadTimeout:  v.GetDuration("api.read_timeout"),
			WriteTimeout: v.GetDuration("api.write_timeout"),
			IdleTimeout:  v.GetDuration("api.idle_timeout"),
			ResizeMode:   strings.ToLower(strings.TrimSpace(v.GetString("api.resize_mode"))),
		},
		Fetch: FetchConfig{
			Timeout:   v.GetDuration("fetch.timeout"),
			MaxBytes:  v.GetInt64("fetch.max_bytes"),
			UserAgent: v.GetString("fetch.user_agent"),
		},
		Pipeline: PipelineConfig{
			TempDir:     v.GetString("pipeline.temp_dir"),
			JPEGQuality: v.GetInt("pipeline.jpeg_quality"),
			MaxPixels:   v.GetInt64("pipeline.max_pixels"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			DB:       v.GetInt("redis.db"),
			Password: v.GetString("redis.password"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Bucket:    v.GetString("storage.bucket"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
		Tracing: TracingConfig{
			Exporter:     strings.ToLower(strings.TrimSpace(v.GetString("tracing.exporter"))),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			OTLPInsecure: v.GetBool("tracing.otlp_insecure"),
			ServiceName:  v.GetString("tracing.service_name"),
			SampleRatio:  v.GetFloat64("tracing.sample_ratio"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.API.Addr) == "" {
		errs = append(errs, errors.New("api.addr is required"))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"api.read_timeout", c.API.ReadTimeout},
		{"api.write_timeout", c.API.WriteTimeout},
		{"api.idle_timeout", c.API.IdleTimeout},
		{"fetch.timeout", c.Fetch.Timeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}
	switch c.API.ResizeMode {
	case ResizeModeCrop, ResizeModeFit:
	default:
		errs = append(errs, fmt.Errorf("api.resize_mode must be %q or %q, got %q", ResizeModeCrop, ResizeModeFit, c.API.ResizeMode))
	}
	if c.Fetch.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes))
	}
	if c.Pipeline.JPEGQuality < 1 || c.Pipeline.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("pipeline.jpeg_quality must be within 1..100, got %d", c.Pipeline.JPEGQuality))
	}
	if c.Pipeline.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_pixels must be positive, got %d", c.Pipeline.MaxPixels))
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is not supported", c.Tracing.Exporter))
	}

	return errors.Join(errs...)
}
