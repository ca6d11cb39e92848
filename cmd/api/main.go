package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/cropflow/internal/api"
	"github.com/dunamismax/cropflow/internal/cache"
	"github.com/dunamismax/cropflow/internal/config"
	"github.com/dunamismax/cropflow/internal/pipeline"
	"github.com/dunamismax/cropflow/internal/storage"
	"github.com/dunamismax/cropflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}

	logger := newLogger(cfg.Log)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer provider shutdown failed")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ins := telemetry.NewInstrumenter(otel.Tracer("cropflow/pipeline"), registry)

	if err := pipeline.Startup(); err != nil {
		logger.Fatal().Err(err).Msg("image runtime startup failed")
	}
	defer pipeline.Shutdown()

	redisClient := cache.NewClient(cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis client close failed")
		}
	}()
	checks := map[string]api.Checker{"redis": redisClient}

	fetcher := pipeline.NewSchemeFetcher().Register(pipeline.NewHTTPFetcher(pipeline.HTTPFetcherConfig{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	}), "http", "https")

	storageCfg := storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	}
	if storageCfg.Enabled() {
		objects, err := storage.NewClient(storageCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("object storage setup failed")
		}
		fetcher.Register(pipeline.ObjectStoreFetcher{
			Storage:  objects,
			Timeout:  cfg.Fetch.Timeout,
			MaxBytes: cfg.Fetch.MaxBytes,
		}, pipeline.SchemeS3)
		checks["storage"] = objects
		logger.Info().Str("endpoint", storageCfg.Endpoint).Str("bucket", storageCfg.Bucket).Msg("object storage sources enabled")
	}

	processor, err := pipeline.NewProcessor(pipeline.Config{
		TempDir:     cfg.Pipeline.TempDir,
		JPEGQuality: cfg.Pipeline.JPEGQuality,
		MaxPixels:   cfg.Pipeline.MaxPixels,
	}, fetcher, nil, ins)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline setup failed")
	}

	app := api.NewServer(processor, api.Options{
		Logger:     logger,
		Tracer:     otel.Tracer("cropflow/api"),
		Registry:   registry,
		ResizeMode: cfg.API.ResizeMode,
		Checks:     checks,
	})

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.API.Addr).Str("resize_mode", cfg.API.ResizeMode).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", "cropflow").Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "cropflow").Logger()
}
