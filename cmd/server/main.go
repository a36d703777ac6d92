package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/callstreamhq/callstream/internal/artifact"
	"github.com/callstreamhq/callstream/internal/config"
	"github.com/callstreamhq/callstream/internal/observability"
	"github.com/callstreamhq/callstream/internal/pipeline"
	"github.com/callstreamhq/callstream/internal/resilience"
	"github.com/callstreamhq/callstream/internal/segment"
	"github.com/callstreamhq/callstream/internal/session"
	"github.com/callstreamhq/callstream/internal/stt"
	"github.com/callstreamhq/callstream/internal/transport"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("artifact_backend", cfg.ArtifactBackend).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Callstream service starting")

	// Artifact store: filesystem by default, S3 when configured
	store, err := newArtifactStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize artifact store")
	}

	// Speech recognition is optional; without an API key segments are still
	// decoded and containerized, just not transcribed.
	var recognizer stt.Recognizer
	if cfg.DeepgramAPIKey != "" {
		dg, err := stt.NewDeepgramClient(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize Deepgram client")
		}
		recognizer = dg
		logger.Info().Str("model", cfg.DeepgramModel).Msg("Speech recognition enabled")
	} else {
		logger.Warn().Msg("DEEPGRAM_API_KEY not set, speech recognition disabled")
	}

	breaker := resilience.NewCircuitBreaker(
		"recognizer",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	flushPipeline := pipeline.New(pipeline.Config{
		Workers:          cfg.PipelineWorkers,
		QueueSize:        cfg.PipelineQueueSize,
		SampleRate:       cfg.SampleRate,
		OutputGain:       cfg.OutputGain,
		SilenceThreshold: cfg.SilenceThreshold,
	}, recognizer, store, breaker, logger)

	manager := session.NewManager(segment.SchedulerConfig{
		Interval:  cfg.SegmentInterval(),
		Guard:     cfg.SegmentGuard(),
		MinFrames: cfg.SegmentMinFrames,
	}, flushPipeline, logger)

	// HTTP surface: media-stream WebSocket plus health/readiness/metrics
	mux := http.NewServeMux()
	mux.Handle("/streams/media", transport.NewHandler(manager, logger))
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"artifact_store": func(ctx context.Context) (bool, error) {
			return store != nil, nil
		},
		"recognizer": func(ctx context.Context) (bool, error) {
			if recognizer == nil {
				// Disabled is a valid configuration, not an outage
				return true, nil
			}
			return breaker.GetState() != resilience.StateOpen, nil
		},
	}))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/streams/media", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in dependency order: stop accepting frames, flush every live
	// session, then let the pipeline finish queued segments.
	manager.Close()
	flushPipeline.Close()

	logger.Info().Msg("Server exited gracefully")
}

func newArtifactStore(cfg *config.Config) (artifact.Store, error) {
	switch cfg.ArtifactBackend {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return artifact.NewS3Store(ctx, cfg.ArtifactS3Bucket, cfg.ArtifactS3Prefix, cfg.AWSRegion)
	default:
		return artifact.NewFSStore(cfg.ArtifactDir)
	}
}
