package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the callstream service.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Segmentation policy. Each session accumulates frames and flushes a
	// segment when a timer tick finds at least SegmentMinFrames pending and
	// at least SegmentGuardMs elapsed since the previous flush.
	SegmentIntervalMs int `envconfig:"SEGMENT_INTERVAL_MS" default:"4000"`
	SegmentGuardMs    int `envconfig:"SEGMENT_GUARD_MS" default:"3000"`
	SegmentMinFrames  int `envconfig:"SEGMENT_MIN_FRAMES" default:"100"`

	// Audio configuration. Telephony μ-law is 8kHz mono.
	SampleRate int     `envconfig:"SAMPLE_RATE" default:"8000"`
	OutputGain float64 `envconfig:"OUTPUT_GAIN" default:"1.0"` // applied to PCM before WAV synthesis
	// RMS threshold below which a segment is annotated as silence
	SilenceThreshold float64 `envconfig:"SILENCE_THRESHOLD" default:"500.0"`

	// Flush pipeline configuration
	PipelineWorkers   int `envconfig:"PIPELINE_WORKERS" default:"4"`
	PipelineQueueSize int `envconfig:"PIPELINE_QUEUE_SIZE" default:"64"`

	// Deepgram speech recognition. Recognition is disabled when the API key
	// is empty; the pipeline still decodes and containerizes audio.
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Artifact store. "fs" writes WAV files under ArtifactDir; "s3" uploads
	// to ArtifactS3Bucket.
	ArtifactBackend  string `envconfig:"ARTIFACT_BACKEND" default:"fs"`
	ArtifactDir      string `envconfig:"ARTIFACT_DIR" default:"artifacts"`
	ArtifactS3Bucket string `envconfig:"ARTIFACT_S3_BUCKET" default:""`
	ArtifactS3Prefix string `envconfig:"ARTIFACT_S3_PREFIX" default:"segments"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment, first merging in a .env
// file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without reading a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.SegmentIntervalMs <= 0 {
		return fmt.Errorf("SEGMENT_INTERVAL_MS must be positive, got %d", c.SegmentIntervalMs)
	}
	if c.SegmentGuardMs <= 0 {
		return fmt.Errorf("SEGMENT_GUARD_MS must be positive, got %d", c.SegmentGuardMs)
	}
	if c.SegmentMinFrames <= 0 {
		return fmt.Errorf("SEGMENT_MIN_FRAMES must be positive, got %d", c.SegmentMinFrames)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	switch c.ArtifactBackend {
	case "fs":
		if c.ArtifactDir == "" {
			return fmt.Errorf("ARTIFACT_DIR is required with the fs backend")
		}
	case "s3":
		if c.ArtifactS3Bucket == "" {
			return fmt.Errorf("ARTIFACT_S3_BUCKET is required with the s3 backend")
		}
	default:
		return fmt.Errorf("unknown ARTIFACT_BACKEND %q (expected fs or s3)", c.ArtifactBackend)
	}
	return nil
}

// SegmentInterval returns the flush timer period.
func (c *Config) SegmentInterval() time.Duration {
	return time.Duration(c.SegmentIntervalMs) * time.Millisecond
}

// SegmentGuard returns the minimum interval between flushes.
func (c *Config) SegmentGuard() time.Duration {
	return time.Duration(c.SegmentGuardMs) * time.Millisecond
}
