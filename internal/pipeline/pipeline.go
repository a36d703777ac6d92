// Package pipeline consumes flushed audio segments asynchronously: decode
// μ-law to PCM, apply gain, wrap in a WAV container, persist the artifact,
// and submit the raw audio for speech recognition. Ingestion hands segments
// off to a bounded queue and never waits for this work.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/callstreamhq/callstream/internal/artifact"
	"github.com/callstreamhq/callstream/internal/audio"
	"github.com/callstreamhq/callstream/internal/observability"
	"github.com/callstreamhq/callstream/internal/resilience"
	"github.com/callstreamhq/callstream/internal/segment"
	"github.com/callstreamhq/callstream/internal/stt"
)

// Config holds pipeline tuning knobs.
type Config struct {
	Workers          int
	QueueSize        int
	SampleRate       int
	OutputGain       float64
	SilenceThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 8000
	}
	if c.OutputGain == 0 {
		c.OutputGain = 1.0
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = 500.0
	}
	return c
}

// Pipeline is the downstream consumer of flushed segments. It implements
// segment.Sink.
type Pipeline struct {
	cfg        Config
	recognizer stt.Recognizer // nil disables recognition
	store      artifact.Store // nil disables artifact persistence
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger

	queue chan segment.Segment
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a pipeline and starts its worker pool. The recognizer and
// store may each be nil, disabling that stage.
func New(cfg Config, recognizer stt.Recognizer, store artifact.Store, breaker *resilience.CircuitBreaker, logger zerolog.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("recognizer", 5, 30*time.Second)
	}
	p := &Pipeline{
		cfg:        cfg,
		recognizer: recognizer,
		store:      store,
		breaker:    breaker,
		logger:     logger,
		queue:      make(chan segment.Segment, cfg.QueueSize),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

// HandleSegment enqueues a segment for processing without blocking. A full
// queue drops the segment: backpressure must never reach the ingestion path.
func (p *Pipeline) HandleSegment(seg segment.Segment) {
	if seg.Empty() {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn().Str("session_id", seg.SessionID).Msg("Pipeline closed, dropping segment")
		observability.RecordSegmentDropped()
		return
	}

	select {
	case p.queue <- seg:
	default:
		p.logger.Warn().
			Str("session_id", seg.SessionID).
			Int("frames", seg.FrameCount).
			Msg("Pipeline queue full, dropping segment")
		observability.RecordSegmentDropped()
	}
	p.mu.Unlock()
}

// Close stops accepting segments, drains the queue, and waits for all
// workers to finish in-flight work.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for seg := range p.queue {
		p.process(context.Background(), seg)
	}
}

// process runs one segment through decode -> gain -> WAV -> store ->
// recognize. Failures are segment-scoped: they are logged and counted, and
// never affect ingestion or later segments. Failed segments are not retried.
func (p *Pipeline) process(ctx context.Context, seg segment.Segment) {
	logger := p.logger.With().
		Str("session_id", seg.SessionID).
		Int("frames", seg.FrameCount).
		Int("bytes", len(seg.Audio)).
		Logger()

	samples := audio.DecodeMulaw(seg.Audio)
	samples = audio.ApplyGain(samples, p.cfg.OutputGain)

	silent := audio.DetectSilence(samples, p.cfg.SilenceThreshold)
	logger.Debug().Bool("silent", silent).Msg("Segment decoded")

	ok := true
	wavBytes, err := audio.EncodeWAV(samples, p.cfg.SampleRate, 1, 16)
	if err != nil {
		// Unreachable for valid policy config; defensive only
		logger.Error().Err(err).Msg("Failed to encode WAV container")
		observability.RecordError("wav_encode_error", "pipeline")
		observability.RecordSegment(false, seg.FrameCount, len(seg.Audio))
		return
	}

	if p.store != nil {
		location, err := p.store.Save(ctx, seg.SessionID, seg.CreatedAt, wavBytes)
		if err != nil {
			ok = false
			logger.Error().Err(err).Msg("Failed to persist WAV artifact")
			observability.RecordError("artifact_write_error", "pipeline")
			observability.RecordArtifactWrite(p.store.Backend(), false)
		} else {
			logger.Info().Str("artifact", location).Msg("WAV artifact written")
			observability.RecordArtifactWrite(p.store.Backend(), true)
		}
	}

	if p.recognizer != nil && !silent {
		if err := p.recognize(ctx, seg, logger); err != nil {
			ok = false
		}
	}

	observability.RecordSegment(ok, seg.FrameCount, len(seg.Audio))
}

func (p *Pipeline) recognize(ctx context.Context, seg segment.Segment, logger zerolog.Logger) error {
	start := time.Now()
	var result *stt.Result

	err := p.breaker.Call(func() error {
		var err error
		result, err = p.recognizer.Recognize(ctx, seg.Audio)
		return err
	})
	observability.UpdateCircuitBreakerState(p.breaker.Name(), int(p.breaker.GetState()))
	observability.RecordRecognition(err == nil, time.Since(start))

	if err != nil {
		logger.Error().Err(err).Msg("Speech recognition failed")
		observability.RecordError("recognition_error", "pipeline")
		observability.IncrementCircuitBreakerFailures(p.breaker.Name())
		return err
	}

	if result.Transcript != "" {
		logger.Info().
			Str("transcript", result.Transcript).
			Float64("confidence", result.Confidence).
			Msg("Segment transcribed")
	}
	return nil
}
