package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callstream_active_sessions",
		Help: "Number of active audio sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callstream_sessions_total",
		Help: "Total number of sessions processed",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callstream_session_duration_seconds",
		Help:    "Duration of audio sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Frame metrics
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callstream_frames_total",
		Help: "Total number of audio frames ingested",
	})

	frameBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callstream_frame_bytes_total",
		Help: "Total audio payload bytes ingested",
	})

	malformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callstream_malformed_frames_total",
		Help: "Total frames dropped for bad base64 or empty payload",
	})

	// Segment metrics
	segmentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callstream_segments_processed_total",
		Help: "Total segments handed to the flush pipeline",
	}, []string{"status"})

	segmentFrames = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callstream_segment_frames",
		Help:    "Frames per flushed segment",
		Buckets: []float64{10, 50, 100, 200, 400, 800, 1600},
	})

	segmentBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callstream_segment_bytes",
		Help:    "Mu-law bytes per flushed segment",
		Buckets: []float64{1600, 8000, 16000, 32000, 64000, 128000, 256000},
	})

	segmentsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callstream_segments_dropped_total",
		Help: "Segments dropped because the pipeline queue was full",
	})

	// Recognition metrics
	recognitionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callstream_recognition_requests_total",
		Help: "Total number of speech recognition requests",
	}, []string{"status"})

	recognitionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callstream_recognition_latency_seconds",
		Help:    "Speech recognition latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Artifact metrics
	artifactWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callstream_artifact_writes_total",
		Help: "Total WAV artifacts written",
	}, []string{"backend", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callstream_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "callstream_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callstream_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordSessionStart records the start of a session.
func RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session.
func RecordSessionEnd(duration time.Duration) {
	activeSessions.Dec()
	sessionDuration.Observe(duration.Seconds())
}

// RecordFrame records one ingested audio frame.
func RecordFrame(payloadBytes int) {
	framesTotal.Inc()
	frameBytes.Add(float64(payloadBytes))
}

// RecordMalformedFrame records a frame dropped at the transport boundary.
func RecordMalformedFrame() {
	malformedFrames.Inc()
}

// RecordSegment records a segment processed by the flush pipeline.
func RecordSegment(success bool, frames, bytes int) {
	status := "success"
	if !success {
		status = "error"
	}
	segmentsProcessed.WithLabelValues(status).Inc()
	segmentFrames.Observe(float64(frames))
	segmentBytes.Observe(float64(bytes))
}

// RecordSegmentDropped records a segment lost to a full pipeline queue.
func RecordSegmentDropped() {
	segmentsDropped.Inc()
}

// RecordRecognition records the outcome and latency of a recognition call.
func RecordRecognition(success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	recognitionRequests.WithLabelValues(status).Inc()
	recognitionLatency.Observe(latency.Seconds())
}

// RecordArtifactWrite records a WAV artifact write attempt.
func RecordArtifactWrite(backend string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	artifactWrites.WithLabelValues(backend, status).Inc()
}

// RecordError records an error by type and component.
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state metric.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments the circuit breaker failure counter.
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
