package stt

import "context"

// Result is the outcome of recognizing one audio segment.
type Result struct {
	// Transcript is the best-effort transcribed text; may be empty for
	// silent or unintelligible audio.
	Transcript string

	// Confidence is the recognizer's confidence score in [0, 1].
	Confidence float64
}

// Recognizer transcribes a flushed segment of raw μ-law audio
// (8000 Hz, mono). Implementations must be safe for concurrent use: the
// flush pipeline calls Recognize from multiple workers.
type Recognizer interface {
	Recognize(ctx context.Context, mulawAudio []byte) (*Result, error)
}
