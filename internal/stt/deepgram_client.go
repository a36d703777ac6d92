package stt

import (
	"bytes"
	"context"
	"fmt"

	listenRest "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/callstreamhq/callstream/internal/config"
)

// DeepgramClient implements Recognizer using Deepgram's pre-recorded
// transcription API. Segments are self-contained chunks of audio, so each
// one is submitted as an independent request rather than over a live
// streaming connection.
type DeepgramClient struct {
	cfg        *config.Config
	client     *listenRest.Client
	sampleRate int
}

// NewDeepgramClient creates a Deepgram recognizer from service config.
func NewDeepgramClient(cfg *config.Config) (*DeepgramClient, error) {
	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}

	c := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})
	return &DeepgramClient{
		cfg:        cfg,
		client:     listenRest.New(c),
		sampleRate: cfg.SampleRate,
	}, nil
}

// Recognize transcribes one segment of raw μ-law audio.
func (d *DeepgramClient) Recognize(ctx context.Context, mulawAudio []byte) (*Result, error) {
	if len(mulawAudio) == 0 {
		return &Result{}, nil
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:      d.cfg.DeepgramModel,
		Language:   d.cfg.DeepgramLanguage,
		Punctuate:  true,
		Encoding:   "mulaw",
		SampleRate: d.sampleRate,
		Channels:   1,
	}

	res, err := d.client.FromStream(ctx, bytes.NewReader(mulawAudio), options)
	if err != nil {
		return nil, fmt.Errorf("deepgram transcription failed: %w", err)
	}

	if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return &Result{}, nil
	}

	alt := res.Results.Channels[0].Alternatives[0]
	return &Result{
		Transcript: alt.Transcript,
		Confidence: alt.Confidence,
	}, nil
}
