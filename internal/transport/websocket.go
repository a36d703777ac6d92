// Package transport accepts media-stream WebSocket connections and maps
// their events onto session lifecycle calls. The wire format follows the
// Twilio Media Streams envelope: JSON messages with an "event" field and
// base64 μ-law payloads inside "media" events.
package transport

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/callstreamhq/callstream/internal/observability"
	"github.com/callstreamhq/callstream/internal/segment"
	"github.com/callstreamhq/callstream/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin against the carrier's IP ranges
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// StreamMessage is the envelope for every inbound WebSocket message.
type StreamMessage struct {
	Event          string      `json:"event"`
	StreamSid      string      `json:"streamSid,omitempty"`
	SequenceNumber string      `json:"sequenceNumber,omitempty"`
	Media          *MediaEvent `json:"media,omitempty"`
	Start          *StartEvent `json:"start,omitempty"`
	Stop           *StopEvent  `json:"stop,omitempty"`
}

// MediaEvent carries one base64-encoded μ-law audio chunk.
type MediaEvent struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"` // Alternative field name for chunk
}

// StartEvent is the payload of a "start" message.
type StartEvent struct {
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	Tracks           []string          `json:"tracks"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// StopEvent is the payload of a "stop" message.
type StopEvent struct {
	AccountSid string `json:"accountSid"`
	CallSid    string `json:"callSid"`
	StreamSid  string `json:"streamSid"`
}

// Handler bridges WebSocket connections to the session manager. Each
// connection owns at most one session; the read loop is the session's only
// frame producer.
type Handler struct {
	manager *session.Manager
	logger  zerolog.Logger
}

// NewHandler creates a WebSocket handler backed by the given session manager.
func NewHandler(manager *session.Manager, logger zerolog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// ServeHTTP upgrades the connection and runs the per-connection read loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	correlationID := observability.NewCorrelationID()
	logger := h.logger.With().Str("correlation_id", correlationID).Logger()
	logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Media stream connection established")

	h.readLoop(conn, logger)
}

// readLoop consumes messages until the peer closes, the socket errors, or a
// terminal stop arrives. A dropped connection flushes the session exactly
// like an explicit stop.
func (h *Handler) readLoop(conn *websocket.Conn, logger zerolog.Logger) {
	var sessionID string
	defer func() {
		if sessionID != "" {
			h.manager.Disconnect(sessionID)
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg StreamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Error().Err(err).Msg("Failed to parse stream message")
			continue
		}

		switch msg.Event {
		case "connected":
			logger.Info().Msg("Media stream handshake received")

		case "start":
			id := startSessionID(&msg)
			if id == "" {
				logger.Error().Msg("Start event missing stream identifier")
				return
			}
			if _, err := h.manager.Start(id); err != nil {
				if errors.Is(err, session.ErrSessionExists) {
					logger.Warn().Str("session_id", id).Msg("Duplicate start for active session, closing connection")
				} else {
					logger.Error().Err(err).Str("session_id", id).Msg("Failed to start session")
				}
				return
			}
			sessionID = id
			logger.Info().Str("session_id", id).Msg("Media stream started")

		case "media":
			if sessionID == "" {
				logger.Debug().Msg("Media event before start, dropping")
				continue
			}
			frame, err := parseFrame(&msg)
			if err != nil {
				observability.RecordMalformedFrame()
				logger.Warn().Err(err).Str("session_id", sessionID).Msg("Dropping malformed frame")
				continue
			}
			if err := h.manager.AddFrame(sessionID, frame); err != nil {
				logger.Warn().Err(err).Str("session_id", sessionID).Msg("Frame routing failed")
			}

		case "stop":
			logger.Info().Str("session_id", sessionID).Msg("Media stream stopped")
			if sessionID != "" {
				h.manager.Stop(sessionID)
				sessionID = ""
			}
			return

		default:
			logger.Debug().Str("event", msg.Event).Msg("Ignoring unknown stream event")
		}
	}
}

// startSessionID picks the session identifier from a start event, preferring
// the stream SID over the call SID.
func startSessionID(msg *StreamMessage) string {
	if msg.Start != nil {
		if msg.Start.StreamSid != "" {
			return msg.Start.StreamSid
		}
		if msg.Start.CallSid != "" {
			return msg.Start.CallSid
		}
	}
	return msg.StreamSid
}

// parseFrame converts a media event into an audio frame. Any defect in the
// message (missing media, bad sequence number, bad base64, empty payload)
// fails just this frame.
func parseFrame(msg *StreamMessage) (segment.Frame, error) {
	if msg.Media == nil {
		return segment.Frame{}, errors.New("media event missing media payload")
	}

	seq, err := strconv.ParseInt(msg.SequenceNumber, 10, 64)
	if err != nil {
		return segment.Frame{}, errors.New("invalid sequence number: " + msg.SequenceNumber)
	}

	var timestampMs int64
	if msg.Media.Timestamp != "" {
		timestampMs, err = strconv.ParseInt(msg.Media.Timestamp, 10, 64)
		if err != nil {
			return segment.Frame{}, errors.New("invalid media timestamp: " + msg.Media.Timestamp)
		}
	}

	encoded := msg.Media.Chunk
	if encoded == "" {
		encoded = msg.Media.Payload
	}
	if encoded == "" {
		return segment.Frame{}, errors.New("media event missing chunk/payload")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return segment.Frame{}, errors.New("invalid base64 payload: " + err.Error())
	}
	if len(payload) == 0 {
		return segment.Frame{}, errors.New("empty audio payload")
	}

	return segment.Frame{
		Sequence:    seq,
		TimestampMs: timestampMs,
		Track:       msg.Media.Track,
		Payload:     payload,
	}, nil
}
