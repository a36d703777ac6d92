// Package session owns the lifecycle of per-call audio state: one
// reassembly buffer and one segmentation scheduler per active session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/callstreamhq/callstream/internal/observability"
	"github.com/callstreamhq/callstream/internal/segment"
)

var (
	// ErrSessionExists is returned by Start when the session ID is already
	// active. Colliding IDs are rejected rather than silently replaced.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when a frame targets an unknown session.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the per-call state: identifiers plus the buffer/scheduler pair.
// No two sessions share a buffer.
type Session struct {
	ID        string
	StartedAt time.Time

	scheduler *segment.Scheduler
}

// AddFrame buffers one audio frame for this session.
func (s *Session) AddFrame(f segment.Frame) {
	s.scheduler.AddFrame(f)
}

// FrameCount returns the pending frame count of the open segment.
func (s *Session) FrameCount() int {
	return s.scheduler.FrameCount()
}

// Manager maps session IDs to live sessions. The map itself is guarded by a
// single coarse lock; per-session processing never runs under it.
type Manager struct {
	cfg    segment.SchedulerConfig
	sink   segment.Sink
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager that hands flushed segments to sink.
func NewManager(cfg segment.SchedulerConfig, sink segment.Sink, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		sink:     sink,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Start creates a fresh buffer+scheduler pair for the session ID. A second
// Start for an active ID fails with ErrSessionExists.
func (m *Manager) Start(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; exists {
		return nil, ErrSessionExists
	}

	logger := m.logger.With().Str("session_id", sessionID).Logger()
	buf := segment.NewBuffer(sessionID)
	sess := &Session{
		ID:        sessionID,
		StartedAt: time.Now(),
		scheduler: segment.NewScheduler(buf, m.sink, m.cfg, logger),
	}
	m.sessions[sessionID] = sess

	observability.RecordSessionStart()
	logger.Info().Msg("Session started")
	return sess, nil
}

// AddFrame routes a frame to its session's buffer.
func (m *Manager) AddFrame(sessionID string, f segment.Frame) error {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.AddFrame(f)
	observability.RecordFrame(len(f.Payload))
	return nil
}

// Stop drives the scheduler's terminal flush and releases the session.
// Stopping an unknown session is an idempotent no-op: terminal signals can
// be duplicated or arrive after a disconnect.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Debug().Str("session_id", sessionID).Msg("Stop for unknown session ignored")
		return
	}

	// The terminal flush runs outside the map lock so one session's
	// teardown never stalls another session's start or frame routing.
	sess.scheduler.Stop()
	observability.RecordSessionEnd(time.Since(sess.StartedAt))
	m.logger.Info().
		Str("session_id", sessionID).
		Dur("duration", time.Since(sess.StartedAt)).
		Msg("Session stopped")
}

// Disconnect behaves identically to Stop. Unreliable transports may never
// deliver the terminal stop signal; a dropped connection must still flush.
func (m *Manager) Disconnect(sessionID string) {
	m.Stop(sessionID)
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every remaining session, flushing their trailing audio. Used
// on graceful shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Stop(id)
	}
}
