package segment

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink receives flushed segments. Implementations must not block the
// caller for long: the scheduler hands segments off on the ingestion path.
type Sink interface {
	HandleSegment(seg Segment)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Segment)

// HandleSegment calls f(seg).
func (f SinkFunc) HandleSegment(seg Segment) { f(seg) }

// SchedulerConfig holds the time/size flush policy.
type SchedulerConfig struct {
	// Interval is the repeating flush timer period.
	Interval time.Duration
	// Guard is the minimum elapsed time between two flushes. Prevents
	// double-processing from overlapping ticks.
	Guard time.Duration
	// MinFrames is the minimum pending frame count for a timed flush.
	// Under-full segments are never force-flushed mid-session.
	MinFrames int
}

// DefaultSchedulerConfig returns the production flush policy.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:  4 * time.Second,
		Guard:     3 * time.Second,
		MinFrames: 100,
	}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	def := DefaultSchedulerConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Guard <= 0 {
		c.Guard = def.Guard
	}
	if c.MinFrames <= 0 {
		c.MinFrames = def.MinFrames
	}
	return c
}

// Scheduler drives the flush state machine for one session. It is Idle until
// the first frame arrives, then Accumulating with a repeating timer; each
// tick flushes only when both the frame-count and guard-interval conditions
// hold. Stop cancels the timer synchronously and force-flushes whatever
// remains, so no trailing audio is discarded at end of call.
type Scheduler struct {
	cfg    SchedulerConfig
	buf    *Buffer
	sink   Sink
	logger zerolog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	lastFlush time.Time
	ticker    *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler bound to one session's buffer and sink.
func NewScheduler(buf *Buffer, sink Sink, cfg SchedulerConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg.withDefaults(),
		buf:    buf,
		sink:   sink,
		logger: logger,
	}
}

// AddFrame buffers a frame and, on the first frame of the session, starts
// the flush timer. Frames arriving after Stop are dropped.
func (s *Scheduler) AddFrame(f Frame) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Debug().Int64("sequence", f.Sequence).Msg("Dropping frame received after session stop")
		return
	}
	s.buf.Add(f)
	if !s.started {
		s.started = true
		s.lastFlush = time.Now()
		s.ticker = time.NewTicker(s.cfg.Interval)
		s.done = make(chan struct{})
		s.wg.Add(1)
		go s.run()
	}
	s.mu.Unlock()
}

// FrameCount returns the pending frame count of the open segment.
func (s *Scheduler) FrameCount() int {
	return s.buf.FrameCount()
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.flush(false)
		case <-s.done:
			return
		}
	}
}

// flush emits the pending segment if the flush conditions hold (or
// unconditionally when forced). Taking the scheduler mutex for the whole
// check-and-flush keeps addFrame bookkeeping and timer ticks serialized.
func (s *Scheduler) flush(force bool) {
	s.mu.Lock()
	if !force {
		if s.buf.FrameCount() < s.cfg.MinFrames {
			s.mu.Unlock()
			return
		}
		if time.Since(s.lastFlush) < s.cfg.Guard {
			s.mu.Unlock()
			return
		}
	}
	seg := s.buf.Flush()
	s.lastFlush = time.Now()
	s.mu.Unlock()

	if seg.Empty() {
		return
	}

	s.logger.Debug().
		Int("frames", seg.FrameCount).
		Int("bytes", len(seg.Audio)).
		Bool("final", force).
		Msg("Flushing audio segment")
	s.sink.HandleSegment(seg)
}

// Stop performs the terminal transition: cancel the timer, wait for the tick
// goroutine to exit, then flush the remainder regardless of MinFrames. Safe
// to call more than once; later calls are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	if started {
		s.ticker.Stop()
		close(s.done)
	}
	s.mu.Unlock()

	if started {
		// The timer must be fully cancelled before the final flush so a
		// late tick can never touch the buffer afterwards.
		s.wg.Wait()
	}
	s.flush(true)
}
