package segment

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// collectSink records flushed segments for assertions.
type collectSink struct {
	mu       sync.Mutex
	segments []Segment
}

func (c *collectSink) HandleSegment(seg Segment) {
	c.mu.Lock()
	c.segments = append(c.segments, seg)
	c.mu.Unlock()
}

func (c *collectSink) all() []Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

func testScheduler(sessionID string, cfg SchedulerConfig) (*Scheduler, *collectSink) {
	sink := &collectSink{}
	buf := NewBuffer(sessionID)
	return NewScheduler(buf, sink, cfg, zerolog.Nop()), sink
}

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	if cfg.Interval != 4*time.Second {
		t.Errorf("expected 4s interval, got %v", cfg.Interval)
	}
	if cfg.Guard != 3*time.Second {
		t.Errorf("expected 3s guard, got %v", cfg.Guard)
	}
	if cfg.MinFrames != 100 {
		t.Errorf("expected 100 min frames, got %d", cfg.MinFrames)
	}
}

func TestSinkFunc_TerminalFlush(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Segment
	)
	sink := SinkFunc(func(seg Segment) {
		mu.Lock()
		seen = append(seen, seg)
		mu.Unlock()
	})

	s := NewScheduler(NewBuffer("call-1"), sink, SchedulerConfig{}, zerolog.Nop())
	s.AddFrame(Frame{Sequence: 1, Payload: []byte{'A'}})
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0].FrameCount != 1 {
		t.Fatalf("expected one segment through the func sink, got %+v", seen)
	}
}

func TestScheduler_TimedFlushAfterMinFrames(t *testing.T) {
	cfg := SchedulerConfig{Interval: 20 * time.Millisecond, Guard: 10 * time.Millisecond, MinFrames: 100}
	s, sink := testScheduler("call-1", cfg)

	for i := 0; i < 250; i++ {
		s.AddFrame(Frame{Sequence: int64(i), Payload: []byte{byte(i)}})
	}

	// Wait for at least one tick to fire
	time.Sleep(60 * time.Millisecond)

	segments := sink.all()
	if len(segments) == 0 {
		t.Fatal("expected at least one timed flush")
	}

	total := 0
	for _, seg := range segments {
		if seg.FrameCount > 250 {
			t.Errorf("segment contains %d frames, more than were added", seg.FrameCount)
		}
		total += seg.FrameCount
	}
	if total > 250 {
		t.Errorf("flushed %d frames in total, more than were added", total)
	}

	s.Stop()
}

func TestScheduler_UnderfullTickDoesNotFlush(t *testing.T) {
	cfg := SchedulerConfig{Interval: 15 * time.Millisecond, Guard: 5 * time.Millisecond, MinFrames: 100}
	s, sink := testScheduler("call-1", cfg)

	// Below MinFrames: ticks must skip silently
	for i := 0; i < 40; i++ {
		s.AddFrame(Frame{Sequence: int64(i), Payload: []byte{byte(i)}})
	}
	time.Sleep(50 * time.Millisecond)

	if got := len(sink.all()); got != 0 {
		t.Fatalf("expected no timed flush below MinFrames, got %d", got)
	}
	if s.FrameCount() != 40 {
		t.Errorf("expected 40 frames still pending, got %d", s.FrameCount())
	}

	// Terminal stop flushes unconditionally
	s.Stop()
	segments := sink.all()
	if len(segments) != 1 {
		t.Fatalf("expected exactly one final flush on stop, got %d", len(segments))
	}
	if segments[0].FrameCount != 40 {
		t.Errorf("expected final segment with 40 frames, got %d", segments[0].FrameCount)
	}
}

func TestScheduler_StopWithoutFramesEmitsNothing(t *testing.T) {
	s, sink := testScheduler("call-1", SchedulerConfig{})
	s.Stop()

	if got := len(sink.all()); got != 0 {
		t.Errorf("expected no segments from an idle session, got %d", got)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	cfg := SchedulerConfig{Interval: 10 * time.Millisecond, Guard: 5 * time.Millisecond, MinFrames: 5}
	s, sink := testScheduler("call-1", cfg)

	s.AddFrame(Frame{Sequence: 1, Payload: []byte{'A'}})
	s.Stop()
	s.Stop()

	if got := len(sink.all()); got != 1 {
		t.Fatalf("expected exactly one final flush, got %d", got)
	}
}

func TestScheduler_DropsFramesAfterStop(t *testing.T) {
	s, sink := testScheduler("call-1", SchedulerConfig{})
	s.AddFrame(Frame{Sequence: 1, Payload: []byte{'A'}})
	s.Stop()

	s.AddFrame(Frame{Sequence: 2, Payload: []byte{'B'}})
	if s.FrameCount() != 0 {
		t.Errorf("expected frames after stop to be dropped, %d pending", s.FrameCount())
	}

	segments := sink.all()
	if len(segments) != 1 || segments[0].FrameCount != 1 {
		t.Fatalf("expected one final segment with the pre-stop frame, got %+v", segments)
	}
}

func TestScheduler_GuardIntervalLimitsFlushRate(t *testing.T) {
	cfg := SchedulerConfig{Interval: 10 * time.Millisecond, Guard: 200 * time.Millisecond, MinFrames: 1}
	s, sink := testScheduler("call-1", cfg)

	// Keep the buffer above MinFrames across several ticks; the guard
	// interval must keep all but the first eligible flush from firing.
	for i := 0; i < 10; i++ {
		s.AddFrame(Frame{Sequence: int64(i), Payload: []byte{byte(i)}})
	}
	time.Sleep(100 * time.Millisecond)

	if got := len(sink.all()); got > 1 {
		t.Errorf("expected at most one flush within the guard interval, got %d", got)
	}

	s.Stop()
}
