// Package segment reassembles out-of-order telephony audio frames into
// time-ordered segments and decides when an accumulated segment is ready
// for downstream processing.
package segment

import (
	"sort"
	"sync"
	"time"
)

// Frame is a single chunk of μ-law audio received from the transport.
// Sequence numbers are caller-assigned and may arrive out of order or with
// gaps; frames are immutable once received.
type Frame struct {
	Sequence    int64
	TimestampMs int64
	Track       string
	Payload     []byte
}

// Segment is a flushed run of reassembled audio. Consumed exactly once by
// the decode/containerize pipeline, then discarded.
type Segment struct {
	SessionID  string
	Audio      []byte // μ-law bytes ordered by frame sequence number
	FrameCount int
	CreatedAt  time.Time
}

// Empty reports whether the segment carries no audio. Empty segments are a
// downstream no-op, not an error.
func (s Segment) Empty() bool {
	return len(s.Audio) == 0
}

// Buffer accumulates frames for the currently open segment. Frames are
// appended unsorted; ordering happens once per flush rather than per insert,
// since segments flush far less often than frames arrive. A gap in sequence
// numbers never blocks a flush — real-time audio must not stall on a
// dropped frame.
type Buffer struct {
	sessionID string

	mu      sync.Mutex
	pending []Frame
}

// NewBuffer creates an empty reassembly buffer for one session.
func NewBuffer(sessionID string) *Buffer {
	return &Buffer{sessionID: sessionID}
}

// Add appends a frame to the pending list. Duplicate sequence numbers are
// retained; the flush sort is stable, so duplicates keep arrival order.
func (b *Buffer) Add(f Frame) {
	b.mu.Lock()
	b.pending = append(b.pending, f)
	b.mu.Unlock()
}

// FrameCount returns the number of frames pending in the open segment.
func (b *Buffer) FrameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush sorts pending frames by sequence number, concatenates their payloads
// and returns the result as a Segment, resetting the buffer. Safe to call
// with zero pending frames; the returned Segment is then empty.
func (b *Buffer) Flush() Segment {
	b.mu.Lock()
	frames := b.pending
	b.pending = nil
	b.mu.Unlock()

	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Sequence < frames[j].Sequence
	})

	total := 0
	for _, f := range frames {
		total += len(f.Payload)
	}
	audio := make([]byte, 0, total)
	for _, f := range frames {
		audio = append(audio, f.Payload...)
	}

	return Segment{
		SessionID:  b.sessionID,
		Audio:      audio,
		FrameCount: len(frames),
		CreatedAt:  time.Now(),
	}
}
