package segment

import (
	"bytes"
	"testing"
)

func TestBuffer_FlushOrdersBySequence(t *testing.T) {
	b := NewBuffer("call-1")
	b.Add(Frame{Sequence: 3, Payload: []byte{'C'}})
	b.Add(Frame{Sequence: 1, Payload: []byte{'A'}})
	b.Add(Frame{Sequence: 2, Payload: []byte{'B'}})

	seg := b.Flush()
	if !bytes.Equal(seg.Audio, []byte("ABC")) {
		t.Errorf("expected ordered bytes %q, got %q", "ABC", seg.Audio)
	}
	if seg.FrameCount != 3 {
		t.Errorf("expected frame count 3, got %d", seg.FrameCount)
	}
	if seg.SessionID != "call-1" {
		t.Errorf("expected session id call-1, got %q", seg.SessionID)
	}
}

func TestBuffer_FlushEmpty(t *testing.T) {
	b := NewBuffer("call-1")

	seg := b.Flush()
	if !seg.Empty() {
		t.Error("expected empty segment from empty buffer")
	}
	if seg.FrameCount != 0 {
		t.Errorf("expected frame count 0, got %d", seg.FrameCount)
	}
}

func TestBuffer_DuplicateSequenceKeepsArrivalOrder(t *testing.T) {
	b := NewBuffer("call-1")
	b.Add(Frame{Sequence: 1, Payload: []byte{'X'}})
	b.Add(Frame{Sequence: 2, Payload: []byte{'1'}})
	b.Add(Frame{Sequence: 2, Payload: []byte{'2'}})
	b.Add(Frame{Sequence: 3, Payload: []byte{'Y'}})

	seg := b.Flush()
	if !bytes.Equal(seg.Audio, []byte("X12Y")) {
		t.Errorf("expected duplicates in arrival order %q, got %q", "X12Y", seg.Audio)
	}
}

func TestBuffer_GapsDoNotBlock(t *testing.T) {
	b := NewBuffer("call-1")
	b.Add(Frame{Sequence: 10, Payload: []byte{'A'}})
	b.Add(Frame{Sequence: 500, Payload: []byte{'B'}})

	seg := b.Flush()
	if !bytes.Equal(seg.Audio, []byte("AB")) {
		t.Errorf("expected %q despite sequence gap, got %q", "AB", seg.Audio)
	}
}

func TestBuffer_FlushResetsPending(t *testing.T) {
	b := NewBuffer("call-1")
	b.Add(Frame{Sequence: 1, Payload: []byte{'A'}})
	b.Flush()

	if b.FrameCount() != 0 {
		t.Errorf("expected 0 pending frames after flush, got %d", b.FrameCount())
	}

	b.Add(Frame{Sequence: 2, Payload: []byte{'B'}})
	seg := b.Flush()
	if !bytes.Equal(seg.Audio, []byte("B")) {
		t.Errorf("expected only post-flush frames, got %q", seg.Audio)
	}
}
