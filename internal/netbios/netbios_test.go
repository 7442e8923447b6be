package netbios

import (
	"bytes"
	"testing"
)

// TestFrameUnframeRoundTrip checks invariant 2: framing then unframing
// recovers the original payload.
func TestFrameUnframeRoundTrip(t *testing.T) {
	payload := []byte("hello smb2")

	framed, err := Frame(payload)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if len(framed) != HeaderSize+len(payload) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(payload), len(framed))
	}

	frames, residual, err := Unframe(framed)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(residual) != 0 {
		t.Errorf("expected no residual, got %d bytes", len(residual))
	}
	if len(frames) != 1 || !bytes.Equal(frames[0], payload) {
		t.Errorf("expected single frame %q, got %v", payload, frames)
	}
}

// TestUnframeMultipleFrames checks scenario S1: three back-to-back
// messages arriving in one read are unframed into three payloads.
func TestUnframeMultipleFrames(t *testing.T) {
	a, _ := Frame([]byte("first"))
	b, _ := Frame([]byte("second"))
	c, _ := Frame([]byte("third"))

	buf := append(append(append([]byte{}, a...), b...), c...)

	frames, residual, err := Unframe(buf)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(residual) != 0 {
		t.Errorf("expected no residual, got %d bytes", len(residual))
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if string(frames[i]) != w {
			t.Errorf("frame %d = %q, want %q", i, frames[i], w)
		}
	}
}

// TestUnframePartialHeader checks that a short buffer is returned whole as
// residual with no frames extracted.
func TestUnframePartialHeader(t *testing.T) {
	frames, residual, err := Unframe([]byte{0x00, 0x00})
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}
	if len(residual) != 2 {
		t.Errorf("expected 2-byte residual, got %d", len(residual))
	}
}

// TestUnframePartialBody checks that a complete header with an incomplete
// body is held back as residual rather than returned as a short frame.
func TestUnframePartialBody(t *testing.T) {
	full, _ := Frame([]byte("0123456789"))
	partial := full[:HeaderSize+4]

	frames, residual, err := Unframe(partial)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("expected no complete frames, got %d", len(frames))
	}
	if !bytes.Equal(residual, partial) {
		t.Error("expected the whole partial buffer back as residual")
	}
}

// TestUnframeResidualAcrossReads simulates feeding data in two chunks: a
// frame plus the start of the next, then the rest of the next frame.
func TestUnframeResidualAcrossReads(t *testing.T) {
	a, _ := Frame([]byte("complete"))
	b, _ := Frame([]byte("split-across-two-reads"))

	firstChunk := append(append([]byte{}, a...), b[:6]...)
	frames, residual, err := Unframe(firstChunk)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(frames) != 1 || string(frames[0]) != "complete" {
		t.Fatalf("expected one frame %q, got %v", "complete", frames)
	}

	secondChunk := append(append([]byte{}, residual...), b[6:]...)
	frames, residual, err = Unframe(secondChunk)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(residual) != 0 {
		t.Errorf("expected no residual, got %d bytes", len(residual))
	}
	if len(frames) != 1 || string(frames[0]) != "split-across-two-reads" {
		t.Fatalf("expected reassembled frame, got %v", frames)
	}
}

func TestIsTransformHeader(t *testing.T) {
	if !IsTransformHeader([]byte{0xFD, 'S', 'M', 'B', 0, 0, 0, 0}) {
		t.Error("expected transform header to be detected")
	}
	if IsTransformHeader([]byte{0xFE, 'S', 'M', 'B', 0, 0, 0, 0}) {
		t.Error("plain SMB2 header should not be detected as transform")
	}
	if IsTransformHeader([]byte{0xFD}) {
		t.Error("short buffer should not be detected as transform")
	}
}

func TestUnframeInvalidType(t *testing.T) {
	buf := []byte{0x81, 0x00, 0x00, 0x00}
	if _, _, err := Unframe(buf); err != ErrInvalidType {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}
