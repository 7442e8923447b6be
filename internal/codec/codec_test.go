package codec

import (
	"testing"
	"time"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.Uint8(0x42).Uint16(0x1234).Uint32(0xdeadbeef).Uint64(0x0102030405060708)
	w.Raw([]byte{0xaa, 0xbb}).Fixed([]byte{0xcc}, 4).Pad(2)

	r := NewReader(w.Bytes())
	if got := r.Uint8(); got != 0x42 {
		t.Errorf("Uint8() = %#x, want 0x42", got)
	}
	if got := r.Uint16(); got != 0x1234 {
		t.Errorf("Uint16() = %#x, want 0x1234", got)
	}
	if got := r.Uint32(); got != 0xdeadbeef {
		t.Errorf("Uint32() = %#x, want 0xdeadbeef", got)
	}
	if got := r.Uint64(); got != 0x0102030405060708 {
		t.Errorf("Uint64() = %#x, want 0x0102030405060708", got)
	}
	if got := r.Bytes(2); got[0] != 0xaa || got[1] != 0xbb {
		t.Errorf("Bytes(2) = %v, want [0xaa 0xbb]", got)
	}
	if got := r.Bytes(4); got[0] != 0xcc || got[1] != 0 || got[2] != 0 || got[3] != 0 {
		t.Errorf("Fixed field = %v, want [0xcc 0 0 0]", got)
	}
	r.Skip(2)
	if err := r.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
	if got := r.Off(); got != w.Len() {
		t.Errorf("Off() = %d, want %d", got, w.Len())
	}
}

func TestReaderShortBufferIsSticky(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	r.Uint32() // needs 4 bytes, buffer has 2
	if r.Err() != ErrShortBuffer {
		t.Fatalf("Err() = %v, want ErrShortBuffer", r.Err())
	}
	if got := r.Uint64(); got != 0 {
		t.Errorf("Uint64() after short read = %d, want 0", got)
	}
	if r.Err() != ErrShortBuffer {
		t.Fatalf("Err() after further reads = %v, want ErrShortBuffer to stick", r.Err())
	}
}

func TestFiletimeZeroIsWindowsEpoch(t *testing.T) {
	want := time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := FiletimeToTime(0); !got.Equal(want) {
		t.Errorf("FiletimeToTime(0) = %v, want %v", got, want)
	}
	if got := TimeToFiletime(want); got != 0 {
		t.Errorf("TimeToFiletime(windowsEpoch) = %d, want 0", got)
	}
}

func TestFiletimeRoundTrip(t *testing.T) {
	want := time.Date(2023, 6, 15, 12, 30, 45, 0, time.UTC)
	ft := TimeToFiletime(want)
	got := FiletimeToTime(ft)
	if !got.Equal(want) {
		t.Errorf("FiletimeToTime(TimeToFiletime(%v)) = %v, want %v", want, got, want)
	}
}

func TestEachChunkWalksLinkedList(t *testing.T) {
	// Three chunks of length 4, 4, and 0 (terminal).
	data := []byte{
		4, 0, 0, 0, // chunk 0: nextEntryOffset=4
		4, 0, 0, 0, // chunk 1: nextEntryOffset=4
		0, 0, 0, 0, // chunk 2: nextEntryOffset=0 (last)
	}

	var seen int
	EachChunk(data, func(entry []byte) (uint32, bool) {
		seen++
		return uint32(entry[0]), false
	})
	if seen != 3 {
		t.Errorf("visited %d chunks, want 3", seen)
	}
}

func TestEachChunkStopsEarly(t *testing.T) {
	data := []byte{
		4, 0, 0, 0,
		4, 0, 0, 0,
		0, 0, 0, 0,
	}

	var seen int
	EachChunk(data, func(entry []byte) (uint32, bool) {
		seen++
		return uint32(entry[0]), seen == 1
	})
	if seen != 1 {
		t.Errorf("visited %d chunks, want 1 (stop=true on first)", seen)
	}
}
