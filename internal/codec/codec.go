// Package codec provides the generic wire primitives shared by every
// SMB2 command's Marshal/Unmarshal: a sequential little-endian writer
// and reader so struct definitions stop tracking buffer offsets by
// hand, plus the two recurring SMB2 body shapes: nextEntryOffset
// linked-list chunks (directory listings, change notifications) and
// FILETIME timestamps.
package codec

import (
	"errors"
	"time"

	"github.com/ineffectivecoder/smb2client/internal/encoding"
)

// UTF16LE appends s encoded as UTF-16LE, with no null terminator (SMB2
// length-prefixed strings never carry one).
func (w *Writer) UTF16LE(s string) *Writer {
	w.buf = append(w.buf, encoding.ToUTF16LE(s)...)
	return w
}

// ErrShortBuffer is returned by Reader field accessors, and left sticky
// on the Reader, when the underlying buffer runs out before a requested
// field.
var ErrShortBuffer = errors.New("codec: buffer too small")

// Writer appends fixed-width integer and byte fields in wire order.
// Callers write fields in struct-definition order and never compute an
// offset themselves; the zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with an initial capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Uint8 appends a single byte.
func (w *Writer) Uint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Uint16 appends v little-endian.
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf = encoding.AppendUint16LE(w.buf, v)
	return w
}

// Uint32 appends v little-endian.
func (w *Writer) Uint32(v uint32) *Writer {
	w.buf = encoding.AppendUint32LE(w.buf, v)
	return w
}

// Uint64 appends v little-endian.
func (w *Writer) Uint64(v uint64) *Writer {
	w.buf = encoding.AppendUint64LE(w.buf, v)
	return w
}

// Filetime appends t encoded as a Windows FILETIME.
func (w *Writer) Filetime(t time.Time) *Writer {
	return w.Uint64(TimeToFiletime(t))
}

// Raw appends b unchanged, for fields already carrying their own
// Marshal, such as FileID.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Fixed appends b copied into an n-byte field, zero-padded or
// truncated to fit.
func (w *Writer) Fixed(b []byte, n int) *Writer {
	field := make([]byte, n)
	copy(field, b)
	w.buf = append(w.buf, field...)
	return w
}

// Pad appends n zero bytes.
func (w *Writer) Pad(n int) *Writer {
	w.buf = append(w.buf, make([]byte, n)...)
	return w
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reader is a cursor over a message body. Every field accessor
// advances the cursor and, on underrun, records ErrShortBuffer and
// returns the zero value; callers chain reads and check Err once at
// the end instead of testing every access.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader wraps buf for sequential reads.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Uint8 reads one byte.
func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return encoding.Uint16LE(b)
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return encoding.Uint32LE(b)
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return encoding.Uint64LE(b)
}

// Filetime reads a Windows FILETIME field as a time.Time.
func (r *Reader) Filetime() time.Time {
	return FiletimeToTime(r.Uint64())
}

// Bytes reads n raw bytes, copied so the result outlives the source
// buffer.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// UTF16LE reads n bytes and decodes them as UTF-16LE.
func (r *Reader) UTF16LE(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	return encoding.FromUTF16LE(b)
}

// Skip advances the cursor n bytes without returning them.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Off returns the current cursor position.
func (r *Reader) Off() int { return r.off }

// Remaining returns every byte from the cursor to the end of the
// buffer, or nil once the reader has failed.
func (r *Reader) Remaining() []byte {
	if r.err != nil || r.off > len(r.buf) {
		return nil
	}
	return r.buf[r.off:]
}

// Len reports the total buffer length the reader was constructed with.
func (r *Reader) Len() int { return len(r.buf) }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// windowsToUnixEpochSeconds is the gap between the FILETIME epoch
// (1601-01-01T00:00:00Z) and the Unix epoch, in seconds.
const windowsToUnixEpochSeconds = 11644473600

// FiletimeToTime converts a Windows FILETIME (the count of 100ns
// intervals since 1601-01-01T00:00:00Z) to a UTC time.Time.
// FiletimeToTime(0) is 1601-01-01T00:00:00Z itself, not Go's zero
// time.Time, matching what MS-FSCC and MS-SMB2 define FILETIME 0 to
// mean. The conversion goes through Unix-epoch seconds rather than a
// single time.Duration so it doesn't overflow int64 nanoseconds for
// ordinary modern timestamps.
func FiletimeToTime(ft uint64) time.Time {
	sec := int64(ft/1e7) - windowsToUnixEpochSeconds
	nsec := int64(ft%1e7) * 100
	return time.Unix(sec, nsec).UTC()
}

// TimeToFiletime is the inverse of FiletimeToTime.
func TimeToFiletime(t time.Time) uint64 {
	sec := t.Unix() + windowsToUnixEpochSeconds
	if sec < 0 {
		return 0
	}
	return uint64(sec)*1e7 + uint64(t.Nanosecond())/100
}

// EachChunk walks a nextEntryOffset-linked list of variable-length
// records, the shape shared by QUERY_DIRECTORY and CHANGE_NOTIFY
// response bodies: fn is called with the bytes from each record's
// start to the end of the buffer and returns that record's
// NextEntryOffset field. A zero offset, a walk past the end of data,
// or fn returning stop=true ends the walk.
func EachChunk(data []byte, fn func(entry []byte) (nextEntryOffset uint32, stop bool)) {
	offset := 0
	for offset < len(data) {
		next, stop := fn(data[offset:])
		if stop || next == 0 {
			return
		}
		offset += int(next)
	}
}
