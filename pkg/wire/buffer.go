// Package wire implements the on-the-wire byte encoding shared by every
// packet this module produces or consumes: fixed-width big-endian integers,
// unsigned LEB128 varints, and length-prefixed byte strings.
package wire

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned by a Reader method when the remaining bytes
// are not enough to satisfy the read.
var ErrShortBuffer = errors.New("wire: buffer too short")

// Writer appends encoded values to a growable byte slice. The zero value is
// ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer backed by buf, which is reused as the initial
// capacity (not the initial contents): writes start at buf[:0].
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// PutUint8 appends a single byte.
func (w *Writer) PutUint8(v uint8) { w.buf = append(w.buf, v) }

// PutUint16 appends v as big-endian.
func (w *Writer) PutUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// PutUint32 appends v as big-endian.
func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// PutVarint appends v as an unsigned LEB128 varint.
func (w *Writer) PutVarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// PutBytes appends raw bytes with no length prefix.
func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutVarintBytes appends a varint length prefix followed by b.
func (w *Writer) PutVarintBytes(b []byte) {
	w.PutVarint(uint64(len(b)))
	w.PutBytes(b)
}

// UvarintSize returns the number of bytes PutVarint would write for v,
// without actually encoding it. Used by the scheduler to size a candidate
// frame before committing it to a packet.
func UvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Reader consumes encoded values from a fixed byte slice, tracking an
// internal read offset. The zero value is not usable; use NewReader.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Uint8 reads a single byte.
func (r *Reader) Uint8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Varint reads an unsigned LEB128 varint.
func (r *Reader) Varint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, ErrShortBuffer
	}
	r.off += n
	return v, nil
}

// Bytes reads n raw bytes. The returned slice aliases the Reader's backing
// array; callers that retain it beyond the current packet must copy it.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// VarintBytes reads a varint length prefix followed by that many bytes.
func (r *Reader) VarintBytes() ([]byte, error) {
	n, err := r.Varint()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}
