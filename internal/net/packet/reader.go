package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is the sticky error a Reader records when an extraction runs
// past the end of the payload. It is fatal to the packet, not the session:
// the dispatcher drops the offending packet and keeps processing.
var ErrOutOfBounds = errors.New("read past end of packet")

// Reader extracts little-endian fields from a packet payload. The first
// out-of-bounds read poisons the Reader: every later read returns the zero
// value and Err() reports the fault.
type Reader struct {
	op   Opcode
	data []byte
	off  int
	err  error
}

func NewReader(p *Packet) *Reader {
	return &Reader{op: p.Opcode, data: p.Data}
}

func (r *Reader) Opcode() Opcode { return r.op }

// Err returns the sticky bounds error, if any read overran the payload.
func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(n int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: opcode %s need %d bytes at offset %d of %d",
			ErrOutOfBounds, r.op.Name(), n, r.off, len(r.data))
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.fail(n)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Uint8 reads 1 byte.
func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads 2 bytes little-endian.
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Uint32 reads 4 bytes little-endian.
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Uint64 reads 8 bytes little-endian.
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Float32 reads a 4-byte IEEE 754 float.
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// CString reads a NUL-terminated UTF-8 string. A missing terminator counts
// as running past the end of the payload.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	for i := r.off; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.off:i])
			r.off = i + 1
			return s
		}
	}
	r.fail(1)
	return ""
}

// PackGUID reads a compressed GUID: one mask byte, then one payload byte for
// each set mask bit, low byte first.
func (r *Reader) PackGUID() uint64 {
	mask := r.Uint8()
	var guid uint64
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			guid |= uint64(r.Uint8()) << (8 * i)
		}
	}
	return guid
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Skip advances the read cursor without interpreting the bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Remaining returns the number of unread payload bytes.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.data) - r.off
}
