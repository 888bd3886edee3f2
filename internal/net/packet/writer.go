package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds an outgoing packet payload. All multi-byte writes are
// little-endian.
type Writer struct {
	op  Opcode
	buf []byte
}

func NewWriter(op Opcode) *Writer {
	return &Writer{op: op, buf: make([]byte, 0, 64)}
}

func (w *Writer) Opcode() Opcode { return w.op }

// Uint8 writes 1 byte.
func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

// Uint16 writes 2 bytes little-endian.
func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Uint32 writes 4 bytes little-endian.
func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Uint64 writes 8 bytes little-endian.
func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Float32 writes a 4-byte IEEE 754 float.
func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

// CString writes a NUL-terminated UTF-8 string.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// PackGUID writes the compressed GUID encoding: a mask byte marking which of
// the eight GUID bytes are non-zero, followed by those bytes low-first.
func (w *Writer) PackGUID(guid uint64) {
	var mask uint8
	var payload [8]byte
	n := 0
	for i := 0; i < 8; i++ {
		if b := uint8(guid >> (8 * i)); b != 0 {
			mask |= 1 << i
			payload[n] = b
			n++
		}
	}
	w.buf = append(w.buf, mask)
	w.buf = append(w.buf, payload[:n]...)
}

// Bytes writes raw bytes.
func (w *Writer) Bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutUint8 overwrites one byte at an absolute offset, for count fields
// written before the entries they count.
func (w *Writer) PutUint8(off int, v uint8) {
	w.buf[off] = v
}

// Len returns the current payload length.
func (w *Writer) Len() int { return len(w.buf) }

// Payload returns the accumulated payload bytes.
func (w *Writer) Payload() []byte { return w.buf }

// Packet wraps the payload as an inbound-style Packet, used when feeding a
// synthetic session's queue.
func (w *Writer) Packet() *Packet {
	return New(w.op, w.buf)
}
