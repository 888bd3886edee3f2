package net

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/wowgo/server/internal/net/packet"
)

// Wire framing, 3.3.5 layout:
//   client → server  [2B BE size][4B LE opcode][payload]   size = 4 + len(payload)
//   server → client  [2B BE size][2B LE opcode][payload]   size = 2 + len(payload)
// The declared size is carried on the packet as a hint; a mismatch is the
// sender's problem and only shows up in logs.

const maxClientFrame = 0x2800 // largest payload a client may legally send

// ReadClientFrame reads one client frame and returns it as a Packet.
func ReadClientFrame(r io.Reader) (*packet.Packet, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	size := int(binary.BigEndian.Uint16(header[0:2]))
	op := packet.Opcode(binary.LittleEndian.Uint32(header[2:6]))

	payloadLen := size - 4
	if payloadLen < 0 || payloadLen > maxClientFrame {
		return nil, fmt.Errorf("invalid frame size %d for opcode %s", size, op.Name())
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}

	return &packet.Packet{Opcode: op, SizeHint: payloadLen, Data: payload}, nil
}

// WriteServerFrame frames and writes one server packet.
func WriteServerFrame(w io.Writer, op packet.Opcode, payload []byte) error {
	header := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint16(header[0:2], uint16(len(payload)+2))
	binary.LittleEndian.PutUint16(header[2:4], uint16(op))

	if _, err := w.Write(append(header, payload...)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
