package net

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
	"github.com/wowgo/server/internal/net/packet"
)

func TestReadClientFrame(t *testing.T) {
	// [2B BE size][4B LE opcode][payload], size = 4 + len(payload)
	frame := []byte{
		0x00, 0x08, // size 8
		0xDC, 0x01, 0x00, 0x00, // CMSG_PING 0x01DC
		0x2A, 0x00, 0x00, 0x00, // sequence 42
	}

	p, err := ReadClientFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadClientFrame: %v", err)
	}
	if p.Opcode != packet.CMSG_PING {
		t.Fatalf("opcode = %s, want CMSG_PING", p.Opcode.Name())
	}
	if diff := deep.Equal(p.Data, []byte{0x2A, 0, 0, 0}); diff != nil {
		t.Fatalf("payload mismatch: %v", diff)
	}
}

func TestReadClientFrameUndersized(t *testing.T) {
	// Declared size smaller than the opcode field alone.
	frame := []byte{0x00, 0x02, 0xDC, 0x01, 0x00, 0x00}
	if _, err := ReadClientFrame(bytes.NewReader(frame)); err == nil {
		t.Fatal("undersized frame accepted")
	}
}

func TestReadClientFrameOversized(t *testing.T) {
	var frame [6]byte
	frame[0] = 0xFF // size 0xFF00, past the client payload cap
	if _, err := ReadClientFrame(bytes.NewReader(frame[:])); err == nil {
		t.Fatal("oversized frame accepted")
	}
}

func TestReadClientFrameTruncated(t *testing.T) {
	frame := []byte{
		0x00, 0x08,
		0xDC, 0x01, 0x00, 0x00,
		0x2A, // 1 of 4 payload bytes
	}
	if _, err := ReadClientFrame(bytes.NewReader(frame)); err == nil {
		t.Fatal("truncated frame accepted")
	}
}

func TestWriteServerFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteServerFrame(&buf, packet.SMSG_PONG, []byte{0x2A, 0, 0, 0}); err != nil {
		t.Fatalf("WriteServerFrame: %v", err)
	}

	want := []byte{
		0x00, 0x06, // size 6 = 2 opcode + 4 payload, big-endian
		0xDD, 0x01, // SMSG_PONG 0x01DD, little-endian
		0x2A, 0x00, 0x00, 0x00,
	}
	if diff := deep.Equal(buf.Bytes(), want); diff != nil {
		t.Fatalf("frame mismatch: %v", diff)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	// A server frame re-parsed as a client frame will not line up (the
	// opcode widths differ), so round-trip through the client layout by
	// hand instead.
	payload := []byte("hello")
	var buf bytes.Buffer
	buf.Write([]byte{0x00, byte(4 + len(payload))})
	buf.Write([]byte{0xDC, 0x01, 0x00, 0x00})
	buf.Write(payload)

	p, err := ReadClientFrame(&buf)
	if err != nil {
		t.Fatalf("ReadClientFrame: %v", err)
	}
	if string(p.Data) != "hello" {
		t.Fatalf("payload = %q", p.Data)
	}
}
