package packet

// Packet is one opcode-tagged message lifted off the wire (or injected by a
// synthetic session). Data is the payload without the frame header. SizeHint
// is the size the peer declared in the frame header; it is diagnostic only —
// a mismatch against len(Data) is logged, never fatal.
type Packet struct {
	Opcode   Opcode
	SizeHint int
	Data     []byte
}

func New(op Opcode, data []byte) *Packet {
	return &Packet{Opcode: op, SizeHint: len(data), Data: data}
}
