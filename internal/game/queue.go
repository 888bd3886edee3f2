package game

import (
	"sync"

	"github.com/wowgo/server/internal/net/packet"
)

// PacketFilter decides whether the current update pass may process a
// packet. Next only ever pops the queue front, so a rejected front packet
// blocks the ones behind it until a pass with the right filter runs;
// per-session arrival order is never reordered across filter boundaries.
type PacketFilter interface {
	Accept(s *Session, d *packet.Descriptor) bool
	// ProcessLogout marks the pass that also drives logout timers and
	// query callbacks. Exactly one filter returns true.
	ProcessLogout() bool
}

// packetQueue is the per-session inbound queue. The socket read goroutine
// pushes, update goroutines pop; that is the only contention.
type packetQueue struct {
	mu    sync.Mutex
	items []*packet.Packet
}

func (q *packetQueue) Push(p *packet.Packet) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()
}

// Next pops the front packet if the filter accepts it. Returns nil when
// the queue is empty or the front packet belongs to a different pass.
func (q *packetQueue) Next(s *Session, table *packet.Table, f PacketFilter) *packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	front := q.items[0]
	if !f.Accept(s, table.Lookup(front.Opcode)) {
		return nil
	}
	q.items = q.items[1:]
	return front
}

func (q *packetQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *packetQueue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
