package game

import (
	"testing"

	"github.com/wowgo/server/internal/net/packet"
)

// Every packet must be processable by at least one pass, thread-unsafe
// handlers must never run on a map worker, and thread-safe handlers for a
// player in world must never run on the session pass.
func TestFilterCoverage(t *testing.T) {
	table := packet.NewTable()
	states := []struct {
		name    string
		prepare func(s *Session)
		inWorld bool
	}{
		{"no player", func(s *Session) {}, false},
		{"player loading", func(s *Session) {
			p := newTestPlayer(s, 7)
			p.SetInWorld(false)
		}, false},
		{"player in world", func(s *Session) {
			p := newTestPlayer(s, 7)
			p.SetInWorld(true)
		}, true},
	}
	classes := []packet.Processing{
		packet.ProcessInPlace,
		packet.ProcessThreadUnsafe,
		packet.ProcessThreadSafe,
	}

	for _, st := range states {
		for _, pr := range classes {
			s, _, _ := newTestSession(table)
			st.prepare(s)
			d := &packet.Descriptor{Name: "TEST", Processing: pr}

			mapOK := (MapFilter{}).Accept(s, d)
			sessOK := (SessionFilter{}).Accept(s, d)

			if !mapOK && !sessOK {
				t.Errorf("%s/%v: no pass accepts the packet", st.name, pr)
			}
			if pr == packet.ProcessThreadUnsafe && mapOK {
				t.Errorf("%s: thread-unsafe accepted on the map pass", st.name)
			}
			if pr == packet.ProcessThreadSafe && st.inWorld && sessOK {
				t.Errorf("%s: thread-safe for in-world player accepted on the session pass", st.name)
			}
			if pr == packet.ProcessThreadSafe && !st.inWorld && mapOK {
				t.Errorf("%s: thread-safe without in-world player accepted on the map pass", st.name)
			}
		}
	}
}

func TestExactlyOneLogoutPass(t *testing.T) {
	m := (MapFilter{}).ProcessLogout()
	s := (SessionFilter{}).ProcessLogout()
	if m || !s {
		t.Fatalf("logout processing: map=%v session=%v, want false/true", m, s)
	}
}

// A rejected front packet must block the queue: the map pass may not
// reach past a thread-unsafe packet to grab a later movement packet.
func TestQueueFrontBlocks(t *testing.T) {
	table := packet.NewTable()
	table.Register(packet.CMSG_CHAR_ENUM, packet.StatusAuthed, packet.ProcessThreadUnsafe, nil)
	table.Register(packet.MSG_MOVE_HEARTBEAT, packet.StatusLoggedIn, packet.ProcessThreadSafe, nil)

	s, _, _ := newTestSession(table)
	p := newTestPlayer(s, 7)
	p.SetInWorld(true)

	q := &packetQueue{}
	q.Push(packet.New(packet.CMSG_CHAR_ENUM, nil))
	q.Push(packet.New(packet.MSG_MOVE_HEARTBEAT, nil))

	if got := q.Next(s, table, MapFilter{}); got != nil {
		t.Fatalf("map pass popped %s past a thread-unsafe front", got.Opcode.Name())
	}
	if q.Len() != 2 {
		t.Fatalf("queue len = %d after rejected pop, want 2", q.Len())
	}

	first := q.Next(s, table, SessionFilter{})
	if first == nil || first.Opcode != packet.CMSG_CHAR_ENUM {
		t.Fatalf("session pass front = %v, want CMSG_CHAR_ENUM", first)
	}
	next := q.Next(s, table, MapFilter{})
	if next == nil || next.Opcode != packet.MSG_MOVE_HEARTBEAT {
		t.Fatalf("map pass after unblock = %v, want MSG_MOVE_HEARTBEAT", next)
	}
}

func TestQueueFIFO(t *testing.T) {
	table := packet.NewTable()
	table.Register(packet.CMSG_PING, packet.StatusAuthed, packet.ProcessInPlace, nil)

	s, _, _ := newTestSession(table)
	q := &packetQueue{}
	for i := byte(0); i < 5; i++ {
		q.Push(packet.New(packet.CMSG_PING, []byte{i}))
	}
	for i := byte(0); i < 5; i++ {
		got := q.Next(s, table, SessionFilter{})
		if got == nil || got.Data[0] != i {
			t.Fatalf("pop %d returned %v, want payload %d", i, got, i)
		}
	}
	if q.Next(s, table, SessionFilter{}) != nil {
		t.Fatal("pop from drained queue returned a packet")
	}
}
