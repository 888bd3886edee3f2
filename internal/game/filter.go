package game

import (
	"github.com/wowgo/server/internal/net/packet"
)

// MapFilter admits the packets a map-update worker may process: anything
// marked in-place, or thread-safe handlers for a player standing in the
// world. Thread-unsafe handlers always wait for the session pass.
type MapFilter struct{}

// ProcessLogout is false: logout timers and query callbacks only run on
// the session pass, never on a map worker.
func (MapFilter) ProcessLogout() bool { return false }

func (MapFilter) Accept(s *Session, d *packet.Descriptor) bool {
	switch d.Processing {
	case packet.ProcessInPlace:
		return true
	case packet.ProcessThreadUnsafe:
		return false
	}
	p := s.Player()
	return p != nil && p.IsInWorld()
}

// SessionFilter is the complement of MapFilter: the world-session pass
// takes in-place and thread-unsafe packets, plus everything belonging to a
// session that has no player in the world yet. Together the two filters
// accept every packet exactly once.
type SessionFilter struct{}

func (SessionFilter) ProcessLogout() bool { return true }

func (SessionFilter) Accept(s *Session, d *packet.Descriptor) bool {
	switch d.Processing {
	case packet.ProcessInPlace, packet.ProcessThreadUnsafe:
		return true
	}
	p := s.Player()
	return p == nil || !p.IsInWorld()
}
