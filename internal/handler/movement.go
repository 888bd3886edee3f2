package handler

import (
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
)

// HandleMovement applies a client movement packet to the player's
// position. Thread-safe class: runs on the map pass, where the owning
// partition worker serializes every session on that map.
func HandleMovement(s *game.Session, r *packet.Reader, deps *Deps) {
	p := s.Player()
	if p == nil {
		return
	}

	r.PackGUID() // mover guid
	r.Uint32()   // movement flags
	r.Uint16()   // extra flags
	r.Uint32()   // client time
	x := r.Float32()
	y := r.Float32()
	z := r.Float32()
	o := r.Float32()
	if r.Err() != nil {
		return
	}

	p.Relocate(x, y, z, o)
}
