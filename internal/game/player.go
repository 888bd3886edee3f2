package game

import (
	"sync/atomic"

	"github.com/wowgo/server/internal/persist"
)

// Player is the in-world character attached to a session. All fields are
// owned by the session-update goroutine; inWorld is atomic because the map
// admission filter reads it from map-update workers.
type Player struct {
	GUID    uint64
	Account uint32
	Name    string
	Race    uint8
	Class   uint8
	Gender  uint8
	Level   uint8

	Map  uint32
	Zone uint32
	X    float32
	Y    float32
	Z    float32
	O    float32

	Health uint32

	GuildID uint32
	GroupID uint32
	Social  []persist.SocialRow

	AtLogin         uint16
	CinematicSeen   bool
	ExtraFlags      uint32
	InstanceID      uint32
	RestBonus       float32
	IsLogoutResting bool

	HomeBind *persist.HomeBindRow
	Pets     []persist.PetRow

	InCombat bool
	Alive    bool

	// Far teleport handshake: set when SMSG_TRANSFER_PENDING went out and
	// the world is waiting for MSG_MOVE_WORLDPORT_ACK.
	TeleportingFar bool
	TeleportDest   TeleportTarget

	inWorld atomic.Bool

	session *Session
}

type TeleportTarget struct {
	Map uint32
	X   float32
	Y   float32
	Z   float32
	O   float32
}

// NewPlayerFromHolder builds a Player from a completed login holder.
func NewPlayerFromHolder(h *persist.LoginQueryHolder, s *Session) *Player {
	c := h.Char
	p := &Player{
		GUID:    c.GUID,
		Account: c.Account,
		Name:    c.Name,
		Race:    c.Race,
		Class:   c.Class,
		Gender:  c.Gender,
		Level:   c.Level,

		Map:  c.Map,
		Zone: c.Zone,
		X:    c.X,
		Y:    c.Y,
		Z:    c.Z,
		O:    c.O,

		Health: c.Health,

		GroupID: h.GroupID,
		Social:  h.Social,

		AtLogin:         c.AtLogin,
		CinematicSeen:   c.Cinematic,
		ExtraFlags:      c.ExtraFlags,
		InstanceID:      c.InstanceID,
		RestBonus:       c.RestBonus,
		IsLogoutResting: c.IsLogoutResting,

		HomeBind: h.HomeBind,
		Pets:     h.Pets,

		Alive:   c.Health > 0,
		session: s,
	}
	return p
}

// IsInWorld reports whether the player has been added to a map. Safe from
// any goroutine.
func (p *Player) IsInWorld() bool { return p.inWorld.Load() }

// SetInWorld is called by the world service when the player enters or
// leaves a map.
func (p *Player) SetInWorld(v bool) { p.inWorld.Store(v) }

// Session returns the owning session.
func (p *Player) Session() *Session { return p.session }

// Relocate moves the player to a new position on the current map.
func (p *Player) Relocate(x, y, z, o float32) {
	p.X, p.Y, p.Z, p.O = x, y, z, o
}

// FriendsWith reports whether guid is on the friend side of the social
// list.
func (p *Player) FriendsWith(guid uint64) bool {
	for _, row := range p.Social {
		if row.FriendGUID == guid && row.Flags&persist.SocialFlagFriend != 0 {
			return true
		}
	}
	return false
}
