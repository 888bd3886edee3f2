package game

import (
	"github.com/wowgo/server/internal/net/packet"
)

// Transport is the network side of a session. Real connections are
// net.Socket; bot sessions and tests run without one.
type Transport interface {
	SendPacket(w *packet.Writer)
	Close()
	IsClosed() bool
	RemoteAddr() string
}

// WorldService places players on maps. AddPlayer fails when the target map
// does not exist or refuses the player; the login sequence then falls back
// to the home bind position.
type WorldService interface {
	AddPlayer(p *Player) error
	RemovePlayer(p *Player)
}

// GuildService reconciles guild membership at the login/logout boundary.
type GuildService interface {
	// HandleMemberLogin announces the login to the guild and returns
	// whether the stored guild id was valid. An invalid id means the
	// guild row vanished; the caller clears the player's guild id.
	HandleMemberLogin(s *Session, p *Player) bool
	HandleMemberLogout(p *Player)
}

// GroupService keeps party state in sync with session lifecycles.
type GroupService interface {
	MemberOnline(p *Player, groupID uint32)
	MemberOffline(p *Player)
	SendUpdate(groupID uint32)
}

// SocialService fans out online/offline transitions to friend lists and
// persists social additions.
type SocialService interface {
	BroadcastStatus(p *Player, online bool)
	StoreFriend(owner, friend uint64, flags uint8, note string)
	RemoveFriend(owner, friend uint64, flags uint8)
}

// ScriptHook is the scripting surface the session layer touches. The
// Lua engine satisfies it through a thin adapter; tests use a no-op.
type ScriptHook interface {
	PlayerLoggedIn(accountID uint32, guid uint64, name string, level int, mapID, zone uint32)
	PlayerLoggedOut(accountID uint32, guid uint64, name string, level int, mapID, zone uint32)
	UnknownPacket(opcode uint32, size int, account string)
	Motd(def string) string
	NameAllowed(name string) bool
}

// NopScript is the hook used when scripting is disabled.
type NopScript struct{}

func (NopScript) PlayerLoggedIn(uint32, uint64, string, int, uint32, uint32)  {}
func (NopScript) PlayerLoggedOut(uint32, uint64, string, int, uint32, uint32) {}
func (NopScript) UnknownPacket(uint32, int, string)                           {}
func (NopScript) Motd(def string) string                                      { return def }
func (NopScript) NameAllowed(string) bool                                     { return true }
