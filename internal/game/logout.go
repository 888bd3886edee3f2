package game

import (
	"context"
	"time"

	"github.com/wowgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// logoutDelay falls back to the classic 20 seconds when config is silent.
const defaultLogoutDelay = 20 * time.Second

// RequestLogout answers CMSG_LOGOUT_REQUEST. Combat blocks the request
// outright; resting players and GMs skip the countdown.
func (s *Session) RequestLogout(instant bool) {
	p := s.Player()
	if p == nil {
		return
	}

	if p.InCombat {
		w := packet.NewWriter(packet.SMSG_LOGOUT_RESPONSE)
		w.Uint32(1) // refused
		w.Uint8(0)
		s.SendPacket(w)
		return
	}

	delay := s.deps.Cfg.World.LogoutDelay
	if delay <= 0 {
		delay = defaultLogoutDelay
	}
	if instant || p.IsLogoutResting || s.security > 0 {
		delay = 0
	}
	s.logoutAt = time.Now().Add(delay).Unix()

	w := packet.NewWriter(packet.SMSG_LOGOUT_RESPONSE)
	w.Uint32(0) // accepted
	if delay == 0 {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
	s.SendPacket(w)
}

// CancelLogout answers CMSG_LOGOUT_CANCEL.
func (s *Session) CancelLogout() {
	if s.logoutAt == 0 {
		return
	}
	s.logoutAt = 0
	s.SendPacket(packet.NewWriter(packet.SMSG_LOGOUT_CANCEL_ACK))
}

// LogoutPlayer tears the player down in a fixed order. Each step only
// depends on the ones before it, so a mid-sequence panic (recovered by
// the world loop) leaves no step half-done out of order. Idempotent: a
// second call finds no player and returns.
func (s *Session) LogoutPlayer(save bool) {
	p := s.Player()
	if p == nil {
		return
	}

	s.playerLogout = true
	s.playerSave = save
	s.logoutAt = 0

	s.log.Info("玩家登出",
		zap.Uint64("guid", p.GUID),
		zap.String("name", p.Name),
		zap.Bool("save", save),
	)

	// A logout racing a far teleport must land the teleport first, or
	// the save would write the stale source position.
	if p.TeleportingFar {
		s.FinishFarTeleport()
	}

	// Combat and death resolution before anything observable leaves the
	// world: a logout during combat counts as a death.
	if p.InCombat {
		p.InCombat = false
		if save && p.Alive {
			p.Health = 0
			p.Alive = false
		}
	}

	for _, bot := range s.bots {
		bot.LogoutPlayer(save)
	}

	if p.GuildID != 0 {
		s.deps.Guild.HandleMemberLogout(p)
	}

	s.removePet(p)

	if save {
		s.savePlayer(p)
	}
	s.saveTutorials()

	if p.GroupID != 0 {
		s.deps.Group.MemberOffline(p)
		s.deps.Group.SendUpdate(p.GroupID)
	}

	s.deps.Social.BroadcastStatus(p, false)

	s.deps.World.RemovePlayer(p)
	s.setPlayer(nil)

	s.SendPacket(packet.NewWriter(packet.SMSG_LOGOUT_COMPLETE))

	guid := p.GUID
	s.deps.Pipeline.Async("char_offline", func(ctx context.Context) error {
		return s.deps.Characters.SetOnline(ctx, guid, false)
	})

	s.deps.Script.PlayerLoggedOut(s.accountID, p.GUID, p.Name, int(p.Level), p.Map, p.Zone)

	// Grace flag: the character screen right after logout may still send
	// world-ish packets; they are tolerated until the first real authed
	// packet clears this.
	s.playerRecentlyLogout = true
	s.playerLogout = false
	s.playerSave = false
}

// StartFarTeleport begins a cross-map move: the player leaves the world
// but stays attached while the client loads the new map.
func (s *Session) StartFarTeleport(dest TeleportTarget) {
	p := s.Player()
	if p == nil || p.TeleportingFar {
		return
	}

	p.TeleportingFar = true
	p.TeleportDest = dest
	s.deps.World.RemovePlayer(p)

	w := packet.NewWriter(packet.SMSG_TRANSFER_PENDING)
	w.Uint32(dest.Map)
	s.SendPacket(w)

	nw := packet.NewWriter(packet.SMSG_NEW_WORLD)
	nw.Uint32(dest.Map)
	nw.Float32(dest.X)
	nw.Float32(dest.Y)
	nw.Float32(dest.Z)
	nw.Float32(dest.O)
	s.SendPacket(nw)
}

// FinishFarTeleport lands a pending far teleport, either on
// MSG_MOVE_WORLDPORT_ACK or force-pumped by LogoutPlayer.
func (s *Session) FinishFarTeleport() {
	p := s.Player()
	if p == nil || !p.TeleportingFar {
		return
	}

	dest := p.TeleportDest
	p.Map = dest.Map
	p.Relocate(dest.X, dest.Y, dest.Z, dest.O)
	p.TeleportingFar = false

	if err := s.deps.World.AddPlayer(p); err != nil {
		s.log.Error("傳送目的地圖載入失敗", zap.Uint32("map", dest.Map), zap.Error(err))
		if hb := p.HomeBind; hb != nil {
			p.Map = hb.Map
			p.Zone = hb.Zone
			p.Relocate(hb.X, hb.Y, hb.Z, 0)
			if err := s.deps.World.AddPlayer(p); err != nil {
				s.Kick("teleport destination unavailable")
			}
		}
	}
}

func (s *Session) removePet(p *Player) {
	// Pets live with their owner; persistence already has them, only the
	// in-world object goes away, which RemovePlayer covers.
	p.Pets = nil
}

// savePlayer writes the position/vitals snapshot through the async
// pipeline. Nobody waits on it; the logout continues immediately. The
// fields are copied here because the worker runs after the player is
// detached.
func (s *Session) savePlayer(p *Player) {
	guid, mapID, zone := p.GUID, p.Map, p.Zone
	x, y, z, o := p.X, p.Y, p.Z, p.O
	health, resting := p.Health, p.IsLogoutResting
	now := time.Now().Unix()
	s.deps.Pipeline.Async("char_save", func(ctx context.Context) error {
		return s.deps.Characters.SavePosition(ctx, guid, mapID, zone, x, y, z, o, health, now, resting)
	})
}
