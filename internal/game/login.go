package game

import (
	"context"
	"time"

	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// Account data cache masks sent in SMSG_ACCOUNT_DATA_TIMES.
const (
	globalCacheMask       uint32 = 0x15
	perCharacterCacheMask uint32 = 0xEA
	numAccountDataTypes          = 8
)

// handlePlayerLogin finishes CMSG_PLAYER_LOGIN once the login holder has
// resolved. Runs on the session pass. Any failure before the player is in
// world kicks the session back to the character screen.
func (s *Session) handlePlayerLogin(f *persist.LoginFuture) {
	defer func() { s.playerLoading = false }()

	h := f.Holder
	if err := f.Err(); err != nil {
		s.log.Error("角色載入失敗", zap.Uint64("guid", h.GUID), zap.Error(err))
		s.loginFailed(packet.CharLoginNoCharacter)
		return
	}
	if h.Char.Account != s.accountID {
		s.log.Warn("嘗試登入他人角色",
			zap.Uint64("guid", h.GUID), zap.Uint32("owner", h.Char.Account))
		s.loginFailed(packet.CharLoginFailed)
		return
	}
	if h.Banned {
		s.loginFailed(packet.CharLoginDisabled)
		return
	}
	if h.Char.Online {
		s.log.Warn("角色已在線上", zap.Uint64("guid", h.GUID))
		s.loginFailed(packet.CharLoginDuplicateChar)
		return
	}

	p := NewPlayerFromHolder(h, s)
	s.setPlayer(p)

	s.log.Info("玩家登入",
		zap.Uint64("guid", p.GUID),
		zap.String("name", p.Name),
		zap.Uint8("level", p.Level),
	)

	// The very first packet after a successful load tells the client
	// where it is; everything else hangs off that.
	verify := packet.NewWriter(packet.SMSG_LOGIN_VERIFY_WORLD)
	verify.Uint32(p.Map)
	verify.Float32(p.X)
	verify.Float32(p.Y)
	verify.Float32(p.Z)
	verify.Float32(p.O)
	s.SendPacket(verify)

	s.sendAccountDataTimes(perCharacterCacheMask)
	for _, row := range h.AccountData {
		s.accountData[row.Type] = row
	}

	features := packet.NewWriter(packet.SMSG_FEATURE_SYSTEM_STATUS)
	features.Uint8(2) // complaint system enabled
	features.Uint8(0) // voice chat disabled
	s.SendPacket(features)

	s.sendMotd()

	// Guild reconcile: the stored membership may point at a disbanded
	// guild. The guild service self-heals the membership row; we only
	// clear the player-side id.
	if h.GuildID != 0 {
		p.GuildID = h.GuildID
		if !s.deps.Guild.HandleMemberLogin(s, p) {
			s.log.Warn("角色所屬公會已不存在，清除關聯",
				zap.Uint64("guid", p.GUID), zap.Uint32("guild", p.GuildID))
			p.GuildID = 0
		}
	}

	if !p.CinematicSeen && s.deps.Cfg.Character.CinematicsOnce {
		cinematic := packet.NewWriter(packet.SMSG_TRIGGER_CINEMATIC)
		cinematic.Uint32(cinematicForRace(p.Race))
		s.SendPacket(cinematic)
		p.CinematicSeen = true
		guid := p.GUID
		s.deps.Pipeline.Async("cinematic", func(ctx context.Context) error {
			return s.deps.Characters.MarkCinematicSeen(ctx, guid)
		})
	}

	// Map placement. A vanished or refused map sends the player to the
	// home bind instead of leaving the session in limbo.
	if err := s.deps.World.AddPlayer(p); err != nil {
		s.log.Warn("地圖載入失敗，傳送回綁定點",
			zap.Uint32("map", p.Map), zap.Error(err))
		if hb := p.HomeBind; hb != nil {
			p.Map = hb.Map
			p.Zone = hb.Zone
			p.Relocate(hb.X, hb.Y, hb.Z, 0)
		}
		if err := s.deps.World.AddPlayer(p); err != nil {
			s.log.Error("綁定點載入亦失敗，中止登入", zap.Error(err))
			s.setPlayer(nil)
			s.loginFailed(packet.CharLoginNoWorld)
			return
		}
	}

	guid := p.GUID
	s.deps.Pipeline.Async("char_online", func(ctx context.Context) error {
		return s.deps.Characters.SetOnline(ctx, guid, true)
	})
	s.deps.Pipeline.Async("account_online", func(ctx context.Context) error {
		return s.deps.Accounts.SetOnline(ctx, s.accountID, true)
	})

	if p.GroupID != 0 {
		s.deps.Group.MemberOnline(p, p.GroupID)
		s.deps.Group.SendUpdate(p.GroupID)
	}

	s.deps.Social.BroadcastStatus(p, true)

	// One-shot at-login actions. Each clears its flag after running so a
	// crash between login and save cannot replay it with side effects.
	if p.AtLogin&persist.AtLoginResetSpells != 0 {
		s.resetSpells(p)
		p.AtLogin &^= persist.AtLoginResetSpells
		s.clearAtLoginFlag(guid, persist.AtLoginResetSpells)
	}
	if p.AtLogin&persist.AtLoginResetTalents != 0 {
		s.resetTalents(p)
		p.AtLogin &^= persist.AtLoginResetTalents
		s.clearAtLoginFlag(guid, persist.AtLoginResetTalents)
	}
	if p.AtLogin&persist.AtLoginFirst != 0 {
		p.AtLogin &^= persist.AtLoginFirst
		s.clearAtLoginFlag(guid, persist.AtLoginFirst)
	}

	s.deps.Script.PlayerLoggedIn(s.accountID, p.GUID, p.Name, int(p.Level), p.Map, p.Zone)
}

// handleBotLogin attaches a loaded player to one of the owned bot
// sessions. Bots skip the client-facing packets; they only need world
// placement and presence fan-out.
func (s *Session) handleBotLogin(f *persist.LoginFuture) {
	h := f.Holder

	var bot *Session
	for _, b := range s.bots {
		if b.accountID == h.AccountID && b.Player() == nil {
			bot = b
			break
		}
	}
	if bot == nil {
		s.log.Warn("機器人登入完成但無對應會話", zap.Uint64("guid", h.GUID))
		return
	}
	bot.playerLoading = false

	if err := f.Err(); err != nil {
		s.log.Error("機器人角色載入失敗", zap.Uint64("guid", h.GUID), zap.Error(err))
		return
	}

	p := NewPlayerFromHolder(h, bot)
	bot.setPlayer(p)
	if err := s.deps.World.AddPlayer(p); err != nil {
		s.log.Error("機器人進入地圖失敗", zap.Error(err))
		bot.setPlayer(nil)
		return
	}

	guid := p.GUID
	s.deps.Pipeline.Async("char_online", func(ctx context.Context) error {
		return s.deps.Characters.SetOnline(ctx, guid, true)
	})
	if p.GroupID != 0 {
		s.deps.Group.MemberOnline(p, p.GroupID)
	}
	s.deps.Social.BroadcastStatus(p, true)

	s.log.Info("機器人登入", zap.Uint64("guid", p.GUID), zap.String("name", p.Name))
}

// loginFailed answers a failed CMSG_PLAYER_LOGIN and drops the
// connection. The client cannot recover from a failed login on its own;
// it reconnects and lands on the character screen again.
func (s *Session) loginFailed(code uint8) {
	w := packet.NewWriter(packet.SMSG_CHARACTER_LOGIN_FAILED)
	w.Uint8(code)
	s.SendPacket(w)
	s.Kick("character login failed")
}

func (s *Session) clearAtLoginFlag(guid uint64, flag uint16) {
	s.deps.Pipeline.Async("at_login", func(ctx context.Context) error {
		return s.deps.Characters.ClearAtLoginFlag(ctx, guid, flag)
	})
}

// sendAccountDataTimes pushes the cache timestamps so the client knows
// which blobs to re-request.
func (s *Session) sendAccountDataTimes(mask uint32) {
	w := packet.NewWriter(packet.SMSG_ACCOUNT_DATA_TIMES)
	w.Uint32(uint32(time.Now().Unix()))
	w.Uint8(1)
	w.Uint32(mask)
	for i := uint8(0); i < numAccountDataTypes; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		if row, ok := s.accountData[i]; ok {
			w.Uint32(uint32(row.Time))
		} else {
			w.Uint32(0)
		}
	}
	s.SendPacket(w)
}

// SendAccountDataTimes is the authed-state variant used right after the
// handshake, covering only the account-wide cache types.
func (s *Session) SendAccountDataTimes() {
	s.sendAccountDataTimes(globalCacheMask)
}

func (s *Session) sendMotd() {
	motd := s.deps.Script.Motd(s.deps.Cfg.Server.Motd)
	w := packet.NewWriter(packet.SMSG_MOTD)
	lines := splitMotdLines(motd)
	w.Uint32(uint32(len(lines)))
	for _, line := range lines {
		w.CString(line)
	}
	s.SendPacket(w)
}

func (s *Session) resetSpells(p *Player) {
	s.deps.Pipeline.ExecAsync("reset_spells",
		`DELETE FROM character_spell WHERE guid = $1`, p.GUID)
}

func (s *Session) resetTalents(p *Player) {
	s.deps.Pipeline.ExecAsync("reset_talents",
		`DELETE FROM character_talent WHERE guid = $1`, p.GUID)
	s.deps.Pipeline.ExecAsync("reset_glyphs",
		`DELETE FROM character_glyphs WHERE guid = $1`, p.GUID)
}

// cinematicForRace maps a race to its intro cinematic sequence id.
func cinematicForRace(race uint8) uint32 {
	switch race {
	case 1: // human
		return 81
	case 2: // orc
		return 21
	case 3: // dwarf
		return 41
	case 4: // night elf
		return 61
	case 5: // undead
		return 2
	case 6: // tauren
		return 141
	case 7: // gnome
		return 101
	case 8: // troll
		return 121
	case 10: // blood elf
		return 162
	case 11: // draenei
		return 163
	default:
		return 0
	}
}

func splitMotdLines(motd string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(motd); i++ {
		if motd[i] == '\n' {
			lines = append(lines, motd[start:i])
			start = i + 1
		}
	}
	lines = append(lines, motd[start:])
	return lines
}
