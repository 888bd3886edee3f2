package game

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wowgo/server/internal/config"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// Deps bundles everything a session touches beyond its own state. One
// instance is shared by all sessions.
type Deps struct {
	Log        *zap.Logger
	Table      *packet.Table
	Pipeline   *persist.Pipeline
	Accounts   *persist.AccountRepo
	Characters *persist.CharacterRepo
	World      WorldService
	Guild      GuildService
	Group      GroupService
	Social     SocialService
	Script     ScriptHook
	Cfg        *config.Config
}

// maxProcessedPackets bounds how many queued packets one update pass may
// drain, so a flooding client cannot stall the tick.
const maxProcessedPackets = 100

// Session is the per-account connection state machine. Packets arrive on
// the socket goroutine and are queued; the world loop drains the queue
// once per tick on the session pass, map workers drain their share on the
// map pass. Everything except QueuePacket and the latency counter runs on
// those update goroutines.
type Session struct {
	ID          uint64
	accountID   uint32
	accountName string
	expansion   uint8
	security    uint8
	locale      string
	muteTime    int64 // unix time the account mute expires, 0 = not muted

	transport Transport // nil for bot sessions
	deps      *Deps
	log       *zap.Logger

	recvQueue packetQueue
	player    atomic.Pointer[Player]

	inQueue              bool
	playerLoading        bool
	playerLogout         bool
	playerRecentlyLogout bool
	playerSave           bool
	logoutAt             int64 // unix time the scheduled logout fires, 0 = none

	latency    atomic.Uint32
	lastActive atomic.Int64 // unix time of the last inbound packet

	tutorials        [8]uint32
	tutorialsChanged bool
	accountData      map[uint8]persist.AccountDataRow

	// Pending async results, polled in a fixed order each session pass.
	nameQueries []*persist.NameQueryFuture
	charCreateF *persist.CharCreateFuture
	charDeleteF *persist.CharDeleteFuture
	charEnumF   *persist.CharEnumFuture
	charLoginF  *persist.LoginFuture
	renameF     *persist.RenameFuture
	addFriendF  *persist.SocialLookupFuture
	addIgnoreF  *persist.SocialLookupFuture

	// Bot sessions owned by this one; pumped right after the owner.
	bots      []*Session
	botLogins []*persist.LoginFuture
	master    *Session
}

func NewSession(id uint64, accountID uint32, accountName string, expansion uint8, transport Transport, deps *Deps) *Session {
	return &Session{
		ID:          id,
		accountID:   accountID,
		accountName: accountName,
		expansion:   expansion,
		transport:   transport,
		deps:        deps,
		log:         deps.Log.With(zap.Uint64("session", id), zap.String("account", accountName)),
		accountData: make(map[uint8]persist.AccountDataRow),
	}
}

func (s *Session) AccountID() uint32     { return s.accountID }
func (s *Session) AccountName() string   { return s.accountName }
func (s *Session) Expansion() uint8      { return s.expansion }
func (s *Session) Security() uint8       { return s.security }
func (s *Session) Locale() string        { return s.locale }
func (s *Session) MuteTime() int64       { return s.muteTime }
func (s *Session) Deps() *Deps           { return s.deps }
func (s *Session) Log() *zap.Logger      { return s.log }
func (s *Session) IsBot() bool           { return s.master != nil }
func (s *Session) Master() *Session      { return s.master }
func (s *Session) PlayerLoading() bool   { return s.playerLoading }
func (s *Session) PlayerLogout() bool    { return s.playerLogout }
func (s *Session) RecentlyLogout() bool  { return s.playerRecentlyLogout }
func (s *Session) LogoutScheduled() bool { return s.logoutAt != 0 }

// Player returns the attached player, nil before login completes. Safe
// from any goroutine.
func (s *Session) Player() *Player { return s.player.Load() }

func (s *Session) setPlayer(p *Player) { s.player.Store(p) }

// Latency returns the last measured client round-trip in milliseconds.
func (s *Session) Latency() uint32 { return s.latency.Load() }

// SetLatency is called from the ping handler.
func (s *Session) SetLatency(ms uint32) { s.latency.Store(ms) }

// IsMuted reports whether the account mute is still running.
func (s *Session) IsMuted(now time.Time) bool { return s.muteTime > now.Unix() }

// InQueue reports whether the session still waits in the login queue.
func (s *Session) InQueue() bool { return s.inQueue }

// SetInQueue moves the session in or out of the wait queue.
func (s *Session) SetInQueue(v bool) { s.inQueue = v }

// QueuePacket accepts one inbound packet from the socket goroutine.
func (s *Session) QueuePacket(p *packet.Packet) {
	s.lastActive.Store(time.Now().Unix())
	s.recvQueue.Push(p)
}

// Touch resets the idle clock, for keep-alives that carry no payload.
func (s *Session) Touch(now time.Time) {
	s.lastActive.Store(now.Unix())
}

// OnSocketClosed satisfies the transport callback; the world loop notices
// the dead transport on its next session pass and tears the session down
// there, on the right goroutine.
func (s *Session) OnSocketClosed() {}

// SendPacket writes one packet to the client. Bot sessions and kicked
// sessions swallow it.
func (s *Session) SendPacket(w *packet.Writer) {
	if s.transport == nil {
		return
	}
	s.transport.SendPacket(w)
}

// RemoteAddr is the peer address, "bot" for socketless sessions.
func (s *Session) RemoteAddr() string {
	if s.transport == nil {
		return "bot"
	}
	return s.transport.RemoteAddr()
}

// Kick closes the transport. The session itself is removed by the world
// loop once it sees the dead socket.
func (s *Session) Kick(reason string) {
	s.log.Info("踢除連線", zap.String("reason", reason))
	if s.transport != nil {
		s.transport.Close()
	}
}

// Update drains queued packets admitted by the filter, then — only on the
// session pass — polls async query results, drives the logout timer and
// detects a dead transport. Returns false when the session must be
// removed from the world.
func (s *Session) Update(now time.Time, f PacketFilter) bool {
	for processed := 0; processed < maxProcessedPackets; processed++ {
		p := s.recvQueue.Next(s, s.deps.Table, f)
		if p == nil {
			break
		}
		s.dispatch(p)
	}

	if !f.ProcessLogout() {
		return true
	}

	s.processQueryCallbacks()

	for _, bot := range s.bots {
		bot.Update(now, f)
	}

	if s.logoutAt != 0 && now.Unix() >= s.logoutAt && !s.playerLoading {
		s.LogoutPlayer(true)
	}

	// Idle sessions parked on the character screen are kicked; a player in
	// world is kept alive by movement and keep-alives anyway.
	if kick := s.deps.Cfg.World.SessionIdleKick; kick > 0 && s.transport != nil && s.Player() == nil && !s.playerLoading {
		if last := s.lastActive.Load(); last > 0 && now.Unix()-last > int64(kick.Seconds()) {
			s.Kick("idle timeout")
		}
	}

	if s.transport != nil && s.transport.IsClosed() {
		if !s.playerLoading {
			if s.Player() != nil {
				s.LogoutPlayer(true)
			}
			return false
		}
	}
	if s.transport == nil && s.master == nil {
		// orphaned bot shell, master already tore it down
		return false
	}
	return true
}

// dispatch runs one packet through the state-admission switch. Faults are
// packet-fatal, never session-fatal: a malformed or ill-timed packet is
// logged and dropped while the session keeps running.
func (s *Session) dispatch(p *packet.Packet) {
	if !s.deps.Table.InRange(p.Opcode) {
		s.log.Warn("收到不存在的封包編號",
			zap.String("op", p.Opcode.Name()), zap.Int("len", len(p.Data)))
		s.deps.Script.UnknownPacket(uint32(p.Opcode), len(p.Data), s.accountName)
		return
	}

	d := s.deps.Table.Lookup(p.Opcode)
	player := s.Player()

	switch d.Status {
	case packet.StatusLoggedIn:
		if player == nil || !player.IsInWorld() {
			if !s.playerRecentlyLogout {
				s.logUnexpected(p, "the player has not logged in yet")
			}
			return
		}

	case packet.StatusLoggedInOrRecentlyLoggedOut:
		if player == nil && !s.playerRecentlyLogout {
			s.logUnexpected(p, "the player has not logged in yet and not recently logout")
			return
		}

	case packet.StatusTransfer:
		if player == nil {
			s.logUnexpected(p, "the player has not logged in yet")
			return
		}
		if player.IsInWorld() {
			s.logUnexpected(p, "the player is still in world")
			return
		}

	case packet.StatusAuthed:
		// Packets sent while still in the wait queue are discarded; the
		// client retries after SMSG_AUTH_RESPONSE releases it.
		if s.inQueue {
			return
		}
		// The recently-logged-out grace ends with the first real
		// character-screen packet. The voice channel packet is the one
		// exception: the client fires it right after logout on its own.
		if p.Opcode != packet.CMSG_SET_ACTIVE_VOICE_CHANNEL {
			s.playerRecentlyLogout = false
		}

	case packet.StatusNever:
		s.log.Warn("收到禁止的封包", zap.String("op", d.Name))
		return

	case packet.StatusUnhandled:
		s.log.Debug("收到未處理的封包", zap.String("op", d.Name))
		s.deps.Script.UnknownPacket(uint32(p.Opcode), len(p.Data), s.accountName)
		return
	}

	if d.Handler == nil {
		return
	}

	r := packet.NewReader(p)
	s.safeHandle(d, r)

	if err := r.Err(); err != nil {
		s.log.Warn("封包解析越界", zap.String("op", d.Name), zap.Error(err))
	} else if n := r.Remaining(); n > 0 {
		s.log.Debug("封包尾端未讀取", zap.String("op", d.Name), zap.Int("bytes", n))
	}
}

// safeHandle isolates handler panics to the offending packet.
func (s *Session) safeHandle(d *packet.Descriptor, r *packet.Reader) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("封包處理發生例外",
				zap.String("op", d.Name),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()
	d.Handler(s, r)
}

func (s *Session) logUnexpected(p *packet.Packet, why string) {
	s.log.Debug("非預期狀態的封包",
		zap.String("op", p.Opcode.Name()),
		zap.String("why", why),
	)
}

// Tutorials returns the account tutorial bitmask words.
func (s *Session) Tutorials() [8]uint32 { return s.tutorials }

// SetTutorialFlag sets one tutorial bit; flushed at save/logout.
func (s *Session) SetTutorialFlag(bit uint32) {
	idx := bit / 32
	if idx >= 8 {
		return
	}
	mask := uint32(1) << (bit % 32)
	if s.tutorials[idx]&mask == 0 {
		s.tutorials[idx] |= mask
		s.tutorialsChanged = true
	}
}

// ClearTutorials zeroes (reset=true) or fills the flags.
func (s *Session) ClearTutorials(reset bool) {
	v := ^uint32(0)
	if reset {
		v = 0
	}
	for i := range s.tutorials {
		s.tutorials[i] = v
	}
	s.tutorialsChanged = true
}

// LoadAccountState pulls tutorials and account data before the session
// joins the world loop. Called on the authenticator goroutine, before any
// update pass can see the session.
func (s *Session) LoadAccountState() {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	tut, err := s.deps.Accounts.LoadTutorials(ctx, s.accountID)
	if err != nil {
		s.log.Error("讀取教學旗標失敗", zap.Error(err))
	} else {
		s.tutorials = tut
	}

	rows, err := s.deps.Accounts.LoadAccountData(ctx, s.accountID)
	if err != nil {
		s.log.Error("讀取帳號資料失敗", zap.Error(err))
		return
	}
	for _, row := range rows {
		s.accountData[row.Type] = row
	}
}

// AccountData returns the cached blob for one data type.
func (s *Session) AccountData(dataType uint8) (persist.AccountDataRow, bool) {
	row, ok := s.accountData[dataType]
	return row, ok
}

// SetAccountData caches and persists one client data blob. Even-numbered
// types are account-wide, odd ones per-character.
func (s *Session) SetAccountData(dataType uint8, t int64, data []byte) {
	s.accountData[dataType] = persist.AccountDataRow{Type: dataType, Time: t, Data: data}
	acc := s.deps.Accounts
	if dataType%2 == 0 {
		s.deps.Pipeline.Async("account_data", func(ctx context.Context) error {
			return acc.SaveAccountData(ctx, s.accountID, dataType, t, data)
		})
	} else if p := s.Player(); p != nil {
		guid := p.GUID
		s.deps.Pipeline.Async("character_account_data", func(ctx context.Context) error {
			return acc.SaveCharacterData(ctx, guid, dataType, t, data)
		})
	}
}

// saveTutorials flushes dirty tutorial flags.
func (s *Session) saveTutorials() {
	if !s.tutorialsChanged {
		return
	}
	s.tutorialsChanged = false
	t := s.tutorials
	acc := s.deps.Accounts
	s.deps.Pipeline.Async("tutorials", func(ctx context.Context) error {
		return acc.SaveTutorials(ctx, s.accountID, t)
	})
}

// AddBot attaches a socketless session owned by this one. The bot is
// pumped by its master's session pass and dies with it.
func (s *Session) AddBot(bot *Session) {
	bot.master = s
	s.bots = append(s.bots, bot)
}

// RemoveBot detaches and tears down an owned bot session.
func (s *Session) RemoveBot(bot *Session) {
	for i, b := range s.bots {
		if b == bot {
			s.bots = append(s.bots[:i], s.bots[i+1:]...)
			break
		}
	}
	if bot.Player() != nil {
		bot.LogoutPlayer(true)
	}
	bot.master = nil
}

// Bots returns the owned bot sessions.
func (s *Session) Bots() []*Session { return s.bots }
