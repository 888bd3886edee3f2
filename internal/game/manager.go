package game

import (
	"context"
	"sort"
	"sync"
	"time"

	gamenet "github.com/wowgo/server/internal/net"
	"github.com/wowgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// SessionManager owns every live session. Sockets authenticate against it
// on their read goroutines; the world loop calls UpdateSessions once per
// tick. The mutex only guards the maps, never a session's own state.
type SessionManager struct {
	deps *Deps
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[uint32]*Session // by account id
	queue    []*Session          // overflow sessions waiting for a slot
	nextID   uint64
}

func NewSessionManager(deps *Deps) *SessionManager {
	return &SessionManager{
		deps:     deps,
		log:      deps.Log.Named("sessions"),
		sessions: make(map[uint32]*Session),
	}
}

// Authenticate checks a handshake against the accounts table and, on
// success, creates the session and binds the socket to it. Runs on the
// socket's read goroutine; the session joins the world loop only after it
// is fully initialized.
func (m *SessionManager) Authenticate(sock *gamenet.Socket, build uint32, account, proof string) (gamenet.PacketSink, error) {
	if want := m.deps.Cfg.Network.RequireBuild; want != 0 && build != want {
		return nil, &gamenet.AuthError{Code: packet.AuthVersionMismatch, Reason: "unsupported client build"}
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	row, err := m.deps.Accounts.Load(ctx, account)
	if err != nil {
		m.log.Error("帳號查詢失敗", zap.String("account", account), zap.Error(err))
		return nil, &gamenet.AuthError{Code: packet.AuthDBBusy, Reason: "account lookup failed"}
	}
	if row == nil {
		return nil, &gamenet.AuthError{Code: packet.AuthUnknownAccount, Reason: "unknown account"}
	}
	if !m.deps.Accounts.ValidatePassword(row.PasswordHash, proof) {
		return nil, &gamenet.AuthError{Code: packet.AuthIncorrectPassword, Reason: "bad credentials"}
	}
	if row.Banned {
		return nil, &gamenet.AuthError{Code: packet.AuthBanned, Reason: "account banned"}
	}

	s := NewSession(m.nextSessionID(), row.ID, row.Name, row.Expansion, sock, m.deps)
	s.security = row.Security
	s.locale = row.Locale
	s.muteTime = row.MuteTime
	s.LoadAccountState()

	m.mu.Lock()
	if old, ok := m.sessions[row.ID]; ok {
		// Relogging replaces the old session. Its player is torn down by
		// the world loop once it notices the dead transport.
		old.Kick("account logged in elsewhere")
	}
	m.sessions[row.ID] = s
	queued := m.overCapacityLocked()
	if queued {
		s.SetInQueue(true)
		m.queue = append(m.queue, s)
		pos := len(m.queue)
		m.mu.Unlock()
		m.sendQueuePosition(s, uint32(pos))
	} else {
		m.mu.Unlock()
		m.sendAuthOK(s)
	}

	accountID, ip := row.ID, sock.RemoteAddr()
	m.deps.Pipeline.Async("account_login", func(ctx context.Context) error {
		if err := m.deps.Accounts.SetOnline(ctx, accountID, true); err != nil {
			return err
		}
		return m.deps.Accounts.UpdateLastLogin(ctx, accountID, ip)
	})

	m.log.Info("會話建立",
		zap.Uint64("session", s.ID),
		zap.String("account", row.Name),
		zap.String("locale", row.Locale),
		zap.Bool("queued", queued),
	)
	return s, nil
}

// overCapacityLocked reports whether a newly added session must wait.
// Counts only sessions already holding a slot.
func (m *SessionManager) overCapacityLocked() bool {
	cap := m.deps.Cfg.World.MaxSessions
	if cap <= 0 {
		return false
	}
	return len(m.sessions)-len(m.queue) > cap
}

func (m *SessionManager) nextSessionID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

// sendAuthOK releases a session to the character screen.
func (m *SessionManager) sendAuthOK(s *Session) {
	s.SetInQueue(false)

	w := packet.NewWriter(packet.SMSG_AUTH_RESPONSE)
	w.Uint8(packet.AuthOK)
	w.Uint32(0) // billing time remaining
	w.Uint8(0)  // billing flags
	w.Uint32(0) // billing time rested
	w.Uint8(s.Expansion())
	s.SendPacket(w)

	tut := packet.NewWriter(packet.SMSG_TUTORIAL_FLAGS)
	for _, word := range s.Tutorials() {
		tut.Uint32(word)
	}
	s.SendPacket(tut)

	s.SendAccountDataTimes()
}

func (m *SessionManager) sendQueuePosition(s *Session, pos uint32) {
	w := packet.NewWriter(packet.SMSG_AUTH_RESPONSE)
	w.Uint8(packet.AuthWaitQueue)
	w.Uint32(0) // billing time remaining
	w.Uint8(0)  // billing flags
	w.Uint32(0) // billing time rested
	w.Uint8(s.Expansion())
	w.Uint32(pos)
	w.Uint8(0) // realm transfer popup
	s.SendPacket(w)
}

// UpdateSessions runs the session pass: every live session drains its
// queue, polls its futures and drives its logout timer. Called from the
// world loop only. Dead sessions are removed here, then freed slots are
// handed to the wait queue.
func (m *SessionManager) UpdateSessions(now time.Time) {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })

	filter := SessionFilter{}
	var dead []*Session
	for _, s := range live {
		if !s.Update(now, filter) {
			dead = append(dead, s)
		}
	}

	if len(dead) == 0 {
		m.pumpQueue()
		return
	}

	m.mu.Lock()
	for _, s := range dead {
		// A relog may have replaced this entry already; only remove our own.
		if cur, ok := m.sessions[s.AccountID()]; ok && cur == s {
			delete(m.sessions, s.AccountID())
		}
		m.dropFromQueueLocked(s)
	}
	m.mu.Unlock()

	for _, s := range dead {
		accountID := s.AccountID()
		m.deps.Pipeline.Async("account_logout", func(ctx context.Context) error {
			return m.deps.Accounts.SetOnline(ctx, accountID, false)
		})
		m.log.Info("會話結束",
			zap.Uint64("session", s.ID),
			zap.String("account", s.AccountName()),
		)
	}

	m.pumpQueue()
}

// pumpQueue admits waiting sessions into freed slots and refreshes the
// positions of those still waiting.
func (m *SessionManager) pumpQueue() {
	cap := m.deps.Cfg.World.MaxSessions

	m.mu.Lock()
	var admitted []*Session
	if cap > 0 {
		for len(m.queue) > 0 && len(m.sessions)-len(m.queue) < cap {
			s := m.queue[0]
			m.queue = m.queue[1:]
			admitted = append(admitted, s)
		}
	}
	waiting := make([]*Session, len(m.queue))
	copy(waiting, m.queue)
	m.mu.Unlock()

	for _, s := range admitted {
		m.sendAuthOK(s)
		m.log.Info("佇列釋出", zap.Uint64("session", s.ID), zap.String("account", s.AccountName()))
	}
	if len(admitted) > 0 {
		for i, s := range waiting {
			m.sendQueuePosition(s, uint32(i+1))
		}
	}
}

func (m *SessionManager) dropFromQueueLocked(s *Session) {
	for i, q := range m.queue {
		if q == s {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// Session returns the live session for an account, nil when offline.
func (m *SessionManager) Session(accountID uint32) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[accountID]
}

// SessionForPlayer finds the session whose player has the given guid.
func (m *SessionManager) SessionForPlayer(guid uint64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if p := s.Player(); p != nil && p.GUID == guid {
			return s
		}
		for _, b := range s.Bots() {
			if p := b.Player(); p != nil && p.GUID == guid {
				return b
			}
		}
	}
	return nil
}

// Count returns the number of live sessions, wait queue included.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown logs every player out with a save and kicks the transports.
// Runs on the world loop after the last tick.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.sessions = make(map[uint32]*Session)
	m.queue = nil
	m.mu.Unlock()

	for _, s := range live {
		if s.Player() != nil {
			s.LogoutPlayer(true)
		}
		s.Kick("server shutting down")
		accountID := s.AccountID()
		m.deps.Pipeline.Async("account_logout", func(ctx context.Context) error {
			return m.deps.Accounts.SetOnline(ctx, accountID, false)
		})
	}
	m.log.Info("所有會話已關閉", zap.Int("count", len(live)))
}
