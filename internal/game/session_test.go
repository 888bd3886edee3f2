package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
)

func registerCounting(table *packet.Table, op packet.Opcode, st packet.Status, pr packet.Processing, n *int) {
	table.Register(op, st, pr, func(sess any, r *packet.Reader) { *n++ })
}

func TestDispatchRequiresLoggedIn(t *testing.T) {
	table := packet.NewTable()
	calls := 0
	registerCounting(table, packet.CMSG_LOGOUT_REQUEST, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, &calls)

	s, _, _ := newTestSession(table)
	s.QueuePacket(packet.New(packet.CMSG_LOGOUT_REQUEST, nil))
	s.Update(time.Now(), SessionFilter{})
	if calls != 0 {
		t.Fatal("logged-in packet handled without a player")
	}

	p := newTestPlayer(s, 7)
	p.SetInWorld(true)
	s.QueuePacket(packet.New(packet.CMSG_LOGOUT_REQUEST, nil))
	s.Update(time.Now(), SessionFilter{})
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func TestDispatchDiscardsWhileQueued(t *testing.T) {
	table := packet.NewTable()
	calls := 0
	registerCounting(table, packet.CMSG_CHAR_ENUM, packet.StatusAuthed, packet.ProcessThreadUnsafe, &calls)

	s, _, _ := newTestSession(table)
	s.SetInQueue(true)
	s.QueuePacket(packet.New(packet.CMSG_CHAR_ENUM, nil))
	s.Update(time.Now(), SessionFilter{})
	if calls != 0 {
		t.Fatal("authed packet handled while still in the wait queue")
	}

	s.SetInQueue(false)
	s.QueuePacket(packet.New(packet.CMSG_CHAR_ENUM, nil))
	s.Update(time.Now(), SessionFilter{})
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

// The recently-logged-out grace survives the voice channel packet the
// client fires on its own, and ends with the first real authed packet.
func TestRecentlyLogoutGrace(t *testing.T) {
	table := packet.NewTable()
	calls := 0
	registerCounting(table, packet.CMSG_SET_ACTIVE_VOICE_CHANNEL, packet.StatusAuthed, packet.ProcessInPlace, &calls)
	registerCounting(table, packet.CMSG_CHAR_ENUM, packet.StatusAuthed, packet.ProcessThreadUnsafe, &calls)

	s, _, _ := newTestSession(table)
	s.playerRecentlyLogout = true

	s.QueuePacket(packet.New(packet.CMSG_SET_ACTIVE_VOICE_CHANNEL, nil))
	s.Update(time.Now(), SessionFilter{})
	if !s.RecentlyLogout() {
		t.Fatal("voice channel packet ended the logout grace")
	}

	s.QueuePacket(packet.New(packet.CMSG_CHAR_ENUM, nil))
	s.Update(time.Now(), SessionFilter{})
	if s.RecentlyLogout() {
		t.Fatal("authed packet did not end the logout grace")
	}
}

func TestIdleKickOnCharacterScreen(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	s.deps.Cfg.World.SessionIdleKick = time.Minute

	now := time.Now()
	s.Touch(now.Add(-2 * time.Minute))
	if alive := s.Update(now, SessionFilter{}); alive {
		t.Fatal("idle session survived the update")
	}
	if !tr.closed {
		t.Fatal("idle session transport not closed")
	}
}

func TestIdleKickSparesPlayersInWorld(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	s.deps.Cfg.World.SessionIdleKick = time.Minute
	newTestPlayer(s, 7)

	now := time.Now()
	s.Touch(now.Add(-2 * time.Minute))
	if alive := s.Update(now, SessionFilter{}); !alive {
		t.Fatal("in-world session removed by the idle check")
	}
	if tr.closed {
		t.Fatal("in-world session kicked for idling")
	}
}

func TestDeadTransportLogsOutAndRemoves(t *testing.T) {
	table := packet.NewTable()
	s, tr, rec := newTestSession(table)
	newTestPlayer(s, 7)
	tr.closed = true

	if alive := s.Update(time.Now(), SessionFilter{}); alive {
		t.Fatal("session with dead transport kept alive")
	}
	if s.Player() != nil {
		t.Fatal("player still attached after disconnect logout")
	}
	found := false
	for _, ev := range rec.events {
		if ev == "world.remove" {
			found = true
		}
	}
	if !found {
		t.Fatal("disconnect logout never removed the player from the world")
	}
}

func TestLogoutTimerFires(t *testing.T) {
	table := packet.NewTable()
	s, _, _ := newTestSession(table)
	newTestPlayer(s, 7)

	now := time.Now()
	s.logoutAt = now.Add(-time.Second).Unix()
	s.Update(now, SessionFilter{})
	if s.Player() != nil {
		t.Fatal("scheduled logout did not fire")
	}
	if !s.RecentlyLogout() {
		t.Fatal("logout grace not set after scheduled logout")
	}
}

func TestLogoutOrdering(t *testing.T) {
	table := packet.NewTable()
	s, tr, rec := newTestSession(table)
	p := newTestPlayer(s, 7)
	p.GuildID = 3
	p.GroupID = 5

	s.LogoutPlayer(true)

	want := []string{
		"guild.logout",
		"group.offline",
		"group.update",
		"social.status online=false",
		"world.remove",
		"script.logout",
	}
	if diff := deep.Equal(rec.events, want); diff != nil {
		t.Fatalf("logout sequence mismatch: %v", diff)
	}
	if s.Player() != nil {
		t.Fatal("player still attached after logout")
	}
	last := tr.lastSent()
	if last == nil || last.Opcode() != packet.SMSG_LOGOUT_COMPLETE {
		t.Fatalf("last packet = %v, want SMSG_LOGOUT_COMPLETE", last)
	}

	// Second call must be a no-op.
	rec.events = nil
	s.LogoutPlayer(true)
	if len(rec.events) != 0 {
		t.Fatalf("repeated logout produced events: %v", rec.events)
	}
}

func TestLogoutDuringCombatKills(t *testing.T) {
	table := packet.NewTable()
	s, _, _ := newTestSession(table)
	p := newTestPlayer(s, 7)
	p.InCombat = true

	s.LogoutPlayer(true)
	if p.Alive || p.Health != 0 {
		t.Fatalf("combat logout left health=%d alive=%v", p.Health, p.Alive)
	}
}

func TestRequestLogoutRefusedInCombat(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	p := newTestPlayer(s, 7)
	p.InCombat = true

	s.RequestLogout(false)
	if s.LogoutScheduled() {
		t.Fatal("logout scheduled despite combat")
	}
	resp := tr.lastSent()
	if resp == nil || resp.Opcode() != packet.SMSG_LOGOUT_RESPONSE {
		t.Fatalf("response = %v, want SMSG_LOGOUT_RESPONSE", resp)
	}
	if diff := deep.Equal(resp.Payload(), []byte{1, 0, 0, 0, 0}); diff != nil {
		t.Fatalf("refusal payload mismatch: %v", diff)
	}
}

func TestRequestLogoutInstantWhenResting(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	p := newTestPlayer(s, 7)
	p.IsLogoutResting = true

	now := time.Now()
	s.RequestLogout(false)
	if !s.LogoutScheduled() {
		t.Fatal("resting logout not scheduled")
	}
	if s.logoutAt > now.Add(time.Second).Unix() {
		t.Fatal("resting logout not instant")
	}
	resp := tr.lastSent()
	if diff := deep.Equal(resp.Payload(), []byte{0, 0, 0, 0, 1}); diff != nil {
		t.Fatalf("instant payload mismatch: %v", diff)
	}
}

func TestCancelLogout(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	newTestPlayer(s, 7)

	s.CancelLogout()
	if tr.lastSent() != nil {
		t.Fatal("cancel without pending logout sent an ack")
	}

	s.RequestLogout(false)
	s.CancelLogout()
	if s.LogoutScheduled() {
		t.Fatal("logout still scheduled after cancel")
	}
	if got := tr.lastSent(); got == nil || got.Opcode() != packet.SMSG_LOGOUT_CANCEL_ACK {
		t.Fatalf("ack = %v, want SMSG_LOGOUT_CANCEL_ACK", got)
	}
}

func TestSingleLoginInFlight(t *testing.T) {
	table := packet.NewTable()
	s, _, _ := newTestSession(table)

	s.RequestCharLogin(7)
	if !s.PlayerLoading() {
		t.Fatal("first login request did not start loading")
	}
	first := s.charLoginF

	s.RequestCharLogin(8)
	if s.charLoginF != first {
		t.Fatal("second login request replaced the in-flight holder")
	}
}

func TestFarTeleportLandsBeforeLogout(t *testing.T) {
	table := packet.NewTable()
	s, _, _ := newTestSession(table)
	p := newTestPlayer(s, 7)

	s.StartFarTeleport(TeleportTarget{Map: 1, X: 10, Y: 20, Z: 30, O: 1})
	if !p.TeleportingFar {
		t.Fatal("far teleport not pending")
	}

	s.LogoutPlayer(true)
	if p.TeleportingFar {
		t.Fatal("logout left the teleport pending")
	}
	if p.Map != 1 || p.X != 10 {
		t.Fatalf("logout saved the stale position: map=%d x=%f", p.Map, p.X)
	}
}

// A login that fails its preconditions answers the client and then drops
// the connection; the character screen is only reachable by reconnecting.
func TestLoginFailureDisconnects(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)

	s.RequestCharLogin(7) // the stub database has no such character
	waitFor(t, func() bool { return s.charLoginF.Ready() })
	alive := s.Update(time.Now(), SessionFilter{})

	if s.Player() != nil {
		t.Fatal("player attached from a failed load")
	}
	found := false
	for _, w := range tr.sent {
		if w.Opcode() == packet.SMSG_CHARACTER_LOGIN_FAILED {
			found = true
		}
	}
	if !found {
		t.Fatal("no login-failed response sent")
	}
	if !tr.closed {
		t.Fatal("failed login left the socket connected")
	}
	if alive {
		t.Fatal("session survived its dead transport")
	}
}

// Deleting a guid the account does not own gets no SMSG_CHAR_DELETE at
// all; only forged packets ask for it.
func TestDeleteForeignCharacterUnanswered(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)

	s.RequestCharDelete(9)
	waitFor(t, func() bool { return s.charDeleteF.Ready() })
	s.Update(time.Now(), SessionFilter{})

	for _, w := range tr.sent {
		if w.Opcode() == packet.SMSG_CHAR_DELETE {
			t.Fatal("foreign-guid delete was answered")
		}
	}
}

// One-shot at-login actions clear their flag in memory and in the
// database, so a crash-and-relogin cannot replay them.
func TestAtLoginFlagsClearedOnce(t *testing.T) {
	table := packet.NewTable()
	s, _, _, db := newTestSessionDB(table)

	login := func(atLogin uint16) {
		h := &persist.LoginQueryHolder{
			AccountID: s.AccountID(),
			GUID:      7,
			Char: &persist.CharacterRow{
				GUID:    7,
				Account: s.AccountID(),
				Name:    "Tester",
				Race:    1,
				Class:   1,
				Level:   10,
				Health:  100,
				AtLogin: atLogin,
			},
		}
		s.playerLoading = true
		s.handlePlayerLogin(&persist.LoginFuture{Holder: h})
	}

	login(persist.AtLoginResetSpells | persist.AtLoginFirst)
	p := s.Player()
	if p == nil {
		t.Fatal("login did not attach the player")
	}
	if p.AtLogin != 0 {
		t.Fatalf("at-login flags not consumed: %#x", p.AtLogin)
	}
	waitFor(t, func() bool { return db.execCount("at_login = at_login & ~") == 2 })
	if n := db.execCount("DELETE FROM character_spell"); n != 1 {
		t.Fatalf("spell reset ran %d times, want 1", n)
	}

	// Relogin with the flags already cleared, as after the persisted
	// clear: nothing may run again.
	s.LogoutPlayer(true)
	login(0)
	s.deps.Pipeline.ExecAsync("drain", "SELECT 1")
	waitFor(t, func() bool { return db.execCount("SELECT 1") == 1 })
	if n := db.execCount("DELETE FROM character_spell"); n != 1 {
		t.Fatalf("spell reset replayed on relogin: %d executions", n)
	}
	if n := db.execCount("at_login = at_login & ~"); n != 2 {
		t.Fatalf("flag clear replayed on relogin: %d executions", n)
	}
}

// A socketless bot session loads, enters the world and dies with its
// master, without a byte ever leaving the master's socket for it.
func TestBotLoginWithoutSocket(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	newTestPlayer(s, 7)
	masterPackets := len(tr.sent)

	bot := NewSession(2, 200, "bot", 2, nil, s.deps)
	s.AddBot(bot)
	bot.playerLoading = true

	h := &persist.LoginQueryHolder{
		AccountID: 200,
		GUID:      9,
		Char: &persist.CharacterRow{
			GUID:    9,
			Account: 200,
			Name:    "Minion",
			Race:    1,
			Class:   1,
			Level:   10,
			Health:  100,
		},
	}
	s.handleBotLogin(&persist.LoginFuture{Holder: h})

	bp := bot.Player()
	if bp == nil {
		t.Fatal("bot login did not attach the player")
	}
	if !bp.IsInWorld() {
		t.Fatal("bot player never placed in the world")
	}
	if len(tr.sent) != masterPackets {
		t.Fatal("bot login leaked packets onto the master socket")
	}
	if !bot.Update(time.Now(), SessionFilter{}) {
		t.Fatal("socketless session removed while its master owns it")
	}

	s.LogoutPlayer(true)
	if bot.Player() != nil {
		t.Fatal("master logout left the bot in world")
	}
}

// A pending rename is answered before the friend-list callbacks of the
// same pass.
func TestRenameAnsweredBeforeFriendAdd(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	newTestPlayer(s, 7)

	s.RequestRename(7, "Newname")
	s.RequestAddFriend("Jaina", "")
	waitFor(t, func() bool { return s.renameF.Ready() && s.addFriendF.Ready() })
	s.processQueryCallbacks()

	renameIdx, friendIdx := -1, -1
	for i, w := range tr.sent {
		switch w.Opcode() {
		case packet.SMSG_CHAR_RENAME:
			renameIdx = i
		case packet.SMSG_FRIEND_STATUS:
			friendIdx = i
		}
	}
	if renameIdx == -1 || friendIdx == -1 {
		t.Fatalf("missing responses, sent %v", tr.opcodes())
	}
	if renameIdx > friendIdx {
		t.Fatal("friend add answered before the pending rename")
	}
}

func TestGMLogoutSkipsCountdown(t *testing.T) {
	table := packet.NewTable()
	s, tr, _ := newTestSession(table)
	s.security = 1
	newTestPlayer(s, 7)

	now := time.Now()
	s.RequestLogout(false)
	if !s.LogoutScheduled() {
		t.Fatal("gm logout not scheduled")
	}
	if s.logoutAt > now.Add(time.Second).Unix() {
		t.Fatal("gm logout not instant")
	}
	resp := tr.lastSent()
	if diff := deep.Equal(resp.Payload(), []byte{0, 0, 0, 0, 1}); diff != nil {
		t.Fatalf("gm logout payload mismatch: %v", diff)
	}
}

func TestAccountMuteWindow(t *testing.T) {
	table := packet.NewTable()
	s, _, _ := newTestSession(table)
	now := time.Now()

	if s.IsMuted(now) {
		t.Fatal("fresh session muted")
	}
	s.muteTime = now.Add(time.Hour).Unix()
	if !s.IsMuted(now) {
		t.Fatal("running mute not reported")
	}
	if s.IsMuted(now.Add(2 * time.Hour)) {
		t.Fatal("expired mute still active")
	}
}

// Logout keeps its fixed step order under every combination of the
// sub-states that feed it.
func TestLogoutOrderingAcrossSubStates(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		dead := mask&1 != 0
		combat := mask&2 != 0
		grouped := mask&4 != 0
		guilded := mask&8 != 0
		teleporting := mask&16 != 0

		name := fmt.Sprintf("dead=%v combat=%v group=%v guild=%v teleport=%v",
			dead, combat, grouped, guilded, teleporting)
		t.Run(name, func(t *testing.T) {
			table := packet.NewTable()
			s, tr, rec := newTestSession(table)
			p := newTestPlayer(s, 7)

			if dead {
				p.Health = 0
				p.Alive = false
			}
			p.InCombat = combat
			if grouped {
				p.GroupID = 5
			}
			if guilded {
				p.GuildID = 3
			}
			if teleporting {
				s.StartFarTeleport(TeleportTarget{Map: 1, X: 10, Y: 20, Z: 30, O: 1})
			}
			rec.events = nil

			s.LogoutPlayer(true)

			var want []string
			if teleporting {
				want = append(want, "world.add") // the pumped teleport lands first
			}
			if guilded {
				want = append(want, "guild.logout")
			}
			if grouped {
				want = append(want, "group.offline", "group.update")
			}
			want = append(want, "social.status online=false", "world.remove", "script.logout")

			if diff := deep.Equal(rec.events, want); diff != nil {
				t.Fatalf("logout sequence mismatch: %v", diff)
			}
			if s.Player() != nil {
				t.Fatal("player still attached")
			}
			if (dead || combat) && (p.Alive || p.Health != 0) {
				t.Fatalf("logout left health=%d alive=%v", p.Health, p.Alive)
			}
			if teleporting && (p.TeleportingFar || p.Map != 1) {
				t.Fatalf("teleport not landed before the save: map=%d", p.Map)
			}
			last := tr.lastSent()
			if last == nil || last.Opcode() != packet.SMSG_LOGOUT_COMPLETE {
				t.Fatalf("last packet = %v, want SMSG_LOGOUT_COMPLETE", last)
			}
		})
	}
}

func TestTutorialFlags(t *testing.T) {
	table := packet.NewTable()
	s, _, _ := newTestSession(table)

	s.SetTutorialFlag(33)
	tut := s.Tutorials()
	if tut[1] != 1<<1 {
		t.Fatalf("tutorial word 1 = %#x, want %#x", tut[1], uint32(1<<1))
	}

	s.ClearTutorials(false)
	if s.Tutorials()[0] != ^uint32(0) {
		t.Fatal("clear did not mark every tutorial seen")
	}
	s.ClearTutorials(true)
	if s.Tutorials()[0] != 0 {
		t.Fatal("reset did not zero the flags")
	}
	s.SetTutorialFlag(256 * 32) // out of range, must be ignored
}
