package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wowgo/server/internal/config"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// Shared fakes for the session tests. The stub database answers every
// query with no rows, which is enough for fire-and-forget writes, and
// records executed statements; tests that need real query results go
// through the persist package instead.

type stubDB struct {
	mu    sync.Mutex
	execs []string
}

func (d *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (d *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return stubRow{}
}

func (d *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.mu.Lock()
	d.execs = append(d.execs, sql)
	d.mu.Unlock()
	return pgconn.CommandTag{}, nil
}

// execCount returns how many executed statements contain the fragment.
func (d *stubDB) execCount(fragment string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, sql := range d.execs {
		if strings.Contains(sql, fragment) {
			n++
		}
	}
	return n
}

type stubRow struct{}

func (stubRow) Scan(dest ...any) error { return pgx.ErrNoRows }

// fakeTransport records outgoing packets.
type fakeTransport struct {
	closed bool
	sent   []*packet.Writer
}

func (t *fakeTransport) SendPacket(w *packet.Writer) { t.sent = append(t.sent, w) }
func (t *fakeTransport) Close()                      { t.closed = true }
func (t *fakeTransport) IsClosed() bool              { return t.closed }
func (t *fakeTransport) RemoteAddr() string          { return "test" }

func (t *fakeTransport) lastSent() *packet.Writer {
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}

func (t *fakeTransport) opcodes() []packet.Opcode {
	ops := make([]packet.Opcode, len(t.sent))
	for i, w := range t.sent {
		ops[i] = w.Opcode()
	}
	return ops
}

// recorder implements every session-facing service and keeps the call
// order, so logout ordering tests can assert the exact sequence.
type recorder struct {
	events    []string
	addErr    error
	guildGone bool
}

func (r *recorder) add(ev string) { r.events = append(r.events, ev) }

func (r *recorder) AddPlayer(p *Player) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.add("world.add")
	p.SetInWorld(true)
	return nil
}

func (r *recorder) RemovePlayer(p *Player) {
	r.add("world.remove")
	p.SetInWorld(false)
}

func (r *recorder) HandleMemberLogin(s *Session, p *Player) bool {
	r.add("guild.login")
	return !r.guildGone
}

func (r *recorder) HandleMemberLogout(p *Player) { r.add("guild.logout") }

func (r *recorder) MemberOnline(p *Player, groupID uint32) { r.add("group.online") }
func (r *recorder) MemberOffline(p *Player)                { r.add("group.offline") }
func (r *recorder) SendUpdate(groupID uint32)              { r.add("group.update") }

func (r *recorder) BroadcastStatus(p *Player, online bool) {
	r.add(fmt.Sprintf("social.status online=%v", online))
}
func (r *recorder) StoreFriend(owner, friend uint64, flags uint8, note string) {
	r.add("social.store")
}
func (r *recorder) RemoveFriend(owner, friend uint64, flags uint8) { r.add("social.remove") }

func (r *recorder) PlayerLoggedIn(uint32, uint64, string, int, uint32, uint32) {
	r.add("script.login")
}
func (r *recorder) PlayerLoggedOut(uint32, uint64, string, int, uint32, uint32) {
	r.add("script.logout")
}
func (r *recorder) UnknownPacket(uint32, int, string) { r.add("script.unknown") }
func (r *recorder) Motd(def string) string            { return def }
func (r *recorder) NameAllowed(string) bool           { return true }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Name: "test", Motd: "hi"},
		World: config.WorldConfig{
			TickRate:    50 * time.Millisecond,
			LogoutDelay: 20 * time.Second,
		},
		Character: config.CharacterConfig{
			MaxPerAccount: 10,
			MinNameLength: 2,
			MaxNameLength: 12,
		},
	}
}

// newTestSession builds a session wired to fakes. The returned recorder
// is installed as every service.
func newTestSession(table *packet.Table) (*Session, *fakeTransport, *recorder) {
	s, tr, rec, _ := newTestSessionDB(table)
	return s, tr, rec
}

// newTestSessionDB also exposes the recording stub database, for tests
// that assert what reached the persistence layer.
func newTestSessionDB(table *packet.Table) (*Session, *fakeTransport, *recorder, *stubDB) {
	rec := &recorder{}
	tr := &fakeTransport{}
	db := &stubDB{}
	deps := &Deps{
		Log:        zap.NewNop(),
		Table:      table,
		Pipeline:   persist.NewPipeline(db, 1, zap.NewNop()),
		Accounts:   persist.NewAccountRepo(db),
		Characters: persist.NewCharacterRepo(db),
		World:      rec,
		Guild:      rec,
		Group:      rec,
		Social:     rec,
		Script:     rec,
		Cfg:        testConfig(),
	}
	return NewSession(1, 100, "tester", 2, tr, deps), tr, rec, db
}

// waitFor polls an async condition with a deadline, for results that
// arrive from the pipeline workers.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never reached")
		}
		time.Sleep(time.Millisecond)
	}
}

// newTestPlayer attaches a minimal in-world player to the session.
func newTestPlayer(s *Session, guid uint64) *Player {
	h := &persist.LoginQueryHolder{
		AccountID: s.AccountID(),
		GUID:      guid,
		Char: &persist.CharacterRow{
			GUID:    guid,
			Account: s.AccountID(),
			Name:    "Tester",
			Race:    1,
			Class:   1,
			Level:   10,
			Map:     0,
			Zone:    12,
			Health:  100,
		},
	}
	p := NewPlayerFromHolder(h, s)
	s.setPlayer(p)
	return p
}
