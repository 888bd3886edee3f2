package persist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/wowgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// Pipeline runs database work on a small worker pool so packet handlers
// never block on the database. Handlers submit a query and get back a
// future; the session polls its futures once per update, on the session
// thread, so results are always consumed in a deterministic order.
type Pipeline struct {
	db       Querier
	chars    *CharacterRepo
	accounts *AccountRepo

	jobs   chan func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.Logger
}

func NewPipeline(db Querier, workers int, log *zap.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		db:       db,
		chars:    NewCharacterRepo(db),
		accounts: NewAccountRepo(db),
		jobs:     make(chan func(ctx context.Context), 256),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			job(p.ctx)
		case <-p.ctx.Done():
			return
		}
	}
}

// DB exposes the underlying querier for the rare synchronous read.
func (p *Pipeline) DB() Querier { return p.db }

// Chars exposes the character repository for callers that only hold the
// pipeline.
func (p *Pipeline) Chars() *CharacterRepo { return p.chars }

// Accounts exposes the account repository.
func (p *Pipeline) Accounts() *AccountRepo { return p.accounts }

// Close stops the workers. Queued jobs that have not started are dropped;
// callers flush pending saves synchronously before shutting down.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pipeline) submit(job func(ctx context.Context)) {
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
	}
}

// ExecAsync runs a fire-and-forget statement, for flag flips and saves
// whose result nobody waits on. Failures are logged, never surfaced.
func (p *Pipeline) ExecAsync(label string, sql string, args ...any) {
	p.submit(func(ctx context.Context) {
		if _, err := p.db.Exec(ctx, sql, args...); err != nil {
			p.log.Error("非同步寫入失敗", zap.String("label", label), zap.Error(err))
		}
	})
}

// Async runs one repository call on the worker pool, fire-and-forget.
// Writes that carry a table's column knowledge belong in a repo method;
// this is the routing for them.
func (p *Pipeline) Async(label string, fn func(ctx context.Context) error) {
	p.submit(func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			p.log.Error("非同步寫入失敗", zap.String("label", label), zap.Error(err))
		}
	})
}

// future is the embedded completion state shared by every result type.
// The worker fills the result fields, then flips done; the session thread
// checks done before touching anything else, so the atomic store is the
// only synchronization needed.
type future struct {
	done atomic.Bool
	err  error
}

func (f *future) complete(err error) {
	f.err = err
	f.done.Store(true)
}

// Ready reports whether the result may be consumed.
func (f *future) Ready() bool { return f.done.Load() }

// Err is valid only after Ready returns true.
func (f *future) Err() error { return f.err }

// CharEnumFuture resolves to the character list of one account.
type CharEnumFuture struct {
	future
	AccountID  uint32
	Characters []CharEnumRow
}

// EnumCharacters lists an account's characters off-thread.
func (p *Pipeline) EnumCharacters(accountID uint32) *CharEnumFuture {
	f := &CharEnumFuture{AccountID: accountID}
	p.submit(func(ctx context.Context) {
		rows, err := p.chars.Enum(ctx, accountID)
		f.Characters = rows
		f.complete(err)
	})
	return f
}

// LoginFuture resolves when every statement of a login holder has run.
type LoginFuture struct {
	future
	Holder *LoginQueryHolder
}

// LoadLogin executes a prepared login holder off-thread. The holder must
// not be touched again by the caller until the future is ready; ownership
// transfers to the pipeline here and comes back with the result.
func (p *Pipeline) LoadLogin(holder *LoginQueryHolder) *LoginFuture {
	f := &LoginFuture{Holder: holder}
	p.submit(func(ctx context.Context) {
		f.complete(holder.Execute(ctx, p.db))
	})
	return f
}

// NameQueryFuture resolves a GUID to a character name.
type NameQueryFuture struct {
	future
	GUID   uint64
	Found  bool
	Name   string
	Race   uint8
	Class  uint8
	Gender uint8
}

// LookupName resolves a character name query off-thread.
func (p *Pipeline) LookupName(guid uint64) *NameQueryFuture {
	f := &NameQueryFuture{GUID: guid}
	p.submit(func(ctx context.Context) {
		row, err := p.chars.NameByGUID(ctx, guid)
		if row != nil {
			f.Found = true
			f.Name = row.Name
			f.Race = row.Race
			f.Class = row.Class
			f.Gender = row.Gender
		}
		f.complete(err)
	})
	return f
}

// RenameFuture resolves when a pending character rename has been checked
// and applied.
type RenameFuture struct {
	future
	GUID    uint64
	NewName string
	Result  uint8 // response code for SMSG_CHAR_RENAME
}

// RenameCharacter validates and applies a rename off-thread. The rename
// only succeeds when the character carries the rename at-login flag; the
// flag is cleared in the same transaction that writes the name.
func (p *Pipeline) RenameCharacter(guid uint64, accountID uint32, newName string) *RenameFuture {
	f := &RenameFuture{GUID: guid, NewName: newName}
	p.submit(func(ctx context.Context) {
		code, err := p.chars.Rename(ctx, guid, accountID, newName)
		f.Result = code
		f.complete(err)
	})
	return f
}

// CharCreateFuture resolves to the SMSG_CHAR_CREATE response code.
type CharCreateFuture struct {
	future
	Name   string
	GUID   uint64
	Result uint8
}

// CreateCharacter runs the creation checks and insert off-thread. Name
// validation already happened on the session thread; this only checks
// what needs the database.
func (p *Pipeline) CreateCharacter(info *CharCreateInfo, maxPerAccount int) *CharCreateFuture {
	f := &CharCreateFuture{Name: info.Name}
	p.submit(func(ctx context.Context) {
		if maxPerAccount > 0 {
			n, err := p.chars.CountByAccount(ctx, info.AccountID)
			if err != nil {
				f.Result = packet.CharCreateFailed
				f.complete(err)
				return
			}
			if n >= maxPerAccount {
				f.Result = packet.CharCreateAccountLimit
				f.complete(nil)
				return
			}
		}
		taken, err := p.chars.NameExists(ctx, info.Name)
		if err != nil {
			f.Result = packet.CharCreateFailed
			f.complete(err)
			return
		}
		if taken {
			f.Result = packet.CharCreateNameInUse
			f.complete(nil)
			return
		}
		guid, err := p.chars.Create(ctx, info)
		if err != nil {
			// A racing creation can still take the name between the check
			// and the insert; the unique index reports it here.
			f.Result = packet.CharCreateNameInUse
			f.complete(err)
			return
		}
		f.GUID = guid
		f.Result = packet.CharCreateSuccess
		f.complete(nil)
	})
	return f
}

// CharDeleteFuture resolves to the SMSG_CHAR_DELETE response code.
type CharDeleteFuture struct {
	future
	GUID   uint64
	Result uint8
	Silent bool // guid not owned by the account: no response goes out
}

// DeleteCharacter soft-deletes a character off-thread. A guid the account
// does not own is a forged packet and gets no answer at all; guild
// leaders must hand the guild over first.
func (p *Pipeline) DeleteCharacter(guid uint64, accountID uint32) *CharDeleteFuture {
	f := &CharDeleteFuture{GUID: guid}
	p.submit(func(ctx context.Context) {
		owner, err := p.chars.OwnerOf(ctx, guid)
		if err != nil {
			f.Result = packet.CharDeleteFailed
			f.complete(err)
			return
		}
		if owner != accountID {
			f.Silent = true
			f.complete(nil)
			return
		}

		var guildID uint32
		err = p.db.QueryRow(ctx,
			`SELECT id FROM guild WHERE leader_guid = $1`, guid).Scan(&guildID)
		switch {
		case err == nil:
			f.Result = packet.CharDeleteFailedGuildLeader
			f.complete(nil)
			return
		case !errors.Is(err, pgx.ErrNoRows):
			f.Result = packet.CharDeleteFailed
			f.complete(err)
			return
		}

		if err := p.chars.Delete(ctx, guid, accountID); err != nil {
			f.Result = packet.CharDeleteFailed
			if errors.Is(err, pgx.ErrNoRows) {
				err = nil // deleted concurrently
			}
			f.complete(err)
			return
		}
		f.Result = packet.CharDeleteSuccess
		f.complete(nil)
	})
	return f
}

// SocialLookupFuture resolves a character name to a GUID for friend and
// ignore list additions.
type SocialLookupFuture struct {
	future
	Name   string
	Note   string
	Found  bool
	GUID   uint64
	Race   uint8
	Class  uint8
	Level  uint8
	Online bool
}

// LookupSocial resolves a name for a friend/ignore addition off-thread.
func (p *Pipeline) LookupSocial(name, note string) *SocialLookupFuture {
	f := &SocialLookupFuture{Name: name, Note: note}
	p.submit(func(ctx context.Context) {
		row, err := p.chars.ByName(ctx, name)
		if row != nil {
			f.Found = true
			f.GUID = row.GUID
			f.Race = row.Race
			f.Class = row.Class
			f.Level = row.Level
			f.Online = row.Online
		}
		f.complete(err)
	})
	return f
}
