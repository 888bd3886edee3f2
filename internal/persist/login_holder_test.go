package persist

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestHolderBindsEveryStatement(t *testing.T) {
	h, err := NewLoginQueryHolder(1, 7)
	if err != nil {
		t.Fatalf("NewLoginQueryHolder: %v", err)
	}
	if len(h.queries) != stmtCharMax {
		t.Fatalf("bound %d statements, want %d", len(h.queries), stmtCharMax)
	}
	for _, q := range h.queries {
		want := 1
		if q.id == stmtCharMailCount || q.id == stmtCharSpellCooldowns {
			want = 2 // guid plus the current time
		}
		if len(q.args) != want {
			t.Errorf("stmt %d bound with %d args, want %d", q.id, len(q.args), want)
		}
	}
}

// A statement that cannot be bound must refuse the whole login: a
// character loaded from a partial result set would be silently corrupt.
func TestHolderFailsClosed(t *testing.T) {
	saved := loginStatements[stmtCharPets]
	delete(loginStatements, stmtCharPets)
	defer func() { loginStatements[stmtCharPets] = saved }()

	_, err := NewLoginQueryHolder(1, 7)
	if !errors.Is(err, ErrHolderStatement) {
		t.Fatalf("err = %v, want ErrHolderStatement", err)
	}
}

func TestHolderMissingCharacterFatal(t *testing.T) {
	fq := &fakeQuerier{answer: func(sql string) ([]any, error) {
		switch {
		case strings.Contains(sql, "COUNT(*) FROM mail"):
			return []any{uint32(0)}, nil
		case strings.Contains(sql, "MAX(deliver_time)"):
			return []any{int64(0)}, nil
		}
		return nil, nil
	}}

	h, err := NewLoginQueryHolder(1, 7)
	if err != nil {
		t.Fatalf("NewLoginQueryHolder: %v", err)
	}
	if err := h.Execute(context.Background(), fq); err == nil {
		t.Fatal("Execute succeeded with no character row")
	}
	if h.Char != nil {
		t.Fatal("Char set despite missing row")
	}
}

func TestHolderScansMembership(t *testing.T) {
	fq := &fakeQuerier{answer: func(sql string) ([]any, error) {
		switch {
		case strings.Contains(sql, "FROM group_member"):
			return []any{uint32(5)}, nil
		case strings.Contains(sql, "FROM guild_member"):
			return []any{uint32(3), uint8(2)}, nil
		}
		return nil, nil
	}}

	h := &LoginQueryHolder{AccountID: 1, GUID: 7}
	ctx := context.Background()

	group := boundQuery{id: stmtCharGroup, sql: loginStatements[stmtCharGroup], args: []any{uint64(7)}}
	if err := h.runOne(ctx, fq, group); err != nil {
		t.Fatalf("group scan: %v", err)
	}
	if h.GroupID != 5 {
		t.Fatalf("GroupID = %d, want 5", h.GroupID)
	}

	guild := boundQuery{id: stmtCharGuild, sql: loginStatements[stmtCharGuild], args: []any{uint64(7)}}
	if err := h.runOne(ctx, fq, guild); err != nil {
		t.Fatalf("guild scan: %v", err)
	}
	if h.GuildID != 3 || h.GuildRank != 2 {
		t.Fatalf("guild = %d rank %d, want 3 rank 2", h.GuildID, h.GuildRank)
	}
}

// Empty child tables are normal; only the character row itself may not be
// missing.
func TestHolderEmptyMembershipTolerated(t *testing.T) {
	fq := &fakeQuerier{}
	h := &LoginQueryHolder{AccountID: 1, GUID: 7}
	ctx := context.Background()

	for _, id := range []int{stmtCharGroup, stmtCharGuild, stmtCharHomeBind, stmtCharBanned, stmtCharRandomBG} {
		q := boundQuery{id: id, sql: loginStatements[id], args: []any{uint64(7)}}
		if err := h.runOne(ctx, fq, q); err != nil {
			t.Errorf("stmt %d: empty result treated as error: %v", id, err)
		}
	}
	if h.GroupID != 0 || h.GuildID != 0 || h.HomeBind != nil || h.Banned || h.RandomBGWinner {
		t.Fatal("empty results left state behind")
	}
}
