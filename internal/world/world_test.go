package world

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wowgo/server/internal/data"
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

const testMapsYAML = `
- map_id: 0
  name: Eastern Kingdoms
  partition: 0
- map_id: 1
  name: Kalimdor
  partition: 1
- map_id: 530
  name: Outland
  partition: 1
`

func testMapTable(t *testing.T) *data.MapTable {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "maps.yaml"), []byte(testMapsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := data.LoadMapTable(dir)
	if err != nil {
		t.Fatalf("LoadMapTable: %v", err)
	}
	return table
}

func testPlayer(t *testing.T, sessionID uint64, guid uint64, mapID uint32) *game.Player {
	t.Helper()
	s := game.NewSession(sessionID, uint32(sessionID), "tester", 2, nil, &game.Deps{Log: zap.NewNop()})
	h := &persist.LoginQueryHolder{
		AccountID: uint32(sessionID),
		GUID:      guid,
		Char: &persist.CharacterRow{
			GUID:    guid,
			Account: uint32(sessionID),
			Name:    "Tester",
			Race:    1,
			Class:   1,
			Level:   10,
			Map:     mapID,
			Health:  100,
		},
	}
	return game.NewPlayerFromHolder(h, s)
}

func TestAddPlayerUnknownMap(t *testing.T) {
	w := New(testMapTable(t), 2, zap.NewNop())
	p := testPlayer(t, 1, 7, 999)
	if err := w.AddPlayer(p); err == nil {
		t.Fatal("unknown map accepted")
	}
	if p.IsInWorld() {
		t.Fatal("player marked in world after refused add")
	}
}

func TestAddPlayerDuplicateGUID(t *testing.T) {
	w := New(testMapTable(t), 2, zap.NewNop())
	p := testPlayer(t, 1, 7, 0)
	if err := w.AddPlayer(p); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := w.AddPlayer(testPlayer(t, 2, 7, 0)); err == nil {
		t.Fatal("duplicate guid accepted")
	}
	if w.PlayerCount() != 1 {
		t.Fatalf("PlayerCount = %d, want 1", w.PlayerCount())
	}
}

func TestAddRemoveLookup(t *testing.T) {
	w := New(testMapTable(t), 2, zap.NewNop())
	p := testPlayer(t, 1, 7, 0)

	if err := w.AddPlayer(p); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if !p.IsInWorld() {
		t.Fatal("player not marked in world")
	}
	if got := w.PlayerByGUID(7); got != p {
		t.Fatal("PlayerByGUID missed the player")
	}

	w.RemovePlayer(p)
	if p.IsInWorld() {
		t.Fatal("player still marked in world after removal")
	}
	if w.PlayerByGUID(7) != nil {
		t.Fatal("removed player still found")
	}

	// Removing again is harmless.
	w.RemovePlayer(p)
	if w.PlayerCount() != 0 {
		t.Fatalf("PlayerCount = %d, want 0", w.PlayerCount())
	}
}

func TestPartitionSessions(t *testing.T) {
	w := New(testMapTable(t), 2, zap.NewNop())

	// Two players on partition 0, two on partition 1 (different maps),
	// inserted out of id order.
	for _, tc := range []struct {
		session uint64
		guid    uint64
		mapID   uint32
	}{
		{3, 30, 0},
		{1, 10, 0},
		{4, 40, 1},
		{2, 20, 530},
	} {
		if err := w.AddPlayer(testPlayer(t, tc.session, tc.guid, tc.mapID)); err != nil {
			t.Fatalf("AddPlayer %d: %v", tc.guid, err)
		}
	}

	parts := w.partitionSessions()
	if len(parts) != 2 {
		t.Fatalf("partitions = %d, want 2", len(parts))
	}

	ids := func(part int) []uint64 {
		var out []uint64
		for _, s := range parts[part] {
			out = append(out, s.ID)
		}
		return out
	}
	if got := ids(0); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("partition 0 sessions = %v, want [1 3]", got)
	}
	if got := ids(1); len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("partition 1 sessions = %v, want [2 4]", got)
	}
}

func TestPartitionDedupesSessions(t *testing.T) {
	w := New(testMapTable(t), 2, zap.NewNop())

	// Two players hanging off one session id must not get that session
	// updated twice in the same pass.
	s := game.NewSession(1, 1, "tester", 2, nil, &game.Deps{Log: zap.NewNop()})
	for _, guid := range []uint64{7, 8} {
		h := &persist.LoginQueryHolder{
			AccountID: 1,
			GUID:      guid,
			Char:      &persist.CharacterRow{GUID: guid, Account: 1, Name: "Tester", Race: 1, Class: 1, Level: 10, Map: 0, Health: 100},
		}
		if err := w.AddPlayer(game.NewPlayerFromHolder(h, s)); err != nil {
			t.Fatalf("AddPlayer %d: %v", guid, err)
		}
	}

	parts := w.partitionSessions()
	if got := len(parts[0]); got != 1 {
		t.Fatalf("partition 0 holds %d sessions, want 1", got)
	}
}

func TestUpdateMapsEmptyWorld(t *testing.T) {
	w := New(testMapTable(t), 2, zap.NewNop())
	w.UpdateMaps(time.Now())
}
