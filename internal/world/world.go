package world

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wowgo/server/internal/data"
	"github.com/wowgo/server/internal/game"
	"go.uber.org/zap"
)

// World tracks every in-world player and runs the map pass. Maps are
// grouped into update partitions (from maps.yaml); each partition is
// updated by one worker per tick, so two sessions on the same partition
// never run concurrently while different partitions do.
type World struct {
	log     *zap.Logger
	maps    *data.MapTable
	workers int

	mu      sync.RWMutex
	players map[uint64]*game.Player // by guid
}

func New(maps *data.MapTable, workers int, log *zap.Logger) *World {
	if workers < 1 {
		workers = 1
	}
	return &World{
		log:     log.Named("world"),
		maps:    maps,
		workers: workers,
		players: make(map[uint64]*game.Player),
	}
}

// AddPlayer places a player on their map. Fails when the map id is not in
// the map table; the caller falls back to the home bind position.
func (w *World) AddPlayer(p *game.Player) error {
	info := w.maps.Lookup(p.Map)
	if info == nil {
		return fmt.Errorf("unknown map %d", p.Map)
	}

	w.mu.Lock()
	if _, dup := w.players[p.GUID]; dup {
		w.mu.Unlock()
		return fmt.Errorf("guid %d already in world", p.GUID)
	}
	w.players[p.GUID] = p
	w.mu.Unlock()

	p.SetInWorld(true)
	w.log.Debug("玩家進入地圖",
		zap.Uint64("guid", p.GUID),
		zap.Uint32("map", p.Map),
		zap.String("name", info.Name),
	)
	return nil
}

// RemovePlayer takes a player out of the world. Safe when the player was
// never added.
func (w *World) RemovePlayer(p *game.Player) {
	w.mu.Lock()
	delete(w.players, p.GUID)
	w.mu.Unlock()
	p.SetInWorld(false)
}

// PlayerByGUID returns an in-world player, nil when offline or loading.
func (w *World) PlayerByGUID(guid uint64) *game.Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.players[guid]
}

// EachPlayer calls fn for every in-world player. fn must not add or
// remove players.
func (w *World) EachPlayer(fn func(*game.Player)) {
	w.mu.RLock()
	snapshot := make([]*game.Player, 0, len(w.players))
	for _, p := range w.players {
		snapshot = append(snapshot, p)
	}
	w.mu.RUnlock()
	for _, p := range snapshot {
		fn(p)
	}
}

// PlayerCount returns the number of in-world players.
func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}

// UpdateMaps runs the map pass: each partition's sessions drain their
// map-safe packets on a worker. Returns once every partition finished;
// the session pass follows on the world loop.
func (w *World) UpdateMaps(now time.Time) {
	parts := w.partitionSessions()
	if len(parts) == 0 {
		return
	}

	work := make(chan []*game.Session, len(parts))
	for _, sessions := range parts {
		work <- sessions
	}
	close(work)

	n := w.workers
	if n > len(parts) {
		n = len(parts)
	}

	var wg sync.WaitGroup
	filter := game.MapFilter{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sessions := range work {
				for _, s := range sessions {
					s.Update(now, filter)
				}
			}
		}()
	}
	wg.Wait()
}

// partitionSessions groups the sessions of in-world players by map
// partition, each session at most once, in session-id order.
func (w *World) partitionSessions() map[int][]*game.Session {
	w.mu.RLock()
	defer w.mu.RUnlock()

	seen := make(map[uint64]bool, len(w.players))
	parts := make(map[int][]*game.Session)
	for _, p := range w.players {
		s := p.Session()
		if s == nil || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		part := 0
		if info := w.maps.Lookup(p.Map); info != nil {
			part = info.Partition
		}
		parts[part] = append(parts[part], s)
	}
	for _, sessions := range parts {
		sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	}
	return parts
}
