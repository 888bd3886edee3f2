package world

import (
	"context"
	"fmt"

	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// SMSG_GUILD_EVENT event ids.
const (
	guildEventSignedOn  uint8 = 12
	guildEventSignedOff uint8 = 13
	guildEventMotd      uint8 = 3
)

// Guild is the in-memory image of one guild row plus its roster.
type Guild struct {
	ID         uint32
	Name       string
	LeaderGUID uint64
	Motd       string
	members    map[uint64]*GuildMember
}

type GuildMember struct {
	GUID   uint64
	Rank   uint8
	Online bool
}

// GuildManager keeps every guild in memory, loaded once at boot. Login
// and logout reconciliation then never touches the database on the
// session pass; only the orphan-row self-heal writes, and it writes
// asynchronously.
type GuildManager struct {
	log      *zap.Logger
	pipeline *persist.Pipeline
	world    *World

	guilds map[uint32]*Guild
}

func NewGuildManager(world *World, pipeline *persist.Pipeline, log *zap.Logger) *GuildManager {
	return &GuildManager{
		log:      log.Named("guild"),
		pipeline: pipeline,
		world:    world,
		guilds:   make(map[uint32]*Guild),
	}
}

// Load reads every guild and member row. Called once before the world
// loop starts; after that the cache is owned by the session pass.
func (m *GuildManager) Load(ctx context.Context, db persist.Querier) error {
	rows, err := db.Query(ctx,
		`SELECT id, name, leader_guid, COALESCE(motd,'') FROM guild`)
	if err != nil {
		return fmt.Errorf("load guilds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		g := &Guild{members: make(map[uint64]*GuildMember)}
		if err := rows.Scan(&g.ID, &g.Name, &g.LeaderGUID, &g.Motd); err != nil {
			return fmt.Errorf("scan guild: %w", err)
		}
		m.guilds[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return err
	}

	mrows, err := db.Query(ctx,
		`SELECT guild_id, guid, rank FROM guild_member`)
	if err != nil {
		return fmt.Errorf("load guild members: %w", err)
	}
	defer mrows.Close()
	orphans := 0
	for mrows.Next() {
		var guildID uint32
		gm := &GuildMember{}
		if err := mrows.Scan(&guildID, &gm.GUID, &gm.Rank); err != nil {
			return fmt.Errorf("scan guild member: %w", err)
		}
		g := m.guilds[guildID]
		if g == nil {
			orphans++
			m.pipeline.ExecAsync("guild_member_orphan",
				`DELETE FROM guild_member WHERE guid = $1`, gm.GUID)
			continue
		}
		g.members[gm.GUID] = gm
	}
	if err := mrows.Err(); err != nil {
		return err
	}

	m.log.Info("公會資料載入完成",
		zap.Int("guilds", len(m.guilds)), zap.Int("orphans", orphans))
	return nil
}

// Guild returns a guild by id, nil if disbanded or unknown.
func (m *GuildManager) Guild(id uint32) *Guild { return m.guilds[id] }

func (m *GuildManager) Count() int { return len(m.guilds) }

// HandleMemberLogin announces the login to the guild. Returns false when
// the stored guild id points nowhere; the dangling membership row is
// deleted off-thread and the caller clears the player's guild id.
func (m *GuildManager) HandleMemberLogin(s *game.Session, p *game.Player) bool {
	g := m.guilds[p.GuildID]
	if g == nil {
		m.pipeline.ExecAsync("guild_member_orphan",
			`DELETE FROM guild_member WHERE guid = $1`, p.GUID)
		return false
	}

	gm := g.members[p.GUID]
	if gm == nil {
		// Member row vanished between holder load and now; treat the
		// membership as gone rather than resurrecting it.
		return false
	}
	gm.Online = true

	m.broadcastEvent(g, guildEventSignedOn, p.Name, p.GUID)

	if g.Motd != "" {
		w := packet.NewWriter(packet.SMSG_GUILD_EVENT)
		w.Uint8(guildEventMotd)
		w.Uint8(1)
		w.CString(g.Motd)
		s.SendPacket(w)
	}
	return true
}

// HandleMemberLogout marks the member offline and tells the rest of the
// guild.
func (m *GuildManager) HandleMemberLogout(p *game.Player) {
	g := m.guilds[p.GuildID]
	if g == nil {
		return
	}
	if gm := g.members[p.GUID]; gm != nil {
		gm.Online = false
	}
	m.broadcastEvent(g, guildEventSignedOff, p.Name, p.GUID)
}

// broadcastEvent fans a guild event to every online member except the
// subject.
func (m *GuildManager) broadcastEvent(g *Guild, event uint8, name string, exceptGUID uint64) {
	m.world.EachPlayer(func(other *game.Player) {
		if other.GuildID != g.ID || other.GUID == exceptGUID {
			return
		}
		s := other.Session()
		if s == nil {
			return
		}
		w := packet.NewWriter(packet.SMSG_GUILD_EVENT)
		w.Uint8(event)
		w.Uint8(1)
		w.CString(name)
		s.SendPacket(w)
	})
}
