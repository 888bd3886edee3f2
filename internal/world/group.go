package world

import (
	"context"
	"fmt"

	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// Group is the in-memory image of one persistent party.
type Group struct {
	ID         uint32
	LeaderGUID uint64
	LootMethod uint8
	members    []*GroupMember
}

type GroupMember struct {
	GUID     uint64
	Name     string
	SubGroup uint8
	Online   bool
}

// Members returns the roster, leader included.
func (g *Group) Members() []*GroupMember { return g.members }

// GroupManager keeps persistent parties in memory, loaded once at boot.
// Accessed from the session pass only.
type GroupManager struct {
	log      *zap.Logger
	pipeline *persist.Pipeline
	world    *World

	groups map[uint32]*Group
	byGUID map[uint64]uint32 // member guid -> group id
}

func NewGroupManager(world *World, pipeline *persist.Pipeline, log *zap.Logger) *GroupManager {
	return &GroupManager{
		log:      log.Named("group"),
		pipeline: pipeline,
		world:    world,
		groups:   make(map[uint32]*Group),
		byGUID:   make(map[uint64]uint32),
	}
}

// Load reads every persistent group and its roster. Member names come
// along so the group list packet needs no name queries.
func (m *GroupManager) Load(ctx context.Context, db persist.Querier) error {
	rows, err := db.Query(ctx,
		`SELECT id, leader_guid, loot_method FROM groups`)
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.LeaderGUID, &g.LootMethod); err != nil {
			return fmt.Errorf("scan group: %w", err)
		}
		m.groups[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return err
	}

	mrows, err := db.Query(ctx,
		`SELECT gm.group_id, gm.guid, gm.sub_group, c.name
		 FROM group_member gm
		 JOIN characters c ON c.guid = gm.guid`)
	if err != nil {
		return fmt.Errorf("load group members: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var groupID uint32
		gm := &GroupMember{}
		if err := mrows.Scan(&groupID, &gm.GUID, &gm.SubGroup, &gm.Name); err != nil {
			return fmt.Errorf("scan group member: %w", err)
		}
		g := m.groups[groupID]
		if g == nil {
			m.pipeline.ExecAsync("group_member_orphan",
				`DELETE FROM group_member WHERE guid = $1`, gm.GUID)
			continue
		}
		g.members = append(g.members, gm)
		m.byGUID[gm.GUID] = groupID
	}
	if err := mrows.Err(); err != nil {
		return err
	}

	m.log.Info("隊伍資料載入完成", zap.Int("groups", len(m.groups)))
	return nil
}

func (m *GroupManager) Count() int { return len(m.groups) }

// GroupFor returns the persistent group a character belongs to, nil when
// ungrouped.
func (m *GroupManager) GroupFor(guid uint64) *Group {
	id, ok := m.byGUID[guid]
	if !ok {
		return nil
	}
	return m.groups[id]
}

// MemberOnline marks the member present after login.
func (m *GroupManager) MemberOnline(p *game.Player, groupID uint32) {
	g := m.groups[groupID]
	if g == nil {
		// Stale id from the login holder; the roster is authoritative.
		p.GroupID = 0
		return
	}
	for _, gm := range g.members {
		if gm.GUID == p.GUID {
			gm.Online = true
			return
		}
	}
	p.GroupID = 0
}

// MemberOffline marks the member absent at logout.
func (m *GroupManager) MemberOffline(p *game.Player) {
	g := m.groups[p.GroupID]
	if g == nil {
		return
	}
	for _, gm := range g.members {
		if gm.GUID == p.GUID {
			gm.Online = false
			return
		}
	}
}

// SendUpdate pushes the full group list to every online member. Called
// after any membership or presence change.
func (m *GroupManager) SendUpdate(groupID uint32) {
	g := m.groups[groupID]
	if g == nil {
		return
	}
	for _, gm := range g.members {
		if !gm.Online {
			continue
		}
		p := m.world.PlayerByGUID(gm.GUID)
		if p == nil {
			continue
		}
		if s := p.Session(); s != nil {
			s.SendPacket(m.buildGroupList(g, gm))
		}
	}
}

// buildGroupList writes SMSG_GROUP_LIST from the recipient's point of
// view: everyone but the recipient appears in the member block.
func (m *GroupManager) buildGroupList(g *Group, to *GroupMember) *packet.Writer {
	w := packet.NewWriter(packet.SMSG_GROUP_LIST)
	w.Uint8(0)           // group type: normal party
	w.Uint8(to.SubGroup) // recipient's subgroup
	w.Uint8(0)           // member flags
	w.Uint8(0)           // roles
	w.Uint64(uint64(g.ID))
	w.Uint32(0) // update counter
	w.Uint32(uint32(len(g.members) - 1))
	for _, gm := range g.members {
		if gm.GUID == to.GUID {
			continue
		}
		w.CString(gm.Name)
		w.Uint64(gm.GUID)
		if gm.Online {
			w.Uint8(1)
		} else {
			w.Uint8(0)
		}
		w.Uint8(gm.SubGroup)
		w.Uint8(0) // member flags
		w.Uint8(0) // roles
	}
	w.Uint64(g.LeaderGUID)
	w.Uint8(g.LootMethod)
	w.Uint64(0) // master looter
	w.Uint8(0)  // loot threshold
	w.Uint8(0)  // dungeon difficulty
	w.Uint8(0)  // raid difficulty
	w.Uint8(0)  // dynamic difficulty
	return w
}
