package world

import (
	"context"

	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// SMSG_FRIEND_STATUS codes the broadcaster emits.
const (
	friendStatusOnline  uint8 = 0x02
	friendStatusOffline uint8 = 0x03
)

// SocialManager fans presence changes out to friend lists and persists
// social additions and removals through the async pipeline.
type SocialManager struct {
	log      *zap.Logger
	pipeline *persist.Pipeline
	world    *World
}

func NewSocialManager(world *World, pipeline *persist.Pipeline, log *zap.Logger) *SocialManager {
	return &SocialManager{
		log:      log.Named("social"),
		pipeline: pipeline,
		world:    world,
	}
}

// BroadcastStatus tells every in-world player who has p on their friend
// list that p went online or offline.
func (m *SocialManager) BroadcastStatus(p *game.Player, online bool) {
	code := friendStatusOffline
	if online {
		code = friendStatusOnline
	}

	m.world.EachPlayer(func(other *game.Player) {
		if other.GUID == p.GUID || !other.FriendsWith(p.GUID) {
			return
		}
		s := other.Session()
		if s == nil {
			return
		}
		w := packet.NewWriter(packet.SMSG_FRIEND_STATUS)
		w.Uint8(code)
		w.Uint64(p.GUID)
		if online {
			w.Uint8(1) // status flags: online
			w.Uint32(p.Zone)
			w.Uint32(uint32(p.Level))
			w.Uint32(uint32(p.Class))
		}
		s.SendPacket(w)
	})
}

// StoreFriend persists a friend or ignore entry. The in-memory social
// list was already updated by the session; this only writes.
func (m *SocialManager) StoreFriend(owner, friend uint64, flags uint8, note string) {
	chars := m.pipeline.Chars()
	m.pipeline.Async("social_add", func(ctx context.Context) error {
		return chars.AddSocial(ctx, owner, friend, flags, note)
	})
}

// RemoveFriend drops one flag from a social entry, deleting the row when
// no flags remain.
func (m *SocialManager) RemoveFriend(owner, friend uint64, flags uint8) {
	chars := m.pipeline.Chars()
	m.pipeline.Async("social_del", func(ctx context.Context) error {
		return chars.RemoveSocialFlag(ctx, owner, friend, flags)
	})
}
