package handler

import (
	"github.com/wowgo/server/internal/data"
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
)

// HandleNameQuery answers CMSG_NAME_QUERY through the async pipeline.
// Responses keep request order even when the database answers out of
// order.
func HandleNameQuery(s *game.Session, r *packet.Reader, deps *Deps) {
	guid := r.Uint64()
	if r.Err() != nil {
		return
	}
	s.RequestNameQuery(guid)
}

// HandleContactList sends the full friend and ignore list from the
// session's in-memory social state, with live presence for friends.
func HandleContactList(s *game.Session, r *packet.Reader, deps *Deps) {
	r.Uint32() // client-side list flags, echoed below
	p := s.Player()
	if p == nil {
		return
	}

	w := packet.NewWriter(packet.SMSG_CONTACT_LIST)
	w.Uint32(0x07) // friends + ignored + muted
	w.Uint32(uint32(len(p.Social)))
	for _, row := range p.Social {
		w.Uint64(row.FriendGUID)
		w.Uint32(uint32(row.Flags))
		w.CString(row.Note)
		if row.Flags&persist.SocialFlagFriend == 0 {
			continue
		}
		other := deps.World.PlayerByGUID(row.FriendGUID)
		if other == nil {
			w.Uint8(0) // offline
			continue
		}
		w.Uint8(1)
		w.Uint32(other.Zone)
		w.Uint32(uint32(other.Level))
		w.Uint32(uint32(other.Class))
	}
	s.SendPacket(w)
}

// HandleAddFriend resolves the target name off-thread; the result packet
// goes out with the social callback.
func HandleAddFriend(s *game.Session, r *packet.Reader, deps *Deps) {
	name := r.CString()
	note := r.CString()
	if r.Err() != nil || name == "" {
		return
	}
	s.RequestAddFriend(data.NormalizeName(name), note)
}

// HandleDelFriend removes a friend entry in memory and persists the
// removal asynchronously.
func HandleDelFriend(s *game.Session, r *packet.Reader, deps *Deps) {
	guid := r.Uint64()
	if r.Err() != nil {
		return
	}
	removeSocialFlag(s, guid, persist.SocialFlagFriend, 0x05)
}

// HandleAddIgnore resolves the target name off-thread.
func HandleAddIgnore(s *game.Session, r *packet.Reader, deps *Deps) {
	name := r.CString()
	if r.Err() != nil || name == "" {
		return
	}
	s.RequestAddIgnore(data.NormalizeName(name))
}

// HandleDelIgnore removes an ignore entry.
func HandleDelIgnore(s *game.Session, r *packet.Reader, deps *Deps) {
	guid := r.Uint64()
	if r.Err() != nil {
		return
	}
	removeSocialFlag(s, guid, persist.SocialFlagIgnore, 0x11)
}

// removeSocialFlag drops one flag from the in-memory social entry,
// persists the change and acks with the given SMSG_FRIEND_STATUS code.
func removeSocialFlag(s *game.Session, guid uint64, flag uint8, ackCode uint8) {
	p := s.Player()
	if p == nil {
		return
	}

	for i := range p.Social {
		row := &p.Social[i]
		if row.FriendGUID != guid || row.Flags&flag == 0 {
			continue
		}
		row.Flags &^= flag
		if row.Flags == 0 {
			p.Social = append(p.Social[:i], p.Social[i+1:]...)
		}
		s.Deps().Social.RemoveFriend(p.GUID, guid, flag)

		w := packet.NewWriter(packet.SMSG_FRIEND_STATUS)
		w.Uint8(ackCode)
		w.Uint64(guid)
		s.SendPacket(w)
		return
	}
}
