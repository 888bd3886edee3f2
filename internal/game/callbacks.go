package game

import (
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// maxFriends is the friend-list cap the client enforces too.
const maxFriends = 50

// Friend status codes for SMSG_FRIEND_STATUS.
const (
	friendDBError      uint8 = 0x00
	friendListFull     uint8 = 0x01
	friendOnline       uint8 = 0x02
	friendOffline      uint8 = 0x03
	friendNotFound     uint8 = 0x04
	friendAddedOnline  uint8 = 0x06
	friendAddedOffline uint8 = 0x07
	friendAlready      uint8 = 0x08
	friendSelf         uint8 = 0x09
	friendEnemy        uint8 = 0x0A
	friendIgnoreAdded  uint8 = 0x0F
	friendIgnoreFull   uint8 = 0x0C
	friendIgnoreSelf   uint8 = 0x0D
	friendIgnoreNot    uint8 = 0x0E
	friendIgnoreAlr    uint8 = 0x10
)

// RequestNameQuery starts an async name lookup. Multiple may be in flight;
// responses go out in request order.
func (s *Session) RequestNameQuery(guid uint64) {
	s.nameQueries = append(s.nameQueries, s.deps.Pipeline.LookupName(guid))
}

// RequestCharCreate starts an async character creation. The database-side
// checks (account limit, name uniqueness) run on the pipeline.
func (s *Session) RequestCharCreate(info *persist.CharCreateInfo) {
	if s.charCreateF != nil {
		w := packet.NewWriter(packet.SMSG_CHAR_CREATE)
		w.Uint8(packet.CharCreateInProgress)
		s.SendPacket(w)
		return
	}
	s.charCreateF = s.deps.Pipeline.CreateCharacter(info, s.deps.Cfg.Character.MaxPerAccount)
}

// RequestCharDelete starts an async character deletion.
func (s *Session) RequestCharDelete(guid uint64) {
	if s.charDeleteF != nil {
		w := packet.NewWriter(packet.SMSG_CHAR_DELETE)
		w.Uint8(packet.CharDeleteInProgress)
		s.SendPacket(w)
		return
	}
	s.charDeleteF = s.deps.Pipeline.DeleteCharacter(guid, s.accountID)
}

// RequestCharEnum starts the character list query. A second request while
// one is pending is dropped; the client only ever needs the latest.
func (s *Session) RequestCharEnum() {
	if s.charEnumF != nil {
		return
	}
	s.charEnumF = s.deps.Pipeline.EnumCharacters(s.accountID)
}

// RequestCharLogin starts the login holder for one character. At most one
// login may be in flight per session; a duplicate CMSG_PLAYER_LOGIN while
// loading is ignored.
func (s *Session) RequestCharLogin(guid uint64) {
	if s.playerLoading || s.charLoginF != nil || s.Player() != nil {
		s.log.Warn("重複的角色登入要求", zap.Uint64("guid", guid))
		return
	}
	holder, err := persist.NewLoginQueryHolder(s.accountID, guid)
	if err != nil {
		s.log.Error("角色登入查詢初始化失敗", zap.Error(err))
		s.loginFailed(packet.CharLoginNoCharacter)
		return
	}
	s.playerLoading = true
	s.charLoginF = s.deps.Pipeline.LoadLogin(holder)
}

// RequestBotLogin starts a login holder for an owned bot session.
func (s *Session) RequestBotLogin(bot *Session, guid uint64) {
	holder, err := persist.NewLoginQueryHolder(bot.accountID, guid)
	if err != nil {
		s.log.Error("機器人登入查詢初始化失敗", zap.Error(err))
		return
	}
	bot.playerLoading = true
	s.botLogins = append(s.botLogins, s.deps.Pipeline.LoadLogin(holder))
}

// RequestRename starts an async character rename.
func (s *Session) RequestRename(guid uint64, newName string) {
	if s.renameF != nil {
		return
	}
	s.renameF = s.deps.Pipeline.RenameCharacter(guid, s.accountID, newName)
}

// RequestAddFriend starts an async friend addition.
func (s *Session) RequestAddFriend(name, note string) {
	if s.addFriendF != nil {
		return
	}
	s.addFriendF = s.deps.Pipeline.LookupSocial(name, note)
}

// RequestAddIgnore starts an async ignore addition.
func (s *Session) RequestAddIgnore(name string) {
	if s.addIgnoreF != nil {
		return
	}
	s.addIgnoreF = s.deps.Pipeline.LookupSocial(name, "")
}

// processQueryCallbacks consumes finished futures, always in the same
// order. Order is part of the protocol contract: a client that sent
// CMSG_CHAR_ENUM then CMSG_PLAYER_LOGIN must see the enum answered first.
func (s *Session) processQueryCallbacks() {
	for len(s.nameQueries) > 0 && s.nameQueries[0].Ready() {
		f := s.nameQueries[0]
		s.nameQueries = s.nameQueries[1:]
		s.handleNameQueryResult(f)
	}

	if f := s.charCreateF; f != nil && f.Ready() {
		s.charCreateF = nil
		s.handleCharCreateResult(f)
	}

	if f := s.charDeleteF; f != nil && f.Ready() {
		s.charDeleteF = nil
		s.handleCharDeleteResult(f)
	}

	if f := s.charEnumF; f != nil && f.Ready() {
		s.charEnumF = nil
		s.handleCharEnumResult(f)
	}

	if f := s.charLoginF; f != nil && f.Ready() {
		s.charLoginF = nil
		s.handlePlayerLogin(f)
	}

	for i := 0; i < len(s.botLogins); {
		f := s.botLogins[i]
		if !f.Ready() {
			i++
			continue
		}
		s.botLogins = append(s.botLogins[:i], s.botLogins[i+1:]...)
		s.handleBotLogin(f)
	}

	if f := s.renameF; f != nil && f.Ready() {
		s.renameF = nil
		s.handleRenameResult(f)
	}

	if f := s.addFriendF; f != nil && f.Ready() {
		s.addFriendF = nil
		s.handleAddFriendResult(f)
	}

	if f := s.addIgnoreF; f != nil && f.Ready() {
		s.addIgnoreF = nil
		s.handleAddIgnoreResult(f)
	}
}

func (s *Session) handleNameQueryResult(f *persist.NameQueryFuture) {
	w := packet.NewWriter(packet.SMSG_NAME_QUERY_RESPONSE)
	w.PackGUID(f.GUID)
	if f.Err() != nil || !f.Found {
		w.Uint8(1) // name unknown
		s.SendPacket(w)
		return
	}
	w.Uint8(0)
	w.CString(f.Name)
	w.CString("") // realm name, same realm
	w.Uint8(f.Race)
	w.Uint8(f.Gender)
	w.Uint8(f.Class)
	w.Uint8(0) // no declined names
	s.SendPacket(w)
}

func (s *Session) handleCharCreateResult(f *persist.CharCreateFuture) {
	if err := f.Err(); err != nil {
		s.log.Error("角色建立失敗", zap.String("name", f.Name), zap.Error(err))
	}
	if f.Result == packet.CharCreateSuccess {
		s.log.Info("角色建立完成",
			zap.Uint64("guid", f.GUID), zap.String("name", f.Name))
	}
	w := packet.NewWriter(packet.SMSG_CHAR_CREATE)
	w.Uint8(f.Result)
	s.SendPacket(w)
}

func (s *Session) handleCharDeleteResult(f *persist.CharDeleteFuture) {
	if f.Silent {
		// Deleting a character the account does not own never comes from a
		// real client; the forged packet gets no answer.
		s.log.Warn("嘗試刪除他人角色", zap.Uint64("guid", f.GUID))
		return
	}
	if err := f.Err(); err != nil {
		s.log.Error("角色刪除失敗", zap.Uint64("guid", f.GUID), zap.Error(err))
	}
	if f.Result == packet.CharDeleteSuccess {
		s.log.Info("角色刪除完成", zap.Uint64("guid", f.GUID))
	}
	w := packet.NewWriter(packet.SMSG_CHAR_DELETE)
	w.Uint8(f.Result)
	s.SendPacket(w)
}

func (s *Session) handleCharEnumResult(f *persist.CharEnumFuture) {
	if err := f.Err(); err != nil {
		s.log.Error("角色清單查詢失敗", zap.Error(err))
	}

	w := packet.NewWriter(packet.SMSG_CHAR_ENUM)
	w.Uint8(uint8(len(f.Characters)))
	for _, c := range f.Characters {
		w.Uint64(c.GUID)
		w.CString(c.Name)
		w.Uint8(c.Race)
		w.Uint8(c.Class)
		w.Uint8(c.Gender)
		w.Uint8(c.Skin)
		w.Uint8(c.Face)
		w.Uint8(c.HairStyle)
		w.Uint8(c.HairColor)
		w.Uint8(c.FacialStyle)
		w.Uint8(c.Level)
		w.Uint32(c.Zone)
		w.Uint32(c.Map)
		w.Float32(c.X)
		w.Float32(c.Y)
		w.Float32(c.Z)
		w.Uint32(c.GuildID)

		var charFlags uint32
		if c.AtLogin&persist.AtLoginRename != 0 {
			charFlags |= 0x00004000 // rename pending
		}
		w.Uint32(charFlags)

		var customize uint32
		if c.AtLogin&persist.AtLoginCustomize != 0 {
			customize = 1
		}
		w.Uint32(customize)

		var firstLogin uint8
		if c.AtLogin&persist.AtLoginFirst != 0 {
			firstLogin = 1
		}
		w.Uint8(firstLogin)

		w.Uint32(c.PetDisplayID)
		w.Uint32(c.PetLevel)
		w.Uint32(c.PetFamily)

		writeEnumEquipment(w, c.Equipment)
	}
	s.SendPacket(w)
}

// enumEquipSlots is the number of equipment entries the enum packet
// carries: 19 gear slots plus the first bag.
const enumEquipSlots = 20

// writeEnumEquipment writes the per-slot display info from the serialized
// equipment cache ("display:invtype:enchant ..." per slot). Missing or
// short caches fall back to empty slots.
func writeEnumEquipment(w *packet.Writer, cache string) {
	slots := parseEquipmentCache(cache)
	for i := 0; i < enumEquipSlots; i++ {
		if i < len(slots) {
			w.Uint32(slots[i].display)
			w.Uint8(slots[i].invType)
			w.Uint32(slots[i].enchant)
		} else {
			w.Uint32(0)
			w.Uint8(0)
			w.Uint32(0)
		}
	}
}

func (s *Session) handleRenameResult(f *persist.RenameFuture) {
	if err := f.Err(); err != nil {
		s.log.Error("角色改名失敗", zap.Error(err))
	}

	w := packet.NewWriter(packet.SMSG_CHAR_RENAME)
	w.Uint8(f.Result)
	if f.Result == packet.ResponseSuccess {
		w.Uint64(f.GUID)
		w.CString(f.NewName)
		s.log.Info("角色改名完成",
			zap.Uint64("guid", f.GUID), zap.String("name", f.NewName))
	}
	s.SendPacket(w)
}

func (s *Session) handleAddFriendResult(f *persist.SocialLookupFuture) {
	p := s.Player()
	if p == nil {
		return
	}

	result := friendNotFound
	var guid uint64

	switch {
	case f.Err() != nil:
		result = friendDBError
	case !f.Found:
		result = friendNotFound
	case f.GUID == p.GUID:
		result = friendSelf
	default:
		guid = f.GUID
		already := false
		friends := 0
		for _, row := range p.Social {
			if row.Flags&persist.SocialFlagFriend != 0 {
				friends++
				if row.FriendGUID == guid {
					already = true
				}
			}
		}
		switch {
		case already:
			result = friendAlready
		case friends >= maxFriends:
			result = friendListFull
		default:
			p.Social = append(p.Social, persist.SocialRow{
				FriendGUID: guid,
				Flags:      persist.SocialFlagFriend,
				Note:       f.Note,
			})
			s.deps.Social.StoreFriend(p.GUID, guid, persist.SocialFlagFriend, f.Note)
			if f.Online {
				result = friendAddedOnline
			} else {
				result = friendAddedOffline
			}
		}
	}

	w := packet.NewWriter(packet.SMSG_FRIEND_STATUS)
	w.Uint8(result)
	w.Uint64(guid)
	if result == friendAddedOnline || result == friendAddedOffline {
		w.CString(f.Note)
	}
	if result == friendAddedOnline {
		w.Uint8(1)  // status online
		w.Uint32(0) // area
		w.Uint32(uint32(f.Level))
		w.Uint32(uint32(f.Class))
	}
	s.SendPacket(w)
}

func (s *Session) handleAddIgnoreResult(f *persist.SocialLookupFuture) {
	p := s.Player()
	if p == nil {
		return
	}

	result := friendIgnoreNot
	var guid uint64

	switch {
	case f.Err() != nil || !f.Found:
		result = friendIgnoreNot
	case f.GUID == p.GUID:
		result = friendIgnoreSelf
	default:
		guid = f.GUID
		already := false
		for _, row := range p.Social {
			if row.FriendGUID == guid && row.Flags&persist.SocialFlagIgnore != 0 {
				already = true
				break
			}
		}
		if already {
			result = friendIgnoreAlr
		} else {
			result = friendIgnoreAdded
			p.Social = append(p.Social, persist.SocialRow{
				FriendGUID: guid,
				Flags:      persist.SocialFlagIgnore,
			})
			s.deps.Social.StoreFriend(p.GUID, guid, persist.SocialFlagIgnore, "")
		}
	}

	w := packet.NewWriter(packet.SMSG_FRIEND_STATUS)
	w.Uint8(result)
	w.Uint64(guid)
	s.SendPacket(w)
}
