package handler

import (
	"unicode"

	"github.com/wowgo/server/internal/data"
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/persist"
	"go.uber.org/zap"
)

// HandleCharEnum answers CMSG_CHAR_ENUM. The list is queried off-thread;
// SMSG_CHAR_ENUM goes out when the future resolves on a later tick.
func HandleCharEnum(s *game.Session, r *packet.Reader, deps *Deps) {
	s.RequestCharEnum()
}

// HandleCharCreate validates what can be checked without the database,
// then hands the insert to the pipeline. Name and race faults answer
// immediately; the rest arrives with the create callback.
func HandleCharCreate(s *game.Session, r *packet.Reader, deps *Deps) {
	name := r.CString()
	race := r.Uint8()
	class := r.Uint8()
	gender := r.Uint8()
	skin := r.Uint8()
	face := r.Uint8()
	hairStyle := r.Uint8()
	hairColor := r.Uint8()
	facialStyle := r.Uint8()
	r.Uint8() // outfit id
	if r.Err() != nil {
		return
	}

	name = data.NormalizeName(name)
	if code := validateName(s, name, deps); code != packet.CharNameSuccess {
		sendCharCreateResult(s, code)
		return
	}

	start := deps.Start.ForRace(race)
	if start == nil {
		s.Log().Warn("嘗試建立未開放的種族",
			zap.Uint8("race", race), zap.String("name", name))
		sendCharCreateResult(s, packet.CharCreateDisabled)
		return
	}

	s.RequestCharCreate(&persist.CharCreateInfo{
		AccountID:   s.AccountID(),
		Name:        name,
		Race:        race,
		Class:       class,
		Gender:      gender,
		Skin:        skin,
		Face:        face,
		HairStyle:   hairStyle,
		HairColor:   hairColor,
		FacialStyle: facialStyle,

		Map:     start.Map,
		Zone:    start.Zone,
		X:       start.X,
		Y:       start.Y,
		Z:       start.Z,
		O:       start.O,
		Level:   1,
		Health:  start.Health,
		AtLogin: persist.AtLoginFirst,
	})
}

// HandleCharDelete answers CMSG_CHAR_DELETE. Ownership and the
// guild-leader refusal are checked off-thread with the delete itself.
func HandleCharDelete(s *game.Session, r *packet.Reader, deps *Deps) {
	guid := r.Uint64()
	if r.Err() != nil {
		return
	}
	s.RequestCharDelete(guid)
}

// HandleCharRename answers CMSG_CHAR_RENAME for a character flagged for
// rename. Name validation happens here; the flag-gated update runs on
// the pipeline.
func HandleCharRename(s *game.Session, r *packet.Reader, deps *Deps) {
	guid := r.Uint64()
	newName := r.CString()
	if r.Err() != nil {
		return
	}

	newName = data.NormalizeName(newName)
	if code := validateName(s, newName, deps); code != packet.CharNameSuccess {
		w := packet.NewWriter(packet.SMSG_CHAR_RENAME)
		w.Uint8(code)
		s.SendPacket(w)
		return
	}

	s.RequestRename(guid, newName)
}

func sendCharCreateResult(s *game.Session, code uint8) {
	w := packet.NewWriter(packet.SMSG_CHAR_CREATE)
	w.Uint8(code)
	s.SendPacket(w)
}

// validateName runs the local name checks in the order the client
// expects the codes: structural faults first, then the curated lists,
// then the script veto.
func validateName(s *game.Session, name string, deps *Deps) uint8 {
	if name == "" {
		return packet.CharNameNoName
	}

	runes := []rune(name)
	if len(runes) < deps.Config.Character.MinNameLength {
		return packet.CharNameTooShort
	}
	if len(runes) > deps.Config.Character.MaxNameLength {
		return packet.CharNameTooLong
	}

	if deps.Config.Character.StrictNames {
		prev := rune(0)
		run := 1
		for _, c := range runes {
			if !unicode.IsLetter(c) {
				return packet.CharNameInvalidCharacter
			}
			if c == prev {
				run++
				if run >= 3 {
					return packet.CharNameThreeConsecutive
				}
			} else {
				run = 1
			}
			prev = c
		}
	}

	if deps.Names.IsReserved(name) {
		return packet.CharNameReserved
	}
	if deps.Names.IsProfane(name) {
		return packet.CharNameProfane
	}
	if !s.Deps().Script.NameAllowed(name) {
		return packet.CharNameReserved
	}
	return packet.CharNameSuccess
}
