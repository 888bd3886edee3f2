package handler

import (
	"time"

	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
)

// HandlePing echoes the sequence id and records the client's reported
// latency. In-place: the pong goes straight back from whichever pass
// dequeued it.
func HandlePing(s *game.Session, r *packet.Reader, deps *Deps) {
	seq := r.Uint32()
	latency := r.Uint32()
	if r.Err() != nil {
		return
	}
	s.SetLatency(latency)

	w := packet.NewWriter(packet.SMSG_PONG)
	w.Uint32(seq)
	s.SendPacket(w)
}

// HandleKeepAlive resets the idle clock; the packet carries nothing.
func HandleKeepAlive(s *game.Session, r *packet.Reader, deps *Deps) {
	s.Touch(time.Now())
}

// HandleSetActiveVoiceChannel is accepted and dropped; voice chat is not
// served.
func HandleSetActiveVoiceChannel(s *game.Session, r *packet.Reader, deps *Deps) {
}

// HandleReadyForAccountDataTimes re-sends the account-wide cache stamps.
func HandleReadyForAccountDataTimes(s *game.Session, r *packet.Reader, deps *Deps) {
	s.SendAccountDataTimes()
}

// HandleRequestAccountData returns one cached client data blob.
func HandleRequestAccountData(s *game.Session, r *packet.Reader, deps *Deps) {
	dataType := r.Uint32()
	if r.Err() != nil || dataType >= 8 {
		return
	}

	row, ok := s.AccountData(uint8(dataType))
	w := packet.NewWriter(packet.SMSG_UPDATE_ACCOUNT_DATA)
	w.Uint64(playerGUID(s))
	w.Uint32(dataType)
	if !ok {
		w.Uint32(0) // time
		w.Uint32(0) // size
		s.SendPacket(w)
		return
	}
	w.Uint32(uint32(row.Time))
	w.Uint32(uint32(len(row.Data)))
	w.Bytes(row.Data)
	s.SendPacket(w)
}

// HandleUpdateAccountData stores one client data blob and acks it.
func HandleUpdateAccountData(s *game.Session, r *packet.Reader, deps *Deps) {
	dataType := r.Uint32()
	timestamp := r.Uint32()
	size := r.Uint32()
	if r.Err() != nil || dataType >= 8 {
		return
	}
	blob := r.Bytes(int(size))
	if r.Err() != nil {
		return
	}

	s.SetAccountData(uint8(dataType), int64(timestamp), blob)

	w := packet.NewWriter(packet.SMSG_UPDATE_ACCOUNT_DATA_COMPLETE)
	w.Uint32(dataType)
	w.Uint32(0)
	s.SendPacket(w)
}

// HandleTutorialFlag marks one tutorial as seen.
func HandleTutorialFlag(s *game.Session, r *packet.Reader, deps *Deps) {
	bit := r.Uint32()
	if r.Err() != nil {
		return
	}
	s.SetTutorialFlag(bit)
}

// HandleTutorialClear marks every tutorial as seen.
func HandleTutorialClear(s *game.Session, r *packet.Reader, deps *Deps) {
	s.ClearTutorials(false)
}

// HandleTutorialReset restores every tutorial to unseen.
func HandleTutorialReset(s *game.Session, r *packet.Reader, deps *Deps) {
	s.ClearTutorials(true)
}

func playerGUID(s *game.Session) uint64 {
	if p := s.Player(); p != nil {
		return p.GUID
	}
	return 0
}
