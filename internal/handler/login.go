package handler

import (
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandlePlayerLogin starts the async login holder for one character. The
// session stays responsive while the holder loads; the login completes in
// the holder callback on a later session pass.
func HandlePlayerLogin(s *game.Session, r *packet.Reader, deps *Deps) {
	guid := r.Uint64()
	if r.Err() != nil {
		return
	}
	s.Log().Debug("角色登入要求", zap.Uint64("guid", guid))
	s.RequestCharLogin(guid)
}

// HandleWorldportAck lands a pending far teleport. Admitted only in the
// transfer state: player attached, not in world.
func HandleWorldportAck(s *game.Session, r *packet.Reader, deps *Deps) {
	s.FinishFarTeleport()
}

// HandleCompleteCinematic records that the intro cinematic finished. The
// seen flag was already persisted when the cinematic was triggered.
func HandleCompleteCinematic(s *game.Session, r *packet.Reader, deps *Deps) {
	s.Log().Debug("開場動畫播放完畢")
}

// HandleLogoutRequest schedules the logout countdown.
func HandleLogoutRequest(s *game.Session, r *packet.Reader, deps *Deps) {
	s.RequestLogout(false)
}

// HandleLogoutCancel aborts a scheduled logout.
func HandleLogoutCancel(s *game.Session, r *packet.Reader, deps *Deps) {
	s.CancelLogout()
}
