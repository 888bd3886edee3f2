package handler

import (
	"github.com/wowgo/server/internal/config"
	"github.com/wowgo/server/internal/data"
	"github.com/wowgo/server/internal/game"
	"github.com/wowgo/server/internal/net/packet"
	"github.com/wowgo/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config *config.Config
	Log    *zap.Logger
	World  *world.World
	Start  *data.StartTable
	Names  *data.NameTable
}

// RegisterAll installs every handled opcode into the dispatch table with
// its admission status and processing class. Registration panics on a
// duplicate or out-of-range opcode, so a bad table dies at startup.
func RegisterAll(t *packet.Table, deps *Deps) {
	reg := func(op packet.Opcode, st packet.Status, pr packet.Processing,
		fn func(s *game.Session, r *packet.Reader, deps *Deps)) {
		t.Register(op, st, pr, func(sess any, r *packet.Reader) {
			fn(sess.(*game.Session), r, deps)
		})
	}

	// Character screen
	reg(packet.CMSG_CHAR_ENUM, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleCharEnum)
	reg(packet.CMSG_CHAR_CREATE, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleCharCreate)
	reg(packet.CMSG_CHAR_DELETE, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleCharDelete)
	reg(packet.CMSG_CHAR_RENAME, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleCharRename)
	reg(packet.CMSG_PLAYER_LOGIN, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandlePlayerLogin)

	// Session lifecycle
	reg(packet.CMSG_LOGOUT_REQUEST, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleLogoutRequest)
	reg(packet.CMSG_LOGOUT_CANCEL, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleLogoutCancel)
	reg(packet.CMSG_PING, packet.StatusAuthed, packet.ProcessInPlace, HandlePing)
	reg(packet.CMSG_KEEP_ALIVE, packet.StatusAuthed, packet.ProcessInPlace, HandleKeepAlive)

	// Account data and tutorials
	reg(packet.CMSG_READY_FOR_ACCOUNT_DATA_TIMES, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleReadyForAccountDataTimes)
	reg(packet.CMSG_REQUEST_ACCOUNT_DATA, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleRequestAccountData)
	reg(packet.CMSG_UPDATE_ACCOUNT_DATA, packet.StatusAuthed, packet.ProcessThreadUnsafe, HandleUpdateAccountData)
	reg(packet.CMSG_TUTORIAL_FLAG, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleTutorialFlag)
	reg(packet.CMSG_TUTORIAL_CLEAR, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleTutorialClear)
	reg(packet.CMSG_TUTORIAL_RESET, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleTutorialReset)

	// Queries and social
	reg(packet.CMSG_NAME_QUERY, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleNameQuery)
	reg(packet.CMSG_CONTACT_LIST, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleContactList)
	reg(packet.CMSG_ADD_FRIEND, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleAddFriend)
	reg(packet.CMSG_DEL_FRIEND, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleDelFriend)
	reg(packet.CMSG_ADD_IGNORE, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleAddIgnore)
	reg(packet.CMSG_DEL_IGNORE, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleDelIgnore)

	// Movement
	reg(packet.MSG_MOVE_START_FORWARD, packet.StatusLoggedIn, packet.ProcessThreadSafe, HandleMovement)
	reg(packet.MSG_MOVE_START_BACKWARD, packet.StatusLoggedIn, packet.ProcessThreadSafe, HandleMovement)
	reg(packet.MSG_MOVE_STOP, packet.StatusLoggedIn, packet.ProcessThreadSafe, HandleMovement)
	reg(packet.MSG_MOVE_HEARTBEAT, packet.StatusLoggedIn, packet.ProcessThreadSafe, HandleMovement)
	reg(packet.MSG_MOVE_WORLDPORT_ACK, packet.StatusTransfer, packet.ProcessThreadUnsafe, HandleWorldportAck)

	// World
	reg(packet.CMSG_COMPLETE_CINEMATIC, packet.StatusLoggedIn, packet.ProcessThreadUnsafe, HandleCompleteCinematic)

	// The 3.3.5 client fires this right after logout on its own; accepted
	// and ignored so it neither warns nor ends the logout grace.
	reg(packet.CMSG_SET_ACTIVE_VOICE_CHANNEL, packet.StatusAuthed, packet.ProcessInPlace, HandleSetActiveVoiceChannel)
}
