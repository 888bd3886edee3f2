package packet

import "fmt"

// Opcode is the 16-bit wire tag identifying a message type. Values follow the
// 3.3.5a client; anything at or above NumMsgTypes is non-existent and must
// never be used to index the dispatch table.
type Opcode uint16

const NumMsgTypes Opcode = 0x051F

const (
	CMSG_CHAR_CREATE   Opcode = 0x036
	CMSG_CHAR_ENUM     Opcode = 0x037
	CMSG_CHAR_DELETE   Opcode = 0x038
	SMSG_CHAR_CREATE   Opcode = 0x03A
	SMSG_CHAR_ENUM     Opcode = 0x03B
	SMSG_CHAR_DELETE   Opcode = 0x03C
	CMSG_PLAYER_LOGIN  Opcode = 0x03D
	SMSG_NEW_WORLD     Opcode = 0x03E
	SMSG_TRANSFER_PENDING Opcode = 0x03F

	SMSG_CHARACTER_LOGIN_FAILED Opcode = 0x041

	CMSG_LOGOUT_REQUEST    Opcode = 0x04B
	SMSG_LOGOUT_RESPONSE   Opcode = 0x04C
	SMSG_LOGOUT_COMPLETE   Opcode = 0x04D
	CMSG_LOGOUT_CANCEL     Opcode = 0x04E
	SMSG_LOGOUT_CANCEL_ACK Opcode = 0x04F

	CMSG_NAME_QUERY          Opcode = 0x050
	SMSG_NAME_QUERY_RESPONSE Opcode = 0x051

	CMSG_CONTACT_LIST  Opcode = 0x066
	SMSG_CONTACT_LIST  Opcode = 0x067
	SMSG_FRIEND_STATUS Opcode = 0x068
	CMSG_ADD_FRIEND    Opcode = 0x069
	CMSG_DEL_FRIEND    Opcode = 0x06A
	CMSG_ADD_IGNORE    Opcode = 0x06C
	CMSG_DEL_IGNORE    Opcode = 0x06D

	SMSG_GROUP_LIST Opcode = 0x07D

	SMSG_GUILD_EVENT Opcode = 0x092

	CMSG_MESSAGECHAT Opcode = 0x095

	MSG_MOVE_START_FORWARD  Opcode = 0x0B5
	MSG_MOVE_START_BACKWARD Opcode = 0x0B6
	MSG_MOVE_STOP           Opcode = 0x0B7
	MSG_MOVE_HEARTBEAT      Opcode = 0x0EE
	MSG_MOVE_WORLDPORT_ACK  Opcode = 0x0DC

	SMSG_TRIGGER_CINEMATIC  Opcode = 0x0FA
	CMSG_COMPLETE_CINEMATIC Opcode = 0x0FC

	SMSG_TUTORIAL_FLAGS Opcode = 0x0FD
	CMSG_TUTORIAL_FLAG  Opcode = 0x0FE
	CMSG_TUTORIAL_CLEAR Opcode = 0x0FF
	CMSG_TUTORIAL_RESET Opcode = 0x100

	SMSG_NOTIFICATION Opcode = 0x1CB
	CMSG_PING         Opcode = 0x1DC
	SMSG_PONG         Opcode = 0x1DD

	SMSG_AUTH_CHALLENGE Opcode = 0x1EC
	CMSG_AUTH_SESSION   Opcode = 0x1ED
	SMSG_AUTH_RESPONSE  Opcode = 0x1EE

	SMSG_ACCOUNT_DATA_TIMES  Opcode = 0x209
	CMSG_REQUEST_ACCOUNT_DATA Opcode = 0x20A
	CMSG_UPDATE_ACCOUNT_DATA  Opcode = 0x20B
	SMSG_UPDATE_ACCOUNT_DATA  Opcode = 0x20C

	SMSG_UPDATE_ACCOUNT_DATA_COMPLETE Opcode = 0x463
	CMSG_READY_FOR_ACCOUNT_DATA_TIMES Opcode = 0x4FF

	SMSG_LOGIN_VERIFY_WORLD Opcode = 0x236

	CMSG_CHAR_RENAME Opcode = 0x2C7
	SMSG_CHAR_RENAME Opcode = 0x2C8

	SMSG_MOTD Opcode = 0x33D

	SMSG_FEATURE_SYSTEM_STATUS Opcode = 0x3C9

	CMSG_SET_ACTIVE_VOICE_CHANNEL Opcode = 0x3D3

	CMSG_KEEP_ALIVE Opcode = 0x407
)

var opcodeNames = map[Opcode]string{
	CMSG_CHAR_CREATE:              "CMSG_CHAR_CREATE",
	CMSG_CHAR_ENUM:                "CMSG_CHAR_ENUM",
	CMSG_CHAR_DELETE:              "CMSG_CHAR_DELETE",
	SMSG_CHAR_CREATE:              "SMSG_CHAR_CREATE",
	SMSG_CHAR_ENUM:                "SMSG_CHAR_ENUM",
	SMSG_CHAR_DELETE:              "SMSG_CHAR_DELETE",
	CMSG_PLAYER_LOGIN:             "CMSG_PLAYER_LOGIN",
	SMSG_NEW_WORLD:                "SMSG_NEW_WORLD",
	SMSG_TRANSFER_PENDING:         "SMSG_TRANSFER_PENDING",
	SMSG_CHARACTER_LOGIN_FAILED:   "SMSG_CHARACTER_LOGIN_FAILED",
	CMSG_LOGOUT_REQUEST:           "CMSG_LOGOUT_REQUEST",
	SMSG_LOGOUT_RESPONSE:          "SMSG_LOGOUT_RESPONSE",
	SMSG_LOGOUT_COMPLETE:          "SMSG_LOGOUT_COMPLETE",
	CMSG_LOGOUT_CANCEL:            "CMSG_LOGOUT_CANCEL",
	SMSG_LOGOUT_CANCEL_ACK:        "SMSG_LOGOUT_CANCEL_ACK",
	CMSG_NAME_QUERY:               "CMSG_NAME_QUERY",
	SMSG_NAME_QUERY_RESPONSE:      "SMSG_NAME_QUERY_RESPONSE",
	CMSG_CONTACT_LIST:             "CMSG_CONTACT_LIST",
	SMSG_CONTACT_LIST:             "SMSG_CONTACT_LIST",
	SMSG_FRIEND_STATUS:            "SMSG_FRIEND_STATUS",
	CMSG_ADD_FRIEND:               "CMSG_ADD_FRIEND",
	CMSG_DEL_FRIEND:               "CMSG_DEL_FRIEND",
	CMSG_ADD_IGNORE:               "CMSG_ADD_IGNORE",
	CMSG_DEL_IGNORE:               "CMSG_DEL_IGNORE",
	SMSG_GROUP_LIST:               "SMSG_GROUP_LIST",
	SMSG_GUILD_EVENT:              "SMSG_GUILD_EVENT",
	CMSG_MESSAGECHAT:              "CMSG_MESSAGECHAT",
	MSG_MOVE_START_FORWARD:        "MSG_MOVE_START_FORWARD",
	MSG_MOVE_START_BACKWARD:       "MSG_MOVE_START_BACKWARD",
	MSG_MOVE_STOP:                 "MSG_MOVE_STOP",
	MSG_MOVE_HEARTBEAT:            "MSG_MOVE_HEARTBEAT",
	MSG_MOVE_WORLDPORT_ACK:        "MSG_MOVE_WORLDPORT_ACK",
	SMSG_TRIGGER_CINEMATIC:        "SMSG_TRIGGER_CINEMATIC",
	CMSG_COMPLETE_CINEMATIC:       "CMSG_COMPLETE_CINEMATIC",
	SMSG_TUTORIAL_FLAGS:           "SMSG_TUTORIAL_FLAGS",
	CMSG_TUTORIAL_FLAG:            "CMSG_TUTORIAL_FLAG",
	CMSG_TUTORIAL_CLEAR:           "CMSG_TUTORIAL_CLEAR",
	CMSG_TUTORIAL_RESET:           "CMSG_TUTORIAL_RESET",
	SMSG_NOTIFICATION:             "SMSG_NOTIFICATION",
	CMSG_PING:                     "CMSG_PING",
	SMSG_PONG:                     "SMSG_PONG",
	SMSG_AUTH_CHALLENGE:           "SMSG_AUTH_CHALLENGE",
	CMSG_AUTH_SESSION:             "CMSG_AUTH_SESSION",
	SMSG_AUTH_RESPONSE:            "SMSG_AUTH_RESPONSE",
	SMSG_ACCOUNT_DATA_TIMES:       "SMSG_ACCOUNT_DATA_TIMES",
	CMSG_REQUEST_ACCOUNT_DATA:     "CMSG_REQUEST_ACCOUNT_DATA",
	CMSG_UPDATE_ACCOUNT_DATA:      "CMSG_UPDATE_ACCOUNT_DATA",
	SMSG_UPDATE_ACCOUNT_DATA:      "SMSG_UPDATE_ACCOUNT_DATA",
	SMSG_UPDATE_ACCOUNT_DATA_COMPLETE: "SMSG_UPDATE_ACCOUNT_DATA_COMPLETE",
	CMSG_READY_FOR_ACCOUNT_DATA_TIMES: "CMSG_READY_FOR_ACCOUNT_DATA_TIMES",
	SMSG_LOGIN_VERIFY_WORLD:       "SMSG_LOGIN_VERIFY_WORLD",
	CMSG_CHAR_RENAME:              "CMSG_CHAR_RENAME",
	SMSG_CHAR_RENAME:              "SMSG_CHAR_RENAME",
	SMSG_MOTD:                     "SMSG_MOTD",
	SMSG_FEATURE_SYSTEM_STATUS:    "SMSG_FEATURE_SYSTEM_STATUS",
	CMSG_SET_ACTIVE_VOICE_CHANNEL: "CMSG_SET_ACTIVE_VOICE_CHANNEL",
	CMSG_KEEP_ALIVE:               "CMSG_KEEP_ALIVE",
}

// Name returns the canonical opcode name, or a hex placeholder for opcodes
// the table does not know about.
func (op Opcode) Name() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(0x%04X)", uint16(op))
}
