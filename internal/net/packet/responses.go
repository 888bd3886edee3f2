package packet

// Response codes carried by SMSG_AUTH_RESPONSE, SMSG_CHAR_CREATE,
// SMSG_CHAR_DELETE, SMSG_CHARACTER_LOGIN_FAILED and SMSG_CHAR_RENAME.
const (
	ResponseSuccess uint8 = 0x00
	ResponseFailure uint8 = 0x01

	AuthOK                 uint8 = 0x0C
	AuthFailed             uint8 = 0x0D
	AuthReject             uint8 = 0x0E
	AuthVersionMismatch    uint8 = 0x14
	AuthUnknownAccount     uint8 = 0x15
	AuthIncorrectPassword  uint8 = 0x16
	AuthServerShuttingDown uint8 = 0x18
	AuthAlreadyLoggingIn   uint8 = 0x19
	AuthWaitQueue          uint8 = 0x1B
	AuthBanned             uint8 = 0x1C
	AuthAlreadyOnline      uint8 = 0x1D
	AuthDBBusy             uint8 = 0x1F
	AuthSuspended          uint8 = 0x20

	CharCreateInProgress   uint8 = 0x2E
	CharCreateSuccess      uint8 = 0x2F
	CharCreateError        uint8 = 0x30
	CharCreateFailed       uint8 = 0x31
	CharCreateNameInUse    uint8 = 0x32
	CharCreateDisabled     uint8 = 0x33
	CharCreateServerLimit  uint8 = 0x35
	CharCreateAccountLimit uint8 = 0x36

	CharDeleteInProgress        uint8 = 0x3F
	CharDeleteSuccess           uint8 = 0x40
	CharDeleteFailed            uint8 = 0x41
	CharDeleteFailedGuildLeader uint8 = 0x43
	CharDeleteFailedArenaCapt   uint8 = 0x44

	CharLoginInProgress        uint8 = 0x45
	CharLoginSuccess           uint8 = 0x46
	CharLoginNoWorld           uint8 = 0x47
	CharLoginDuplicateChar     uint8 = 0x48
	CharLoginFailed            uint8 = 0x4A
	CharLoginDisabled          uint8 = 0x4B
	CharLoginNoCharacter       uint8 = 0x4C
	CharLoginLockedForTransfer uint8 = 0x4D

	CharNameSuccess             uint8 = 0x4F
	CharNameFailure             uint8 = 0x50
	CharNameNoName              uint8 = 0x51
	CharNameTooShort            uint8 = 0x52
	CharNameTooLong             uint8 = 0x53
	CharNameInvalidCharacter    uint8 = 0x54
	CharNameMixedLanguages      uint8 = 0x55
	CharNameProfane             uint8 = 0x56
	CharNameReserved            uint8 = 0x57
	CharNameInvalidApostrophe   uint8 = 0x58
	CharNameMultipleApostrophes uint8 = 0x59
	CharNameThreeConsecutive    uint8 = 0x5A
	CharNameInvalidSpace        uint8 = 0x5B
	CharNameConsecutiveSpaces   uint8 = 0x5C
)
