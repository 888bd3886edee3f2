package packet

// Status is the session-state admission class of an opcode.
type Status int

const (
	StatusNever Status = iota // server-side or forbidden opcode, always an error
	StatusAuthed              // any authenticated session (character select)
	StatusLoggedIn            // requires a player attached and in world
	StatusTransfer            // requires a player attached but not in world
	StatusLoggedInOrRecentlyLoggedOut
	StatusUnhandled
)

func (s Status) String() string {
	switch s {
	case StatusNever:
		return "Never"
	case StatusAuthed:
		return "Authed"
	case StatusLoggedIn:
		return "LoggedIn"
	case StatusTransfer:
		return "Transfer"
	case StatusLoggedInOrRecentlyLoggedOut:
		return "LoggedInOrRecentlyLoggedOut"
	case StatusUnhandled:
		return "Unhandled"
	default:
		return "Unknown"
	}
}

// Processing classifies which update thread may run a handler. InPlace
// handlers are safe anywhere; ThreadUnsafe handlers may only run on the
// session-update thread; ThreadSafe handlers prefer the map-update thread.
type Processing int

const (
	ProcessInPlace Processing = iota
	ProcessThreadUnsafe
	ProcessThreadSafe
)

// HandlerFunc is the callback signature for packet handlers. The session is
// passed as an opaque interface to avoid an import cycle with the game
// package.
type HandlerFunc func(sess any, r *Reader)

// Descriptor is the static per-opcode dispatch entry.
type Descriptor struct {
	Name       string
	Status     Status
	Processing Processing
	Handler    HandlerFunc
}

// Table maps opcodes to descriptors. Slots stay nil until Register fills
// them; a nil slot behaves as StatusUnhandled.
type Table struct {
	entries [NumMsgTypes]*Descriptor
}

func NewTable() *Table {
	return &Table{}
}

// Register installs a descriptor. Registering outside the opcode range or
// twice for the same opcode is a programming error and panics at startup.
func (t *Table) Register(op Opcode, status Status, processing Processing, fn HandlerFunc) {
	if op >= NumMsgTypes {
		panic("packet: opcode out of range: " + op.Name())
	}
	if t.entries[op] != nil {
		panic("packet: duplicate handler for " + op.Name())
	}
	t.entries[op] = &Descriptor{
		Name:       op.Name(),
		Status:     status,
		Processing: processing,
		Handler:    fn,
	}
}

var unhandled = &Descriptor{Name: "UNHANDLED", Status: StatusUnhandled, Processing: ProcessInPlace}

// Lookup returns the descriptor for an in-range opcode. The caller must have
// rejected out-of-range opcodes already (InRange); this is the single bounds
// check keeping dispatch from indexing past the table.
func (t *Table) Lookup(op Opcode) *Descriptor {
	if op >= NumMsgTypes {
		return unhandled
	}
	if d := t.entries[op]; d != nil {
		return d
	}
	return unhandled
}

// InRange reports whether the opcode may be looked up at all. Out-of-range
// values are non-existent opcodes: logged, handed to the unknown-packet
// hook, and dropped.
func (t *Table) InRange(op Opcode) bool {
	return op < NumMsgTypes
}
