package packet

import "testing"

func TestRegisterRejectsOutOfRange(t *testing.T) {
	table := NewTable()
	defer func() {
		if recover() == nil {
			t.Fatal("out-of-range register did not panic")
		}
	}()
	table.Register(NumMsgTypes, StatusAuthed, ProcessInPlace, nil)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	table := NewTable()
	table.Register(CMSG_PING, StatusAuthed, ProcessInPlace, nil)
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate register did not panic")
		}
	}()
	table.Register(CMSG_PING, StatusAuthed, ProcessInPlace, nil)
}

func TestLookupEmptySlot(t *testing.T) {
	table := NewTable()
	d := table.Lookup(CMSG_PING)
	if d == nil || d.Status != StatusUnhandled {
		t.Fatalf("empty slot lookup = %+v, want unhandled", d)
	}
}

func TestInRangeBoundary(t *testing.T) {
	table := NewTable()
	if !table.InRange(NumMsgTypes - 1) {
		t.Fatal("last opcode rejected")
	}
	if table.InRange(NumMsgTypes) {
		t.Fatal("NumMsgTypes accepted")
	}
}

func TestRegisteredLookup(t *testing.T) {
	table := NewTable()
	table.Register(CMSG_CHAR_ENUM, StatusAuthed, ProcessThreadUnsafe, nil)
	d := table.Lookup(CMSG_CHAR_ENUM)
	if d.Status != StatusAuthed || d.Processing != ProcessThreadUnsafe {
		t.Fatalf("descriptor = %+v", d)
	}
	if d.Name != CMSG_CHAR_ENUM.Name() {
		t.Fatalf("Name = %q, want %q", d.Name, CMSG_CHAR_ENUM.Name())
	}
}
