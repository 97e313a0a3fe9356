package core

import "testing"

func TestSnapshotDeduplicatesMultiDeviceUsers(t *testing.T) {
	reg := NewRegistry()

	reg.Add("room", "conn-1", Peer{UserID: "u-1", Name: "alice"})
	reg.Add("room", "conn-2", Peer{UserID: "u-1", Name: "alice"})
	reg.Add("room", "conn-3", Peer{UserID: "u-2", Name: "bob"})

	if got := reg.Snapshot("room"); len(got) != 2 {
		t.Fatalf("expected 2 distinct users, got %+v", got)
	}

	reg.Remove("room", "conn-1")
	if !reg.HasConnections("room", "u-1") {
		t.Fatal("u-1 still has a live connection")
	}
	reg.Remove("room", "conn-2")
	if reg.HasConnections("room", "u-1") {
		t.Fatal("u-1 has no connections left")
	}
}

func TestTypingStateChanges(t *testing.T) {
	reg := NewRegistry()
	reg.Add("room", "conn-1", Peer{UserID: "u-1", Name: "alice"})

	if !reg.MarkTyping("room", "u-1") {
		t.Fatal("first mark should change state")
	}
	if reg.MarkTyping("room", "u-1") {
		t.Fatal("second mark should be a no-op")
	}
	if got := reg.TypingSet("room"); len(got) != 1 || got[0] != "u-1" {
		t.Fatalf("unexpected typing set: %v", got)
	}
	if !reg.ClearTyping("room", "u-1") {
		t.Fatal("clear should change state")
	}
	if reg.ClearTyping("room", "u-1") {
		t.Fatal("second clear should be a no-op")
	}
}

func TestRoomEntryDiscardedWhenEmpty(t *testing.T) {
	reg := NewRegistry()
	reg.Add("room", "conn-1", Peer{UserID: "u-1", Name: "alice"})
	reg.Remove("room", "conn-1")

	if got := reg.Snapshot("room"); got != nil {
		t.Fatalf("expected no presence for empty room, got %+v", got)
	}
	if got := reg.TypingSet("room"); got != nil {
		t.Fatalf("expected no typing set for empty room, got %+v", got)
	}
}
