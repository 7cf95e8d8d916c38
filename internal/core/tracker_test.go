package core

import "testing"

func counter() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

func TestTracker_IssueAndAccept(t *testing.T) {
	tr := NewRequestTracker[RequestKey]()
	next := counter()

	id := tr.Issue(KeySearch, next)
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	if !tr.IsPending(KeySearch) {
		t.Error("expected pending after issue")
	}
	if !tr.Accept(KeySearch, id) {
		t.Error("matching id should be accepted")
	}
	if tr.IsPending(KeySearch) {
		t.Error("accept should clear pending")
	}
}

func TestTracker_OnlyLatestAccepted(t *testing.T) {
	tr := NewRequestTracker[RequestKey]()
	next := counter()

	r1 := tr.Issue(KeySearch, next)
	r2 := tr.Issue(KeySearch, next)

	if tr.Accept(KeySearch, r1) {
		t.Error("superseded id must be rejected")
	}
	if !tr.IsPending(KeySearch) {
		t.Error("rejecting a stale id must keep the newer request pending")
	}
	if !tr.Accept(KeySearch, r2) {
		t.Error("latest id should be accepted")
	}
}

func TestTracker_AcceptWithoutIssue(t *testing.T) {
	tr := NewRequestTracker[RequestKey]()
	if tr.Accept(KeySearch, 999) {
		t.Error("accept without issue must fail")
	}
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	tr := NewRequestTracker[RequestKey]()
	next := counter()

	searchID := tr.Issue(KeySearch, next)
	playlistsID := tr.Issue(KeyPlaylists, next)

	if !tr.Accept(KeySearch, searchID) {
		t.Error("search id should be accepted")
	}
	if !tr.IsPending(KeyPlaylists) {
		t.Error("other key must remain pending")
	}
	if !tr.Accept(KeyPlaylists, playlistsID) {
		t.Error("playlists id should be accepted")
	}
}

func TestTracker_ResetAll(t *testing.T) {
	tr := NewRequestTracker[RequestKey]()
	next := counter()

	tr.Issue(KeySearch, next)
	tr.Issue(KeyPlaylists, next)
	tr.ResetAll()

	if tr.IsPending(KeySearch) || tr.IsPending(KeyPlaylists) {
		t.Error("reset should clear all pending ids")
	}
}

func TestTracker_Clear(t *testing.T) {
	tr := NewRequestTracker[RequestKey]()
	next := counter()

	id := tr.Issue(KeyLyric, next)
	tr.Clear(KeyLyric)

	if tr.Accept(KeyLyric, id) {
		t.Error("cleared key must reject its old id")
	}
}
