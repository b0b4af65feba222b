package session

import (
	"errors"
	"sync"
	"testing"

	"clipd/internal/media"
)

func testInfo() media.Info {
	return media.Info{
		Ref:      media.SourceRef{ChatID: 7, MessageID: 42, FileID: "file-1"},
		FileName: "movie.mp4",
		Size:     50 << 20,
		Duration: 120,
		Video:    true,
	}
}

func TestBeginCreatesAwaitingStart(t *testing.T) {
	store := NewStore()
	sess, err := store.Begin(1, testInfo())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if sess.State != StateAwaitingStart {
		t.Fatalf("state = %q, want %q", sess.State, StateAwaitingStart)
	}
	if sess.ID == "" {
		t.Fatal("expected a session ID")
	}
	if sess.FileName != "movie.mp4" {
		t.Fatalf("file name = %q", sess.FileName)
	}
}

func TestBeginReplacesPriorSession(t *testing.T) {
	store := NewStore()
	first, _ := store.Begin(1, testInfo())

	second, err := store.Begin(1, testInfo())
	if err != nil {
		t.Fatalf("Begin replace: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh session ID on replace")
	}

	got, ok := store.Get(1)
	if !ok || got.ID != second.ID {
		t.Fatalf("store should hold the replacement session, got %+v ok=%v", got, ok)
	}
}

func TestBeginRejectedWhileProcessing(t *testing.T) {
	store := NewStore()
	store.Begin(1, testInfo())
	if _, err := store.Update(1, func(s *Session) error {
		s.State = StateProcessing
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := store.Begin(1, testInfo()); !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected ErrProcessing, got %v", err)
	}
}

func TestUpdateNoSession(t *testing.T) {
	store := NewStore()
	if _, err := store.Update(99, func(*Session) error { return nil }); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestCancelIdempotent(t *testing.T) {
	store := NewStore()
	if store.Cancel(1) {
		t.Fatal("cancel on empty store should report nothing removed")
	}
	store.Begin(1, testInfo())
	if !store.Cancel(1) {
		t.Fatal("cancel should remove the session")
	}
	if store.Cancel(1) {
		t.Fatal("second cancel should no-op")
	}
}

func TestReleaseOnlyMatchingID(t *testing.T) {
	store := NewStore()
	old, _ := store.Begin(1, testInfo())

	// User cancels mid-run and starts over; the finished run must not
	// evict the replacement session.
	store.Cancel(1)
	fresh, _ := store.Begin(1, testInfo())

	if store.Release(1, old.ID) {
		t.Fatal("release with a stale session ID must not remove the entry")
	}
	if _, ok := store.Get(1); !ok {
		t.Fatal("replacement session should survive")
	}
	if !store.Release(1, fresh.ID) {
		t.Fatal("release with the live session ID should remove the entry")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, have %d", store.Len())
	}
}

func TestConcurrentUsersDoNotCrossContaminate(t *testing.T) {
	store := NewStore()
	const users = 32

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			sess, err := store.Begin(userID, testInfo())
			if err != nil {
				t.Errorf("Begin(%d): %v", userID, err)
				return
			}
			if _, err := store.Update(userID, func(s *Session) error {
				s.StartTime = float64(userID)
				s.State = StateAwaitingEnd
				return nil
			}); err != nil {
				t.Errorf("Update(%d): %v", userID, err)
				return
			}
			got, ok := store.Get(userID)
			if !ok || got.StartTime != float64(userID) || got.ID != sess.ID {
				t.Errorf("user %d read back %+v ok=%v", userID, got, ok)
			}
		}(int64(i))
	}
	wg.Wait()

	if store.Len() != users {
		t.Fatalf("expected %d sessions, have %d", users, store.Len())
	}
}
