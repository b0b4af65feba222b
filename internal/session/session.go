// Package session tracks per-user dialogue state for pending trims. The
// store is the only shared mutable structure in the process; every read-
// modify-write of a user's entry happens as one atomic unit under the
// store lock.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipd/internal/media"
)

// State enumerates the dialogue positions a session can hold.
type State string

const (
	// StateAwaitingStart means a qualifying video arrived and the user owes
	// a start time.
	StateAwaitingStart State = "awaiting_start_time"
	// StateAwaitingEnd means the start time is stored and the user owes an
	// end time.
	StateAwaitingEnd State = "awaiting_end_time"
	// StateProcessing means the pipeline run for this session is in flight.
	StateProcessing State = "processing"
)

var (
	// ErrNoSession reports a text event with no live session for the user.
	ErrNoSession = errors.New("no active session")

	// ErrProcessing reports an event that arrived while the user's session
	// is owned by an in-flight pipeline run.
	ErrProcessing = errors.New("session is processing")

	// ErrInvalidRange reports an end time at or before the start time.
	ErrInvalidRange = errors.New("end time must be greater than start time")
)

// Session is the per-user in-memory record of dialogue state and the
// pending trim parameters.
type Session struct {
	ID               string
	UserID           int64
	State            State
	Source           media.SourceRef
	FileName         string
	DeclaredSize     int64
	DeclaredDuration int
	StartTime        float64
	EndTime          float64
	CreatedAt        time.Time
}

// Store is a mutex-guarded mapping from user identity to session record.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Begin creates a session in StateAwaitingStart for the media object,
// replacing any prior non-processing session for the user (implicit
// cancel). It fails with ErrProcessing while a run owns the user's entry.
// The returned snapshot carries the assigned session ID.
func (s *Store) Begin(userID int64, info media.Info) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[userID]; ok && existing.State == StateProcessing {
		return Session{}, ErrProcessing
	}

	sess := &Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		State:            StateAwaitingStart,
		Source:           info.Ref,
		FileName:         media.DisplayName(info),
		DeclaredSize:     info.Size,
		DeclaredDuration: info.Duration,
		CreatedAt:        time.Now().UTC(),
	}
	s.sessions[userID] = sess
	return *sess, nil
}

// Get returns a snapshot of the user's session.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Update applies fn to the user's session as one atomic unit. fn receives
// the live record; an error from fn leaves any mutations it already made in
// place, so fn must mutate only on its success path. Update fails with
// ErrNoSession when the user has no entry.
func (s *Store) Update(userID int64, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, ErrNoSession
	}
	if err := fn(sess); err != nil {
		return *sess, err
	}
	return *sess, nil
}

// Cancel removes the user's session unconditionally. It is idempotent:
// cancelling an absent session reports removed=false and no error.
func (s *Store) Cancel(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Release removes the user's entry only while it still belongs to the given
// session ID. A pipeline run calls this after cleanup; if the user already
// cancelled and started a fresh session, the new entry survives.
func (s *Store) Release(userID int64, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || sess.ID != sessionID {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
