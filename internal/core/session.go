package core

import (
	"sync"
	"sync/atomic"

	"github.com/edpulse/presence/internal/domain"
)

type SessionID string

// Session binds one authenticated user to one live transport connection.
// UserID is assigned at accept time and never reassigned. A session is in
// at most one room at a time.
type Session struct {
	id     SessionID
	userID domain.UserID
	conn   SignalConnection

	alive atomic.Bool

	mu     sync.Mutex
	roomID domain.RoomID
}

func NewSession(id SessionID, uid domain.UserID, conn SignalConnection) *Session {
	s := &Session{id: id, userID: uid, conn: conn}
	s.alive.Store(true)
	return s
}

func (s *Session) ID() SessionID            { return s.id }
func (s *Session) UserID() domain.UserID    { return s.userID }
func (s *Session) Signal() SignalConnection { return s.conn }

// TouchAlive records that the peer answered the last liveness probe.
func (s *Session) TouchAlive() { s.alive.Store(true) }

// Probe arms the next liveness check and reports whether the peer answered
// the previous one. A false return means the connection is dead.
func (s *Session) Probe() (answered bool) { return s.alive.Swap(false) }

func (s *Session) RoomID() domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) SetRoomID(id domain.RoomID) {
	s.mu.Lock()
	s.roomID = id
	s.mu.Unlock()
}
