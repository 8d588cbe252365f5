package app

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
	"github.com/edpulse/presence/internal/monitoring"
)

type pendingKey struct {
	userID domain.UserID
	roomID domain.RoomID
}

// Departure describes a user leaving a room for good, with the room's
// remaining sockets snapshotted so the caller can announce it.
type Departure struct {
	RoomID     domain.RoomID
	UserID     domain.UserID
	Reason     string
	Recipients []*core.Session
}

// RoomManager owns per-room participant sets and the grace-period machinery.
//
// Mobile browsers tear sockets down and recreate them mid-call (app
// backgrounding, network handoff, reload), so an abrupt close does not
// announce a departure immediately. Instead the user becomes a grace ghost:
// still counted as present, with a cancellable timer keyed (user, room).
// Rejoining the same room before the timer fires is a silent reconnect.
//
// One mutex guards rooms, ghosts and pending timers together; the cancel vs
// fire race resolves through that lock, so at most one participant-left is
// ever emitted per departure.
type RoomManager struct {
	mu      sync.Mutex
	rooms   map[domain.RoomID]map[core.SessionID]*core.Session
	ghosts  map[domain.RoomID]map[domain.UserID]struct{}
	pending map[pendingKey]*time.Timer

	gracePeriod time.Duration
	metrics     *monitoring.Metrics

	// onExpired is invoked outside the lock when a grace timer fires.
	onExpired func(dep Departure)
}

func NewRoomManager(gracePeriod time.Duration, metrics *monitoring.Metrics) *RoomManager {
	return &RoomManager{
		rooms:       make(map[domain.RoomID]map[core.SessionID]*core.Session),
		ghosts:      make(map[domain.RoomID]map[domain.UserID]struct{}),
		pending:     make(map[pendingKey]*time.Timer),
		gracePeriod: gracePeriod,
		metrics:     metrics,
	}
}

// SetOnExpired registers the grace-expiry announcement hook. Must be called
// before any join.
func (m *RoomManager) SetOnExpired(fn func(dep Departure)) { m.onExpired = fn }

// Join adds the session to the room. If the user had an outstanding grace
// timer for this room, the timer is cancelled and rejoined is true: the user
// was never announced as gone, so the caller must not re-announce a join.
// Joining while in a different room counts as an explicit leave of the old
// one, returned as left.
func (m *RoomManager) Join(sess *core.Session, roomID domain.RoomID) (rejoined bool, left *Departure) {
	uid := sess.UserID()

	m.mu.Lock()
	if old := sess.RoomID(); old != "" && old != roomID {
		left = m.removeLocked(sess, old, core.ReasonLeft)
	}

	set, ok := m.rooms[roomID]
	if !ok {
		set = make(map[core.SessionID]*core.Session)
		m.rooms[roomID] = set
	}
	set[sess.ID()] = sess
	sess.SetRoomID(roomID)

	key := pendingKey{userID: uid, roomID: roomID}
	if t, ok := m.pending[key]; ok {
		t.Stop()
		delete(m.pending, key)
		m.dropGhostLocked(roomID, uid)
		rejoined = true
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("sid", string(sess.ID())).Str("user", string(uid)).
		Str("room", string(roomID)).Bool("rejoined", rejoined).Msg("joined room")
	return rejoined, left
}

// Leave handles an explicit leave-room message. Intent is unambiguous, so no
// grace period applies; the returned Departure is non-nil when the user has
// no other socket left in the room and should be announced immediately.
func (m *RoomManager) Leave(sess *core.Session) *Departure {
	roomID := sess.RoomID()
	if roomID == "" {
		return nil
	}
	m.mu.Lock()
	dep := m.removeLocked(sess, roomID, core.ReasonLeft)
	m.updateGaugesLocked()
	m.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("sid", string(sess.ID())).Str("room", string(roomID)).
		Bool("announced", dep != nil).Msg("left room")
	return dep
}

// OnSocketClose removes the closing socket from its room. When it was the
// user's last socket in that room the user becomes a grace ghost and a
// single-shot timer starts; another open tab in the same room means nothing
// happens beyond the set removal.
func (m *RoomManager) OnSocketClose(sess *core.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		return
	}
	uid := sess.UserID()
	sess.SetRoomID("")

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.rooms[roomID]
	if !ok {
		return
	}
	delete(set, sess.ID())
	if len(set) == 0 {
		delete(m.rooms, roomID)
	}
	if m.userInRoomLocked(roomID, uid) {
		m.updateGaugesLocked()
		return
	}

	key := pendingKey{userID: uid, roomID: roomID}
	if _, ok := m.pending[key]; ok {
		return
	}
	if m.ghosts[roomID] == nil {
		m.ghosts[roomID] = make(map[domain.UserID]struct{})
	}
	m.ghosts[roomID][uid] = struct{}{}
	m.pending[key] = time.AfterFunc(m.gracePeriod, func() { m.expire(key) })
	m.updateGaugesLocked()

	log.Info().Str("module", "app.rooms").Str("user", string(uid)).Str("room", string(roomID)).
		Dur("grace", m.gracePeriod).Msg("grace period started")
}

// expire fires when a grace timer was not cancelled by a reconnect. The
// pending entry is re-checked under the lock: a join that won the race has
// already deleted it and this becomes a no-op.
func (m *RoomManager) expire(key pendingKey) {
	m.mu.Lock()
	if _, ok := m.pending[key]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.pending, key)
	m.dropGhostLocked(key.roomID, key.userID)
	dep := Departure{
		RoomID:     key.roomID,
		UserID:     key.userID,
		Reason:     core.ReasonGraceExpired,
		Recipients: m.socketsLocked(key.roomID),
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("user", string(key.userID)).Str("room", string(key.roomID)).
		Msg("grace period expired")
	if m.onExpired != nil {
		m.onExpired(dep)
	}
}

// removeLocked drops the socket from the room and, when the user has no
// other socket there, cancels any pending timer and returns the departure.
func (m *RoomManager) removeLocked(sess *core.Session, roomID domain.RoomID, reason string) *Departure {
	uid := sess.UserID()
	if set, ok := m.rooms[roomID]; ok {
		delete(set, sess.ID())
		if len(set) == 0 {
			delete(m.rooms, roomID)
		}
	}
	sess.SetRoomID("")

	if m.userInRoomLocked(roomID, uid) {
		return nil
	}
	key := pendingKey{userID: uid, roomID: roomID}
	if t, ok := m.pending[key]; ok {
		t.Stop()
		delete(m.pending, key)
	}
	m.dropGhostLocked(roomID, uid)
	return &Departure{
		RoomID:     roomID,
		UserID:     uid,
		Reason:     reason,
		Recipients: m.socketsLocked(roomID),
	}
}

func (m *RoomManager) userInRoomLocked(roomID domain.RoomID, uid domain.UserID) bool {
	for _, s := range m.rooms[roomID] {
		if s.UserID() == uid {
			return true
		}
	}
	return false
}

func (m *RoomManager) dropGhostLocked(roomID domain.RoomID, uid domain.UserID) {
	if set, ok := m.ghosts[roomID]; ok {
		delete(set, uid)
		if len(set) == 0 {
			delete(m.ghosts, roomID)
		}
	}
}

func (m *RoomManager) socketsLocked(roomID domain.RoomID) []*core.Session {
	set := m.rooms[roomID]
	out := make([]*core.Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// Sockets returns a snapshot of the room's live connections.
func (m *RoomManager) Sockets(roomID domain.RoomID) []*core.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socketsLocked(roomID)
}

// SocketsOfUser returns uid's live connections currently in the room.
func (m *RoomManager) SocketsOfUser(roomID domain.RoomID, uid domain.UserID) []*core.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Session
	for _, s := range m.rooms[roomID] {
		if s.UserID() == uid {
			out = append(out, s)
		}
	}
	return out
}

// Participants is the membership truth for headcount: socket holders united
// with grace ghosts, deduplicated by user. A transiently dropped socket does
// not make its user vanish from the room.
func (m *RoomManager) Participants(roomID domain.RoomID) []domain.UserID {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[domain.UserID]struct{})
	for _, s := range m.rooms[roomID] {
		seen[s.UserID()] = struct{}{}
	}
	for uid := range m.ghosts[roomID] {
		seen[uid] = struct{}{}
	}
	out := make([]domain.UserID, 0, len(seen))
	for uid := range seen {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *RoomManager) Headcount(roomID domain.RoomID) int {
	return len(m.Participants(roomID))
}

// RoomIDs lists rooms that still have participants, grace ghosts included.
func (m *RoomManager) RoomIDs() []domain.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[domain.RoomID]struct{}, len(m.rooms))
	for id := range m.rooms {
		seen[id] = struct{}{}
	}
	for id := range m.ghosts {
		seen[id] = struct{}{}
	}
	out := make([]domain.RoomID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *RoomManager) updateGaugesLocked() {
	seen := make(map[domain.RoomID]struct{}, len(m.rooms))
	for id := range m.rooms {
		seen[id] = struct{}{}
	}
	for id := range m.ghosts {
		seen[id] = struct{}{}
	}
	m.metrics.RoomsActive.Set(float64(len(seen)))
	m.metrics.GracePending.Set(float64(len(m.pending)))
}
