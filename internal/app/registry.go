package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
)

// Registry maps a user to the set of live connections that user holds
// (multi-device, multi-tab). A user key exists iff its set is non-empty.
// Register/Unregister are the only mutation points; "remove and check
// emptiness" happens under one lock so concurrent disconnects for the same
// user cannot both skip, or both trigger, the last-connection cleanup.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]map[core.SessionID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[domain.UserID]map[core.SessionID]*core.Session)}
}

// Register adds the session to its user's set and reports whether it is the
// user's first open connection (the online-transition signal).
func (r *Registry) Register(sess *core.Session) (first bool) {
	uid := sess.UserID()
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[uid]
	if !ok {
		set = make(map[core.SessionID]*core.Session)
		r.byUser[uid] = set
	}
	set[sess.ID()] = sess
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID())).Str("user", string(uid)).Msg("registered connection")
	return !ok
}

// Unregister removes the session and reports whether it was the user's last
// open connection (the offline-transition signal).
func (r *Registry) Unregister(sess *core.Session) (last bool) {
	uid := sess.UserID()
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[uid]
	if !ok {
		return false
	}
	if _, ok := set[sess.ID()]; !ok {
		return false
	}
	delete(set, sess.ID())
	if len(set) == 0 {
		delete(r.byUser, uid)
		last = true
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID())).Str("user", string(uid)).Bool("last", last).Msg("unregistered connection")
	return last
}

func (r *Registry) SessionsOf(uid domain.UserID) []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[uid]
	out := make([]*core.Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// Snapshot returns every open session.
func (r *Registry) Snapshot() []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Session
	for _, set := range r.byUser {
		for _, s := range set {
			out = append(out, s)
		}
	}
	return out
}

// SnapshotExcept returns every open session not belonging to uid.
func (r *Registry) SnapshotExcept(uid domain.UserID) []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Session
	for owner, set := range r.byUser {
		if owner == uid {
			continue
		}
		for _, s := range set {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Online(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[uid]) > 0
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.byUser {
		n += len(set)
	}
	return n
}
