package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edpulse/presence/internal/core"
)

func TestRegistryFirstAndLastSignals(t *testing.T) {
	r := NewRegistry()
	s1, _ := newSession("alice")
	s2, _ := newSession("alice")

	assert.True(t, r.Register(s1), "first connection must report first")
	assert.False(t, r.Register(s2), "second connection must not report first")
	assert.True(t, r.Online("alice"))
	assert.Equal(t, 2, r.ConnectionCount())
	assert.Equal(t, 1, r.UserCount())

	assert.False(t, r.Unregister(s1), "a remaining connection means not last")
	assert.True(t, r.Online("alice"))
	assert.True(t, r.Unregister(s2), "removing the final connection must report last")
	assert.False(t, r.Online("alice"), "user key must be gone once the set is empty")
	assert.Equal(t, 0, r.UserCount())
}

func TestRegistryUnregisterUnknownSession(t *testing.T) {
	r := NewRegistry()
	s1, _ := newSession("alice")
	assert.False(t, r.Unregister(s1))

	require.True(t, r.Register(s1))
	require.True(t, r.Unregister(s1))
	assert.False(t, r.Unregister(s1), "double unregister must not report last twice")
}

func TestRegistrySnapshotExcept(t *testing.T) {
	r := NewRegistry()
	a1, _ := newSession("alice")
	a2, _ := newSession("alice")
	b1, _ := newSession("bob")
	r.Register(a1)
	r.Register(a2)
	r.Register(b1)

	others := r.SnapshotExcept("alice")
	require.Len(t, others, 1)
	assert.Equal(t, b1.ID(), others[0].ID())

	assert.Len(t, r.Snapshot(), 3)
	assert.Len(t, r.SessionsOf("alice"), 2)
}

// Concurrent connects and disconnects for one user must agree on exactly one
// first and exactly one last signal.
func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	const n = 64

	sessions := make([]*core.Session, n)
	for i := range sessions {
		sessions[i], _ = newSession("alice")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0
	wg.Add(n)
	for _, s := range sessions {
		go func(s *core.Session) {
			defer wg.Done()
			if r.Register(s) {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	assert.Equal(t, 1, firsts)
	assert.Equal(t, n, r.ConnectionCount())

	lasts := 0
	wg.Add(n)
	for _, s := range sessions {
		go func(s *core.Session) {
			defer wg.Done()
			if r.Unregister(s) {
				mu.Lock()
				lasts++
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	assert.Equal(t, 1, lasts)
	assert.False(t, r.Online("alice"))
}
