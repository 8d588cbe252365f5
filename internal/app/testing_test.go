package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
	"github.com/edpulse/presence/internal/monitoring"
)

var errConnClosed = errors.New("fake conn closed")

// fakeConn records every frame pushed at it so tests can assert on exact
// fan-out behavior without a network.
type fakeConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	closed  bool
	sendErr error
	pings   int
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	cp := make(core.Frame, len(f))
	copy(cp, f)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.pings++
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decodes everything received so far into loose maps.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.events(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// fakeStore captures presence upserts and can be told to fail.
type fakeStore struct {
	mu   sync.Mutex
	recs []domain.PresenceRecord
	err  error
}

func (s *fakeStore) Upsert(_ context.Context, rec domain.PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.err
}

func (s *fakeStore) records() []domain.PresenceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PresenceRecord(nil), s.recs...)
}

func newSession(uid string) (*core.Session, *fakeConn) {
	conn := &fakeConn{}
	sess := core.NewSession(core.SessionID(uuid.NewString()), domain.UserID(uid), conn)
	return sess, conn
}

func newTestHub(grace, ping time.Duration) (*Hub, *fakeStore, *monitoring.Metrics) {
	store := &fakeStore{}
	metrics := monitoring.New()
	return NewHub(store, grace, ping, metrics), store, metrics
}

func metricValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func joinFrame(roomID string) []byte {
	return []byte(`{"type":"voice","signal":{"type":"join-room","roomId":"` + roomID + `"}}`)
}

func leaveFrame(roomID string) []byte {
	return []byte(`{"type":"voice","signal":{"type":"leave-room","roomId":"` + roomID + `"}}`)
}
