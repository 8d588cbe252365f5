package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
	"github.com/edpulse/presence/internal/monitoring"
)

// PresenceTracker persists online/offline transitions and broadcasts them to
// every other connected user. Transitions are driven only by the registry's
// first/last connection signals, never by heartbeat state directly.
type PresenceTracker struct {
	store    core.PresenceStore
	registry *Registry
	metrics  *monitoring.Metrics
	now      func() time.Time
}

func NewPresenceTracker(store core.PresenceStore, registry *Registry, metrics *monitoring.Metrics) *PresenceTracker {
	return &PresenceTracker{store: store, registry: registry, metrics: metrics, now: time.Now}
}

// SetOnline writes the transition to the store and fans the presence event
// out to all sockets of all other users. The store write is best-effort:
// presence is advisory once persisted, authoritative in-process, so a write
// failure is logged and the broadcast proceeds from in-memory truth.
func (p *PresenceTracker) SetOnline(ctx context.Context, uid domain.UserID, online bool) {
	ts := p.now().UTC()
	rec := domain.PresenceRecord{UserID: uid, IsOnline: online, LastSeen: ts}
	if err := p.store.Upsert(ctx, rec); err != nil {
		log.Warn().Err(err).Str("module", "app.presence").Str("user", string(uid)).Msg("presence store write failed")
	}

	frame, err := core.Encode(core.NewPresenceEvent(uid, online, ts))
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("encode presence event")
		return
	}
	sent := 0
	for _, sess := range p.registry.SnapshotExcept(uid) {
		if err := sess.Signal().TrySend(frame); err != nil {
			p.metrics.SendFailures.Inc()
			continue
		}
		sent++
	}
	p.metrics.BroadcastSends.Add(float64(sent))
	log.Debug().Str("module", "app.presence").Str("user", string(uid)).Bool("online", online).Int("sent_to", sent).Msg("presence broadcast")
}
