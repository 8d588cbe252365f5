package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
	"github.com/edpulse/presence/internal/monitoring"
)

// Hub is the explicitly constructed service object behind every realtime
// operation: connection accept/teardown, frame dispatch, liveness probing
// and the notification surface used by the external message-CRUD layer.
// Collaborators receive a *Hub by injection; there is no package singleton.
type Hub struct {
	Registry  *Registry
	Rooms     *RoomManager
	Presence  *PresenceTracker
	Relay     *Relay
	Reactions *ReactionBroadcaster

	metrics      *monitoring.Metrics
	pingInterval time.Duration
}

func NewHub(store core.PresenceStore, gracePeriod, pingInterval time.Duration, metrics *monitoring.Metrics) *Hub {
	registry := NewRegistry()
	rooms := NewRoomManager(gracePeriod, metrics)
	h := &Hub{
		Registry:     registry,
		Rooms:        rooms,
		Presence:     NewPresenceTracker(store, registry, metrics),
		Relay:        NewRelay(rooms, metrics),
		Reactions:    NewReactionBroadcaster(rooms, metrics),
		metrics:      metrics,
		pingInterval: pingInterval,
	}
	rooms.SetOnExpired(h.announce)
	return h
}

// OnConnect registers an accepted connection. The first connection of a user
// flips them online and broadcasts the transition to everyone else.
func (h *Hub) OnConnect(ctx context.Context, sess *core.Session) {
	first := h.Registry.Register(sess)
	h.metrics.ConnectionsOpen.Set(float64(h.Registry.ConnectionCount()))
	h.metrics.UsersOnline.Set(float64(h.Registry.UserCount()))
	if first {
		h.Presence.SetOnline(ctx, sess.UserID(), true)
	}
}

// OnDisconnect is the single teardown path for graceful closes, read errors
// and heartbeat-forced closes alike: room removal (possibly starting a grace
// timer), registry removal, and the offline transition when it was the
// user's last connection.
func (h *Hub) OnDisconnect(ctx context.Context, sess *core.Session) {
	h.Rooms.OnSocketClose(sess)
	last := h.Registry.Unregister(sess)
	h.metrics.ConnectionsOpen.Set(float64(h.Registry.ConnectionCount()))
	h.metrics.UsersOnline.Set(float64(h.Registry.UserCount()))
	if last {
		h.Presence.SetOnline(ctx, sess.UserID(), false)
	}
}

// OnFrame dispatches one inbound frame. Malformed or unknown frames are
// dropped and logged; the connection stays open.
func (h *Hub) OnFrame(ctx context.Context, sess *core.Session, data []byte) {
	switch f := core.DecodeInbound(data).(type) {
	case core.VoiceInbound:
		h.onSignal(sess, f.Signal)
	case core.ReactionInbound:
		h.Reactions.Broadcast(f.RoomID, sess.UserID(), f.Emoji, f.SenderName)
	case core.UnknownInbound:
		h.metrics.FramesDropped.Inc()
		log.Warn().Err(f.Err).Str("module", "app.hub").Str("sid", string(sess.ID())).
			Str("kind", f.Kind).Msg("dropped inbound frame")
	}
}

func (h *Hub) onSignal(sess *core.Session, sig core.Signal) {
	// The sender identity comes from accept-time auth, never from the frame.
	sig.SenderID = sess.UserID()

	if !sig.Type.Known() {
		h.metrics.FramesDropped.Inc()
		log.Warn().Str("module", "app.hub").Str("sid", string(sess.ID())).
			Str("type", string(sig.Type)).Msg("dropped unknown signal")
		return
	}
	if sig.RoomID == "" {
		h.metrics.FramesDropped.Inc()
		log.Warn().Str("module", "app.hub").Str("sid", string(sess.ID())).
			Str("type", string(sig.Type)).Msg("dropped signal without room")
		return
	}

	switch sig.Type {
	case core.SignalJoinRoom:
		rejoined, left := h.Rooms.Join(sess, sig.RoomID)
		if left != nil {
			h.announce(*left)
		}
		// A reconnect inside the grace window is silent: the user was never
		// announced as having left, so no join is re-broadcast.
		if !rejoined {
			h.Relay.Route(sess.ID(), sig)
		}
	case core.SignalLeaveRoom:
		if dep := h.Rooms.Leave(sess); dep != nil {
			h.announce(*dep)
		}
	default:
		if sess.RoomID() != sig.RoomID {
			h.metrics.FramesDropped.Inc()
			log.Warn().Str("module", "app.hub").Str("sid", string(sess.ID())).
				Str("room", string(sig.RoomID)).Msg("dropped signal for room the sender is not in")
			return
		}
		h.Relay.Route(sess.ID(), sig)
	}
}

func (h *Hub) announce(dep Departure) {
	frame, err := core.Encode(core.NewParticipantLeftEvent(dep.RoomID, dep.UserID, dep.Reason))
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("encode participant-left")
		return
	}
	sent := 0
	for _, sess := range dep.Recipients {
		if err := sess.Signal().TrySend(frame); err != nil {
			h.metrics.SendFailures.Inc()
			continue
		}
		sent++
	}
	h.metrics.BroadcastSends.Add(float64(sent))
	log.Info().Str("module", "app.hub").Str("room", string(dep.RoomID)).Str("user", string(dep.UserID)).
		Str("reason", dep.Reason).Int("sent_to", sent).Msg("participant left")
}

// RunHeartbeat probes every open connection on a fixed interval. A peer that
// failed to answer the previous probe gets a forced transport close, which
// exits its read loop and routes through OnDisconnect like any other close.
func (h *Hub) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sess := range h.Registry.Snapshot() {
				if !sess.Probe() {
					log.Info().Str("module", "app.hub").Str("sid", string(sess.ID())).
						Str("user", string(sess.UserID())).Msg("heartbeat timeout, closing connection")
					sess.Signal().Close()
					continue
				}
				if err := sess.Signal().Ping(); err != nil {
					log.Warn().Err(err).Str("module", "app.hub").Str("sid", string(sess.ID())).Msg("ping failed, closing connection")
					sess.Signal().Close()
				}
			}
		}
	}
}

// BroadcastNewMessage pushes a committed message to every socket of each
// recipient. Called by the external message-CRUD layer after it persists;
// this service knows nothing about message storage.
func (h *Hub) BroadcastNewMessage(recipients []domain.UserID, msg core.Message) {
	frame, err := core.Encode(core.NewNewMessageEvent(msg))
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("encode new_message")
		return
	}
	h.sendToUsers(recipients, frame)
}

// BroadcastMessageStatus pushes a delivered/read receipt to the recipient.
func (h *Hub) BroadcastMessageStatus(recipient domain.UserID, st core.StatusUpdate) {
	frame, err := core.Encode(core.NewMessageStatusEvent(st))
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("encode message_status")
		return
	}
	h.sendToUsers([]domain.UserID{recipient}, frame)
}

func (h *Hub) sendToUsers(users []domain.UserID, frame core.Frame) {
	sent := 0
	for _, uid := range users {
		for _, sess := range h.Registry.SessionsOf(uid) {
			if err := sess.Signal().TrySend(frame); err != nil {
				h.metrics.SendFailures.Inc()
				continue
			}
			sent++
		}
	}
	h.metrics.BroadcastSends.Add(float64(sent))
}

// Close force-closes every open connection; teardown completes through the
// adapters' read loops.
func (h *Hub) Close() {
	for _, sess := range h.Registry.Snapshot() {
		sess.Signal().Close()
	}
}
