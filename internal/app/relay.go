package app

import (
	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/monitoring"
)

// Relay is a pure router for call-control signals. It never inspects or
// persists payloads; delivery is at-most-once and fire-and-forget.
type Relay struct {
	rooms   *RoomManager
	metrics *monitoring.Metrics
}

func NewRelay(rooms *RoomManager, metrics *monitoring.Metrics) *Relay {
	return &Relay{rooms: rooms, metrics: metrics}
}

// Route delivers the signal within its room: to the target user's in-room
// sockets when TargetID is set, otherwise to every socket in the room except
// the originating one. A failed send to one recipient never aborts the rest.
func (r *Relay) Route(from core.SessionID, sig core.Signal) {
	frame, err := core.Encode(core.NewVoiceEvent(sig))
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode voice event")
		return
	}

	var recipients []*core.Session
	if sig.TargetID != "" {
		recipients = r.rooms.SocketsOfUser(sig.RoomID, sig.TargetID)
	} else {
		recipients = r.rooms.Sockets(sig.RoomID)
	}

	sent := 0
	for _, sess := range recipients {
		if sig.TargetID == "" && sess.ID() == from {
			continue
		}
		if err := sess.Signal().TrySend(frame); err != nil {
			r.metrics.SendFailures.Inc()
			continue
		}
		sent++
	}
	r.metrics.BroadcastSends.Add(float64(sent))
	log.Debug().Str("module", "app.relay").Str("type", string(sig.Type)).Str("room", string(sig.RoomID)).
		Bool("targeted", sig.TargetID != "").Int("sent_to", sent).Msg("routed signal")
}
