package app

import (
	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
	"github.com/edpulse/presence/internal/monitoring"
)

// ReactionBroadcaster fans ephemeral emoji events to every socket in a room,
// sender included, so every client confirms receipt the same way. Reactions
// are loss-tolerant: no rate limiting, no dedupe, no persistence.
type ReactionBroadcaster struct {
	rooms   *RoomManager
	metrics *monitoring.Metrics
}

func NewReactionBroadcaster(rooms *RoomManager, metrics *monitoring.Metrics) *ReactionBroadcaster {
	return &ReactionBroadcaster{rooms: rooms, metrics: metrics}
}

func (b *ReactionBroadcaster) Broadcast(roomID domain.RoomID, senderID domain.UserID, emoji, senderName string) {
	frame, err := core.Encode(core.NewReactionEvent(roomID, emoji, senderName))
	if err != nil {
		log.Error().Err(err).Str("module", "app.reactions").Msg("encode reaction event")
		return
	}
	sent := 0
	for _, sess := range b.rooms.Sockets(roomID) {
		if err := sess.Signal().TrySend(frame); err != nil {
			b.metrics.SendFailures.Inc()
			continue
		}
		sent++
	}
	b.metrics.BroadcastSends.Add(float64(sent))
	log.Debug().Str("module", "app.reactions").Str("room", string(roomID)).Str("user", string(senderID)).
		Int("sent_to", sent).Msg("reaction broadcast")
}
