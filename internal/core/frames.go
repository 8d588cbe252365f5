package core

import (
	"encoding/json"

	"github.com/edpulse/presence/internal/domain"
)

// Frame is a raw payload delivered to a signal connection.
type Frame []byte

// SignalKind enumerates the closed set of call-control signal types the
// relay understands. Anything else is routed to the unknown variant.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
	SignalJoinRoom     SignalKind = "join-room"
	SignalLeaveRoom    SignalKind = "leave-room"
	SignalHandRaise    SignalKind = "hand-raise"
	SignalMuteToggle   SignalKind = "mute-toggle"
	SignalRoleChange   SignalKind = "role-change"
	SignalRoomStatus   SignalKind = "room-status"
)

func (k SignalKind) Known() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate,
		SignalJoinRoom, SignalLeaveRoom,
		SignalHandRaise, SignalMuteToggle, SignalRoleChange, SignalRoomStatus:
		return true
	}
	return false
}

// Signal is a call-control message routed within a room. Payload stays
// opaque; the relay never inspects SDP or ICE contents.
type Signal struct {
	Type     SignalKind      `json:"type"`
	RoomID   domain.RoomID   `json:"roomId"`
	SenderID domain.UserID   `json:"senderId"`
	TargetID domain.UserID   `json:"targetId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Inbound is the closed set of frames a connection may push at us.
type Inbound interface{ isInbound() }

type VoiceInbound struct {
	Signal Signal
}

type ReactionInbound struct {
	RoomID     domain.RoomID
	Emoji      string
	SenderName string
}

// UnknownInbound covers unparseable frames and unrecognized top-level types.
// The connection stays open; the frame is dropped and logged by the caller.
type UnknownInbound struct {
	Kind string
	Err  error
}

func (VoiceInbound) isInbound()    {}
func (ReactionInbound) isInbound() {}
func (UnknownInbound) isInbound()  {}

// DecodeInbound parses a raw frame into exactly one Inbound variant.
func DecodeInbound(data []byte) Inbound {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return UnknownInbound{Err: err}
	}

	switch env.Type {
	case "voice":
		var f struct {
			Signal Signal `json:"signal"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return UnknownInbound{Kind: env.Type, Err: err}
		}
		return VoiceInbound{Signal: f.Signal}
	case "reaction":
		var f struct {
			RoomID     domain.RoomID `json:"roomId"`
			Emoji      string        `json:"emoji"`
			SenderName string        `json:"senderName"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return UnknownInbound{Kind: env.Type, Err: err}
		}
		return ReactionInbound{RoomID: f.RoomID, Emoji: f.Emoji, SenderName: f.SenderName}
	default:
		return UnknownInbound{Kind: env.Type}
	}
}

// Encode marshals an outbound event into a Frame.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
