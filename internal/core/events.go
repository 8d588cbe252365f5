package core

import (
	"time"

	"github.com/edpulse/presence/internal/domain"
)

// Leave reasons carried by ParticipantLeftEvent.
const (
	ReasonGraceExpired = "grace-period-expired"
	ReasonLeft         = "left"
)

type MessageStatus string

const (
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Message is what the external message-CRUD layer hands us after a commit.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       domain.UserID `json:"senderId"`
	Content        string        `json:"content"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// StatusUpdate is a delivered/read receipt for a committed message.
type StatusUpdate struct {
	MessageID      string        `json:"messageId"`
	ConversationID string        `json:"conversationId"`
	Status         MessageStatus `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
}

type PresenceEvent struct {
	Type      string        `json:"type"`
	UserID    domain.UserID `json:"userId"`
	IsOnline  bool          `json:"isOnline"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewPresenceEvent(uid domain.UserID, online bool, ts time.Time) PresenceEvent {
	return PresenceEvent{Type: "presence", UserID: uid, IsOnline: online, Timestamp: ts}
}

type NewMessageEvent struct {
	Type string `json:"type"`
	Message
}

func NewNewMessageEvent(msg Message) NewMessageEvent {
	return NewMessageEvent{Type: "new_message", Message: msg}
}

type MessageStatusEvent struct {
	Type string `json:"type"`
	StatusUpdate
}

func NewMessageStatusEvent(st StatusUpdate) MessageStatusEvent {
	return MessageStatusEvent{Type: "message_status", StatusUpdate: st}
}

type VoiceEvent struct {
	Type   string `json:"type"`
	Signal Signal `json:"signal"`
}

func NewVoiceEvent(sig Signal) VoiceEvent {
	return VoiceEvent{Type: "voice", Signal: sig}
}

type ReactionEvent struct {
	Type       string        `json:"type"`
	RoomID     domain.RoomID `json:"roomId"`
	Emoji      string        `json:"emoji"`
	SenderName string        `json:"senderName"`
}

func NewReactionEvent(roomID domain.RoomID, emoji, senderName string) ReactionEvent {
	return ReactionEvent{Type: "reaction", RoomID: roomID, Emoji: emoji, SenderName: senderName}
}

type ParticipantLeftEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
	Reason string        `json:"reason"`
}

func NewParticipantLeftEvent(roomID domain.RoomID, uid domain.UserID, reason string) ParticipantLeftEvent {
	return ParticipantLeftEvent{Type: "participant-left", RoomID: roomID, UserID: uid, Reason: reason}
}
