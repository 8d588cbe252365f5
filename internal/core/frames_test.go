package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, in Inbound)
	}{
		{
			name: "voice offer",
			data: `{"type":"voice","signal":{"type":"offer","roomId":"r1","senderId":"u1","targetId":"u2","payload":{"sdp":"v=0"}}}`,
			check: func(t *testing.T, in Inbound) {
				v, ok := in.(VoiceInbound)
				require.True(t, ok)
				assert.Equal(t, SignalOffer, v.Signal.Type)
				assert.Equal(t, "r1", string(v.Signal.RoomID))
				assert.Equal(t, "u2", string(v.Signal.TargetID))
				assert.JSONEq(t, `{"sdp":"v=0"}`, string(v.Signal.Payload))
			},
		},
		{
			name: "reaction",
			data: `{"type":"reaction","roomId":"r1","emoji":"👏","senderName":"Alice"}`,
			check: func(t *testing.T, in Inbound) {
				v, ok := in.(ReactionInbound)
				require.True(t, ok)
				assert.Equal(t, "👏", v.Emoji)
				assert.Equal(t, "Alice", v.SenderName)
				assert.Equal(t, "r1", string(v.RoomID))
			},
		},
		{
			name: "unknown top-level type",
			data: `{"type":"teleport"}`,
			check: func(t *testing.T, in Inbound) {
				v, ok := in.(UnknownInbound)
				require.True(t, ok)
				assert.Equal(t, "teleport", v.Kind)
				assert.NoError(t, v.Err)
			},
		},
		{
			name: "unparseable",
			data: `{"type":`,
			check: func(t *testing.T, in Inbound) {
				v, ok := in.(UnknownInbound)
				require.True(t, ok)
				assert.Error(t, v.Err)
			},
		},
		{
			name: "voice with garbage signal",
			data: `{"type":"voice","signal":"nope"}`,
			check: func(t *testing.T, in Inbound) {
				_, ok := in.(UnknownInbound)
				require.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, DecodeInbound([]byte(tt.data)))
		})
	}
}

func TestSignalKindKnown(t *testing.T) {
	known := []SignalKind{
		SignalOffer, SignalAnswer, SignalICECandidate,
		SignalJoinRoom, SignalLeaveRoom,
		SignalHandRaise, SignalMuteToggle, SignalRoleChange, SignalRoomStatus,
	}
	for _, k := range known {
		assert.True(t, k.Known(), string(k))
	}
	assert.False(t, SignalKind("warp").Known())
	assert.False(t, SignalKind("").Known())
}

func TestOutboundEventShapes(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	frame, err := Encode(NewPresenceEvent("u1", true, ts))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"presence","userId":"u1","isOnline":true,"timestamp":"2025-06-01T12:00:00Z"}`, string(frame))

	frame, err = Encode(NewParticipantLeftEvent("r1", "u1", ReasonGraceExpired))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"participant-left","roomId":"r1","userId":"u1","reason":"grace-period-expired"}`, string(frame))

	frame, err = Encode(NewReactionEvent("r1", "🔥", "Bob"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reaction","roomId":"r1","emoji":"🔥","senderName":"Bob"}`, string(frame))

	frame, err = Encode(NewMessageStatusEvent(StatusUpdate{
		MessageID: "m1", ConversationID: "c1", Status: StatusDelivered, Timestamp: ts,
	}))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(frame, &m))
	assert.Equal(t, "message_status", m["type"])
	assert.Equal(t, "delivered", m["status"])
}
