package core

import (
	"context"

	"github.com/edpulse/presence/internal/domain"
)

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a frame without blocking. A full buffer or a closed
	// connection returns an error; the caller treats both as a dropped send.
	TrySend(Frame) error
	// Ping sends a transport-level liveness probe.
	Ping() error
	Close()
}

// PresenceStore is the external collaborator persisting presence rows.
// Upsert must be monotonic by LastSeen: a stale write is a silent no-op.
type PresenceStore interface {
	Upsert(ctx context.Context, rec domain.PresenceRecord) error
}

// NoopPresenceStore is used when no store is configured; the in-memory
// registry is authoritative either way.
type NoopPresenceStore struct{}

func (NoopPresenceStore) Upsert(context.Context, domain.PresenceRecord) error { return nil }
