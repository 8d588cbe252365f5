package domain

import "time"

// PresenceRecord is the persisted view of "does this user have at least one
// open connection". The in-memory registry stays authoritative; the store
// only ever sees monotonically newer LastSeen values.
type PresenceRecord struct {
	UserID   UserID    `bson:"user_id"`
	IsOnline bool      `bson:"is_online"`
	LastSeen time.Time `bson:"last_seen"`
}
