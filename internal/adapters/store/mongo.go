// Package store implements the presence-store collaborator on MongoDB.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edpulse/presence/internal/domain"
)

const presenceCollection = "presence"

type MongoPresence struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewMongoPresence(ctx context.Context, uri, database string) (*MongoPresence, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	col := client.Database(database).Collection(presenceCollection)

	// The unique index makes stale upserts fail loudly instead of inserting
	// duplicate rows; Upsert turns that failure into a no-op.
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create presence index: %w", err)
	}
	return &MongoPresence{client: client, col: col}, nil
}

// Upsert writes the presence row monotonically by last_seen. The filter only
// matches a row that is not fresher than the record; when a fresher row
// exists the upsert attempts an insert and hits the unique index, which is
// exactly the stale-write case and is swallowed.
func (s *MongoPresence) Upsert(ctx context.Context, rec domain.PresenceRecord) error {
	filter := bson.M{
		"user_id":   rec.UserID,
		"last_seen": bson.M{"$lte": rec.LastSeen},
	}
	update := bson.M{"$set": bson.M{
		"is_online": rec.IsOnline,
		"last_seen": rec.LastSeen,
	}}
	_, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *MongoPresence) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
