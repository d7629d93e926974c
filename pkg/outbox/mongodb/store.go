// Package mongodb stores outbox messages in a MongoDB collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/outbox"
)

// CollectionName is where outbox messages live
const CollectionName = "outbox_events"

// sentRetention is how long delivered messages stay queryable before the TTL index drops them
const sentRetention = 7 * 24 * time.Hour

// ErrMessageNotFound is returned when an update names an unknown message
var ErrMessageNotFound = errors.New("outbox message not found")

// Store implements outbox.Repository
type Store struct {
	collection *mongo.Collection
}

// NewStore uses CollectionName in db
func NewStore(db *mongo.Database) *Store {
	return &Store{collection: db.Collection(CollectionName)}
}

// Append inserts messages. A session context makes the insert part of its transaction.
func (s *Store) Append(ctx context.Context, messages ...*outbox.Message) error {
	if len(messages) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		docs = append(docs, m)
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert outbox messages: %w", err)
	}
	return nil
}

// Pending returns unsent messages below maxAttempts, oldest first
func (s *Store) Pending(ctx context.Context, limit, maxAttempts int) ([]*outbox.Message, error) {
	filter := bson.M{
		"sentAt":   bson.M{"$exists": false},
		"attempts": bson.M{"$lt": maxAttempts},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	return s.find(ctx, filter, opts)
}

// MarkSent stamps the delivery time
func (s *Store) MarkSent(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"sentAt": time.Now().UTC()}})
}

// RecordFailure counts a failed attempt and keeps its cause
func (s *Store) RecordFailure(ctx context.Context, id string, cause error) error {
	return s.update(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"lastError": cause.Error()},
	})
}

// ForKey lists every message queued under key in creation order
func (s *Store) ForKey(ctx context.Context, key string) ([]*outbox.Message, error) {
	return s.find(ctx, bson.M{"key": key}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// EnsureIndexes creates the poll, lookup and retention indexes
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sentAt", Value: 1}, {Key: "attempts", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("outbox_pending"),
		},
		{
			Keys:    bson.D{{Key: "key", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("outbox_key"),
		},
		{
			Keys:    bson.D{{Key: "sentAt", Value: 1}},
			Options: options.Index().SetName("outbox_sent_ttl").SetExpireAfterSeconds(int32(sentRetention.Seconds())),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update outbox message %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*outbox.Message, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find outbox messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []*outbox.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode outbox messages: %w", err)
	}
	return messages, nil
}

var _ outbox.Repository = (*Store)(nil)
