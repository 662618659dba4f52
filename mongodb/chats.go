package mongodb

import (
	"context"
	"fmt"
	"time"

	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) GetChat(ctx context.Context, userID string) (*models.ChatSession, error) {
	uid, ok := objectID(userID)
	if !ok {
		return nil, nil
	}

	var session models.ChatSession
	found, err := findOne(ctx, s.db.Collection(ChatCollection), bson.M{"user": uid}, &session)
	if err != nil {
		return nil, fmt.Errorf("error fetching chat: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

// AppendMessages pushes msgs in order onto the user's session, creating the
// session on first use. Two first messages racing on the upsert can collide
// on the unique user index; the loser retries as a plain push.
func (s *Store) AppendMessages(ctx context.Context, userID string, msgs ...models.Message) error {
	uid, ok := objectID(userID)
	if !ok {
		return fmt.Errorf("error appending messages: invalid user id %q", userID)
	}

	now := time.Now().UTC()
	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": msgs}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.UpdateOne().SetUpsert(true)

	coll := s.db.Collection(ChatCollection)
	_, err := coll.UpdateOne(ctx, bson.M{"user": uid}, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = coll.UpdateOne(ctx, bson.M{"user": uid}, update, opts)
	}
	if err != nil {
		return fmt.Errorf("error appending messages: %w", err)
	}
	return nil
}

func (s *Store) DeleteChat(ctx context.Context, userID string) error {
	uid, ok := objectID(userID)
	if !ok {
		return nil
	}
	if _, err := s.db.Collection(ChatCollection).DeleteOne(ctx, bson.M{"user": uid}); err != nil {
		return fmt.Errorf("error deleting chat: %w", err)
	}
	return nil
}
