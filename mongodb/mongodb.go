// Package mongodb stores users, goals, chats and snapshots in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"fintrack/api/logger"
	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

var (
	UserCollection     string = "users"
	GoalCollection     string = "goals"
	ChatCollection     string = "chats"
	SnapshotCollection string = "financial_snapshots"
)

// Store implements every repository on one database. Lookups by an id that
// is not a valid ObjectID hex string behave as if nothing matched.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		logger.Get().Error("failed to connect to MongoDB", zap.Error(err))
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Get().Error("failed to ping MongoDB", zap.Error(err))
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	logger.Get().Info("successfully connected to MongoDB", zap.String("database", database))
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) {
	if s.client == nil {
		return
	}
	if err := s.client.Disconnect(ctx); err != nil {
		logger.Get().Error("failed to disconnect from MongoDB", zap.Error(err))
		return
	}
	logger.Get().Info("successfully disconnected from MongoDB")
}

// EnsureIndexes creates the unique indexes the repositories rely on for
// duplicate detection, plus the lookup indexes for goals and snapshots.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
		GoalCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		ChatCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: unique},
		},
		SnapshotCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func objectID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	return oid, err == nil
}

func wrapWrite(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// findOne decodes the first match into out and reports whether one existed.
func findOne(ctx context.Context, coll *mongo.Collection, filter any, out any, opts ...options.Lister[options.FindOneOptions]) (bool, error) {
	err := coll.FindOne(ctx, filter, opts...).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
