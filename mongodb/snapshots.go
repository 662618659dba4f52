package mongodb

import (
	"context"
	"fmt"

	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateSnapshot(ctx context.Context, snapshot *models.FinancialSnapshot) error {
	if snapshot.ID.IsZero() {
		snapshot.ID = bson.NewObjectID()
	}
	if _, err := s.db.Collection(SnapshotCollection).InsertOne(ctx, snapshot); err != nil {
		return wrapWrite("error creating snapshot", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error) {
	uid, ok := objectID(userID)
	if !ok {
		return nil, nil
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var snapshot models.FinancialSnapshot
	found, err := findOne(ctx, s.db.Collection(SnapshotCollection), bson.M{"user": uid}, &snapshot, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}
