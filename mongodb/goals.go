package mongodb

import (
	"context"
	"fmt"

	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateGoal(ctx context.Context, goal *models.Goal) error {
	if goal.ID.IsZero() {
		goal.ID = bson.NewObjectID()
	}
	if _, err := s.db.Collection(GoalCollection).InsertOne(ctx, goal); err != nil {
		return wrapWrite("error creating goal", err)
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	uid, ok1 := objectID(userID)
	gid, ok2 := objectID(goalID)
	if !ok1 || !ok2 {
		return nil, nil
	}

	var goal models.Goal
	found, err := findOne(ctx, s.db.Collection(GoalCollection), bson.M{"_id": gid, "user": uid}, &goal)
	if err != nil {
		return nil, fmt.Errorf("error fetching goal: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &goal, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	uid, ok := objectID(userID)
	if !ok {
		return []models.Goal{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(GoalCollection).Find(ctx, bson.M{"user": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching goals: %w", err)
	}
	defer cursor.Close(ctx)

	goals := []models.Goal{}
	if err := cursor.All(ctx, &goals); err != nil {
		return nil, fmt.Errorf("error decoding goals: %w", err)
	}
	return goals, nil
}

// ReplaceGoal overwrites the whole document. Concurrent updates are last
// write wins.
func (s *Store) ReplaceGoal(ctx context.Context, goal *models.Goal) (bool, error) {
	res, err := s.db.Collection(GoalCollection).ReplaceOne(ctx, bson.M{"_id": goal.ID, "user": goal.UserID}, goal)
	if err != nil {
		return false, fmt.Errorf("error replacing goal: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) (bool, error) {
	uid, ok1 := objectID(userID)
	gid, ok2 := objectID(goalID)
	if !ok1 || !ok2 {
		return false, nil
	}

	res, err := s.db.Collection(GoalCollection).DeleteOne(ctx, bson.M{"_id": gid, "user": uid})
	if err != nil {
		return false, fmt.Errorf("error deleting goal: %w", err)
	}
	return res.DeletedCount > 0, nil
}
