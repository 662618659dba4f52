package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if _, err := s.db.Collection(UserCollection).InsertOne(ctx, user); err != nil {
		return wrapWrite("error creating user", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	oid, ok := objectID(userID)
	if !ok {
		return nil, nil
	}
	return s.getUser(ctx, bson.M{"_id": oid})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, bson.M{"username": username})
}

func (s *Store) getUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	found, err := findOne(ctx, s.db.Collection(UserCollection), filter, &user)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// UpdateProfile sets the profile fields and, when asked, the onboarding flag
// in one findOneAndUpdate so readers never see one without the other.
func (s *Store) UpdateProfile(ctx context.Context, userID string, profile models.FinancialProfile, completeOnboarding bool) (*models.User, error) {
	oid, ok := objectID(userID)
	if !ok {
		return nil, nil
	}

	set := bson.M{
		"annual_income":    profile.AnnualIncome,
		"monthly_expenses": profile.MonthlyExpenses,
		"current_savings":  profile.CurrentSavings,
		"financial_goals":  profile.FinancialGoals,
		"risk_tolerance":   profile.RiskTolerance,
		"updated_at":       time.Now().UTC(),
	}
	if completeOnboarding {
		set["onboarding_completed"] = true
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := s.db.Collection(UserCollection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts)

	var user models.User
	if err := res.Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	return &user, nil
}
