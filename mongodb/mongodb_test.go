package mongodb

import (
	"context"
	"testing"
	"time"

	"fintrack/api/models"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// StoreSuite runs the repositories against a real mongod in a container.
type StoreSuite struct {
	suite.Suite
	container *tcmongo.MongoDBContainer
	store     *Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(s.T(), err, "could not start mongo container")
	s.container = container

	uri, err := container.ConnectionString(ctx)
	require.NoError(s.T(), err)

	store, err := Connect(ctx, uri, "fintrack_test")
	require.NoError(s.T(), err)
	require.NoError(s.T(), store.EnsureIndexes(ctx))
	s.store = store
}

func (s *StoreSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close(context.Background())
	}
	if s.container != nil {
		require.NoError(s.T(), testcontainers.TerminateContainer(s.container))
	}
}

func (s *StoreSuite) SetupTest() {
	require.NoError(s.T(), s.store.db.Drop(context.Background()))
	require.NoError(s.T(), s.store.EnsureIndexes(context.Background()))
}

func (s *StoreSuite) newUser(username, email string) *models.User {
	user := models.NewUser(username, email, "hash", time.Now().UTC())
	s.Require().NoError(s.store.CreateUser(context.Background(), user))
	return user
}

func (s *StoreSuite) TestUserUniqueness() {
	ctx := context.Background()
	user := s.newUser("alice", "alice@example.com")

	err := s.store.CreateUser(ctx, models.NewUser("alice2", "alice@example.com", "hash", time.Now()))
	s.ErrorIs(err, models.ErrDuplicateKey)
	err = s.store.CreateUser(ctx, models.NewUser("alice", "other@example.com", "hash", time.Now()))
	s.ErrorIs(err, models.ErrDuplicateKey)

	got, err := s.store.GetUserByEmail(ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)
	s.Equal("hash", got.PasswordHash)
	s.Equal(models.RiskMedium, got.RiskTolerance)

	got, err = s.store.GetUserByID(ctx, "not-hex")
	s.NoError(err)
	s.Nil(got)
}

func (s *StoreSuite) TestUpdateProfile() {
	ctx := context.Background()
	user := s.newUser("alice", "alice@example.com")

	profile := models.FinancialProfile{
		AnnualIncome:    85000,
		MonthlyExpenses: map[string]float64{"housing": 1500},
		CurrentSavings:  12000,
		FinancialGoals:  []models.FinancialGoal{models.FinancialGoalRetirement},
		RiskTolerance:   models.RiskLow,
	}
	updated, err := s.store.UpdateProfile(ctx, user.ID.Hex(), profile, true)
	s.Require().NoError(err)
	s.True(updated.OnboardingCompleted)
	s.Equal(85000.0, updated.AnnualIncome)
	s.Equal(map[string]float64{"housing": 1500}, updated.MonthlyExpenses)

	missing, err := s.store.UpdateProfile(ctx, bson.NewObjectID().Hex(), profile, true)
	s.NoError(err)
	s.Nil(missing)
}

func (s *StoreSuite) TestGoals() {
	ctx := context.Background()
	alice := s.newUser("alice", "alice@example.com")
	bob := s.newUser("bobby", "bob@example.com")

	goal := &models.Goal{
		UserID:       alice.ID,
		Type:         models.GoalTypeRetirement,
		TargetAmount: 1000,
		TargetDate:   time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateGoal(ctx, goal))

	got, err := s.store.GetGoal(ctx, bob.ID.Hex(), goal.ID.Hex())
	s.NoError(err)
	s.Nil(got)

	goal.CurrentAmount = 500
	goal.RecomputeProgress()
	found, err := s.store.ReplaceGoal(ctx, goal)
	s.Require().NoError(err)
	s.True(found)

	list, err := s.store.ListGoals(ctx, alice.ID.Hex())
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(50.0, list[0].Progress)

	deleted, err := s.store.DeleteGoal(ctx, bob.ID.Hex(), goal.ID.Hex())
	s.NoError(err)
	s.False(deleted)
	deleted, err = s.store.DeleteGoal(ctx, alice.ID.Hex(), goal.ID.Hex())
	s.NoError(err)
	s.True(deleted)
}

func (s *StoreSuite) TestChatAppendAndDelete() {
	ctx := context.Background()
	user := s.newUser("alice", "alice@example.com")

	session, err := s.store.GetChat(ctx, user.ID.Hex())
	s.NoError(err)
	s.Nil(session)

	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		s.Require().NoError(s.store.AppendMessages(ctx, user.ID.Hex(),
			models.Message{Role: models.RoleUser, Content: "q", Timestamp: now},
			models.Message{Role: models.RoleAssistant, Content: "a", Timestamp: now},
		))
	}

	session, err = s.store.GetChat(ctx, user.ID.Hex())
	s.Require().NoError(err)
	s.Require().Len(session.Messages, 4)
	s.Equal(models.RoleUser, session.Messages[2].Role)
	s.Equal(models.RoleAssistant, session.Messages[3].Role)

	s.NoError(s.store.DeleteChat(ctx, user.ID.Hex()))
	s.NoError(s.store.DeleteChat(ctx, user.ID.Hex()))
	session, err = s.store.GetChat(ctx, user.ID.Hex())
	s.NoError(err)
	s.Nil(session)
}

func (s *StoreSuite) TestLatestSnapshot() {
	ctx := context.Background()
	user := s.newUser("alice", "alice@example.com")

	latest, err := s.store.LatestSnapshot(ctx, user.ID.Hex())
	s.NoError(err)
	s.Nil(latest)

	base := time.Now().UTC()
	for i, income := range []float64{4000, 5000} {
		s.Require().NoError(s.store.CreateSnapshot(ctx, &models.FinancialSnapshot{
			UserID:    user.ID,
			Income:    income,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	latest, err = s.store.LatestSnapshot(ctx, user.ID.Hex())
	s.Require().NoError(err)
	s.Equal(5000.0, latest.Income)
}
