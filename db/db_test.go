package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fintrack/api/models"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// StoreSuite runs the repositories against a real postgres in a container.
type StoreSuite struct {
	suite.Suite
	container testcontainers.Container
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

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "fintrack",
				"POSTGRES_PASSWORD": "fintrack",
				"POSTGRES_DB":       "fintrack_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T(), err, "could not start postgres container")
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("postgres://fintrack:fintrack@%s:%s/fintrack_test?sslmode=disable", host, port.Port())
	store, err := Connect(ctx, dsn)
	require.NoError(s.T(), err)
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
	ctx := context.Background()
	_, err := s.store.db.ExecContext(ctx, `DROP TABLE IF EXISTS financial_snapshots, chat_messages, chats, goals, users`)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.EnsureSchema(ctx))
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
	s.Empty(got.MonthlyExpenses)
	s.NotNil(got.FinancialGoals)

	got, err = s.store.GetUserByUsername(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

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
	s.Equal([]models.FinancialGoal{models.FinancialGoalRetirement}, updated.FinancialGoals)

	// A plain edit keeps the onboarding flag.
	profile.RiskTolerance = models.RiskHigh
	updated, err = s.store.UpdateProfile(ctx, user.ID.Hex(), profile, false)
	s.Require().NoError(err)
	s.True(updated.OnboardingCompleted)
	s.Equal(models.RiskHigh, updated.RiskTolerance)

	missing, err := s.store.UpdateProfile(ctx, bson.NewObjectID().Hex(), profile, true)
	s.NoError(err)
	s.Nil(missing)
}

func (s *StoreSuite) TestGoals() {
	ctx := context.Background()
	alice := s.newUser("alice", "alice@example.com")
	bob := s.newUser("bobby", "bob@example.com")

	now := time.Now().UTC()
	goal := &models.Goal{
		ID:            bson.NewObjectID(),
		UserID:        alice.ID,
		Type:          models.GoalTypeRetirement,
		TargetAmount:  1000,
		CurrentAmount: 250,
		TargetDate:    time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	goal.RecomputeProgress()
	s.Require().NoError(s.store.CreateGoal(ctx, goal))

	got, err := s.store.GetGoal(ctx, alice.ID.Hex(), goal.ID.Hex())
	s.Require().NoError(err)
	s.Equal(25.0, got.Progress)
	s.True(goal.TargetDate.Equal(got.TargetDate))

	got, err = s.store.GetGoal(ctx, bob.ID.Hex(), goal.ID.Hex())
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

	list, err = s.store.ListGoals(ctx, bob.ID.Hex())
	s.Require().NoError(err)
	s.Empty(list)

	deleted, err := s.store.DeleteGoal(ctx, bob.ID.Hex(), goal.ID.Hex())
	s.NoError(err)
	s.False(deleted)
	deleted, err = s.store.DeleteGoal(ctx, alice.ID.Hex(), goal.ID.Hex())
	s.NoError(err)
	s.True(deleted)

	found, err = s.store.ReplaceGoal(ctx, goal)
	s.NoError(err)
	s.False(found)
}

func (s *StoreSuite) TestChat() {
	ctx := context.Background()
	alice := s.newUser("alice", "alice@example.com")
	id := alice.ID.Hex()

	chat, err := s.store.GetChat(ctx, id)
	s.NoError(err)
	s.Nil(chat)

	now := time.Now().UTC()
	s.Require().NoError(s.store.AppendMessages(ctx, id,
		models.Message{Role: models.RoleUser, Content: "hi", Timestamp: now},
		models.Message{Role: models.RoleAssistant, Content: "hello", Timestamp: now},
	))
	s.Require().NoError(s.store.AppendMessages(ctx, id,
		models.Message{Role: models.RoleUser, Content: "again", Timestamp: now},
	))

	chat, err = s.store.GetChat(ctx, id)
	s.Require().NoError(err)
	s.Require().Len(chat.Messages, 3)
	s.Equal("hi", chat.Messages[0].Content)
	s.Equal(models.RoleAssistant, chat.Messages[1].Role)
	s.Equal("again", chat.Messages[2].Content)

	s.Require().NoError(s.store.DeleteChat(ctx, id))
	s.Require().NoError(s.store.DeleteChat(ctx, id))
	chat, err = s.store.GetChat(ctx, id)
	s.NoError(err)
	s.Nil(chat)
}

func (s *StoreSuite) TestSnapshots() {
	ctx := context.Background()
	alice := s.newUser("alice", "alice@example.com")

	latest, err := s.store.LatestSnapshot(ctx, alice.ID.Hex())
	s.NoError(err)
	s.Nil(latest)

	base := time.Now().UTC()
	for i, income := range []float64{4000, 5000} {
		s.Require().NoError(s.store.CreateSnapshot(ctx, &models.FinancialSnapshot{
			ID:          bson.NewObjectID(),
			UserID:      alice.ID,
			Income:      income,
			Expenses:    map[string]float64{"rent": 1200},
			Savings:     1000,
			Investments: map[string]float64{"index": 500},
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	latest, err = s.store.LatestSnapshot(ctx, alice.ID.Hex())
	s.Require().NoError(err)
	s.Equal(5000.0, latest.Income)
	s.Equal(map[string]float64{"rent": 1200}, latest.Expenses)
	s.Equal(1500.0, latest.Summary().NetWorth)
}
