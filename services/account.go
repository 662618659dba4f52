package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fintrack/api/auth"
	"fintrack/api/logger"
	"fintrack/api/models"

	"go.uber.org/zap"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *models.User
	Token string
}

type AccountService struct {
	users  UserRepository
	tokens TokenIssuer
	events EventSink
	hash   func(string) (string, error)
	now    func() time.Time
}

func NewAccountService(users UserRepository, tokens TokenIssuer, events EventSink) *AccountService {
	if events == nil {
		events = NopSink{}
	}
	return &AccountService{
		users:  users,
		tokens: tokens,
		events: events,
		hash:   auth.HashPassword,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	if n := len(in.Username); n < 3 || n > 50 {
		return withMessage(ErrInvalidRequest, "Username must be between 3 and 50 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.ContainsAny(in.Email, " <>") {
		return withMessage(ErrInvalidRequest, "A valid email address is required")
	}
	if len(in.Password) < 6 {
		return withMessage(ErrInvalidRequest, "Password must be at least 6 characters")
	}
	if len(in.Password) > maxPasswordBytes {
		return withMessage(ErrInvalidRequest, "Password must be at most 72 bytes")
	}
	return nil
}

// Register creates a user and returns it with a fresh token. The email and
// username pre-checks are backed by unique indexes, so a concurrent insert
// still fails with ErrEmailExists or ErrUsernameExists.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateRegistration(&in); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	existing, err = s.users.GetUserByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(in.Username, in.Email, hash, s.now())
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, s.duplicateCause(ctx, in.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID.Hex(), user.Username, user.Email)
	if err != nil {
		return nil, err
	}

	logger.Get().Info("user registered", zap.String("user_id", user.ID.Hex()))
	s.events.Publish(models.Event{Type: models.EventUserRegistered, UserID: user.ID.Hex(), OccurredAt: s.now()})
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AccountService) duplicateCause(ctx context.Context, email string) error {
	if u, err := s.users.GetUserByEmail(ctx, email); err == nil && u != nil {
		return ErrEmailExists
	}
	return ErrUsernameExists
}

// Login checks credentials and issues a fresh token. Unknown emails and wrong
// passwords are reported with different codes.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if user == nil {
		return nil, ErrEmailNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		logger.Get().Info("login rejected", zap.String("user_id", user.ID.Hex()), zap.String("reason", "invalid password"))
		return nil, ErrInvalidPassword
	}

	token, err := s.tokens.Issue(user.ID.Hex(), user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetProfile loads the user behind a verified token.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CompleteOnboarding stores the questionnaire answers and flips
// onboardingCompleted in a single update.
func (s *AccountService) CompleteOnboarding(ctx context.Context, userID string, profile models.FinancialProfile) (*models.User, error) {
	user, err := s.updateProfile(ctx, userID, profile, true)
	if err != nil {
		return nil, err
	}
	s.events.Publish(models.Event{Type: models.EventUserOnboarded, UserID: userID, OccurredAt: s.now()})
	return user, nil
}

// UpdateFinancialInfo edits the profile without touching the onboarding flag.
func (s *AccountService) UpdateFinancialInfo(ctx context.Context, userID string, profile models.FinancialProfile) (*models.User, error) {
	return s.updateProfile(ctx, userID, profile, false)
}

func (s *AccountService) updateProfile(ctx context.Context, userID string, profile models.FinancialProfile, completeOnboarding bool) (*models.User, error) {
	if err := profile.Normalize(); err != nil {
		return nil, withMessage(ErrInvalidProfile, err.Error())
	}

	user, err := s.users.UpdateProfile(ctx, userID, profile, completeOnboarding)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
