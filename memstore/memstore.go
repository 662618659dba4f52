// Package memstore keeps users, goals, chats and snapshots in process memory.
// It backs STORE=memory and the service tests. Nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Store struct {
	mu        sync.RWMutex
	users     map[bson.ObjectID]*models.User
	goals     map[bson.ObjectID]*models.Goal
	chats     map[bson.ObjectID]*models.ChatSession
	snapshots map[bson.ObjectID][]*models.FinancialSnapshot
	now       func() time.Time
}

func New() *Store {
	return &Store{
		users:     make(map[bson.ObjectID]*models.User),
		goals:     make(map[bson.ObjectID]*models.Goal),
		chats:     make(map[bson.ObjectID]*models.ChatSession),
		snapshots: make(map[bson.ObjectID][]*models.FinancialSnapshot),
		now:       time.Now,
	}
}

// Users, Goals, Chats and Snapshots are views of the same store, one per
// repository interface.
type (
	Users     struct{ s *Store }
	Goals     struct{ s *Store }
	Chats     struct{ s *Store }
	Snapshots struct{ s *Store }
)

func (s *Store) Users() *Users         { return &Users{s} }
func (s *Store) Goals() *Goals         { return &Goals{s} }
func (s *Store) Chats() *Chats         { return &Chats{s} }
func (s *Store) Snapshots() *Snapshots { return &Snapshots{s} }

func parseID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	return oid, err == nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.MonthlyExpenses = copyMap(u.MonthlyExpenses)
	c.FinancialGoals = append([]models.FinancialGoal(nil), u.FinancialGoals...)
	return &c
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (r *Users) CreateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	for _, u := range r.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return models.ErrDuplicateKey
		}
	}
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *Users) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	oid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if u, ok := r.s.users[oid]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (r *Users) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == strings.ToLower(email) }), nil
}

func (r *Users) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (r *Users) find(match func(*models.User) bool) *models.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return copyUser(u)
		}
	}
	return nil
}

func (r *Users) UpdateProfile(_ context.Context, userID string, profile models.FinancialProfile, completeOnboarding bool) (*models.User, error) {
	oid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[oid]
	if !ok {
		return nil, nil
	}
	u.FinancialProfile = profile
	u.MonthlyExpenses = copyMap(profile.MonthlyExpenses)
	u.FinancialGoals = append([]models.FinancialGoal(nil), profile.FinancialGoals...)
	if completeOnboarding {
		u.OnboardingCompleted = true
	}
	u.UpdatedAt = r.s.now()
	return copyUser(u), nil
}

// Delete removes a user. Their goals, chat and snapshots are kept, the same
// as deleting the document by hand in Mongo.
func (r *Users) Delete(userID string) {
	if oid, ok := parseID(userID); ok {
		r.s.mu.Lock()
		delete(r.s.users, oid)
		r.s.mu.Unlock()
	}
}

func (r *Goals) CreateGoal(_ context.Context, goal *models.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if goal.ID.IsZero() {
		goal.ID = bson.NewObjectID()
	}
	if _, exists := r.s.goals[goal.ID]; exists {
		return models.ErrDuplicateKey
	}
	c := *goal
	r.s.goals[goal.ID] = &c
	return nil
}

func (r *Goals) GetGoal(_ context.Context, userID, goalID string) (*models.Goal, error) {
	uid, ok1 := parseID(userID)
	gid, ok2 := parseID(goalID)
	if !ok1 || !ok2 {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.goals[gid]
	if !ok || g.UserID != uid {
		return nil, nil
	}
	c := *g
	return &c, nil
}

// ListGoals returns the user's goals oldest first.
func (r *Goals) ListGoals(_ context.Context, userID string) ([]models.Goal, error) {
	uid, ok := parseID(userID)
	if !ok {
		return []models.Goal{}, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	goals := []models.Goal{}
	for _, g := range r.s.goals {
		if g.UserID == uid {
			goals = append(goals, *g)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].ID.Hex() < goals[j].ID.Hex()
		}
		return goals[i].CreatedAt.Before(goals[j].CreatedAt)
	})
	return goals, nil
}

func (r *Goals) ReplaceGoal(_ context.Context, goal *models.Goal) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.goals[goal.ID]
	if !ok || existing.UserID != goal.UserID {
		return false, nil
	}
	c := *goal
	r.s.goals[goal.ID] = &c
	return true, nil
}

func (r *Goals) DeleteGoal(_ context.Context, userID, goalID string) (bool, error) {
	uid, ok1 := parseID(userID)
	gid, ok2 := parseID(goalID)
	if !ok1 || !ok2 {
		return false, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.goals[gid]
	if !ok || g.UserID != uid {
		return false, nil
	}
	delete(r.s.goals, gid)
	return true, nil
}

func (r *Chats) GetChat(_ context.Context, userID string) (*models.ChatSession, error) {
	uid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.chats[uid]
	if !ok {
		return nil, nil
	}
	c := *session
	c.Messages = append([]models.Message(nil), session.Messages...)
	return &c, nil
}

func (r *Chats) AppendMessages(_ context.Context, userID string, msgs ...models.Message) error {
	uid, ok := parseID(userID)
	if !ok {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	session, ok := r.s.chats[uid]
	if !ok {
		session = &models.ChatSession{ID: bson.NewObjectID(), UserID: uid, CreatedAt: now}
		r.s.chats[uid] = session
	}
	session.Messages = append(session.Messages, msgs...)
	session.UpdatedAt = now
	return nil
}

func (r *Chats) DeleteChat(_ context.Context, userID string) error {
	if uid, ok := parseID(userID); ok {
		r.s.mu.Lock()
		delete(r.s.chats, uid)
		r.s.mu.Unlock()
	}
	return nil
}

func (r *Snapshots) CreateSnapshot(_ context.Context, snapshot *models.FinancialSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if snapshot.ID.IsZero() {
		snapshot.ID = bson.NewObjectID()
	}
	c := *snapshot
	c.Expenses = copyMap(snapshot.Expenses)
	c.Investments = copyMap(snapshot.Investments)
	r.s.snapshots[snapshot.UserID] = append(r.s.snapshots[snapshot.UserID], &c)
	return nil
}

// LatestSnapshot returns the most recently inserted snapshot.
func (r *Snapshots) LatestSnapshot(_ context.Context, userID string) (*models.FinancialSnapshot, error) {
	uid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := r.s.snapshots[uid]
	if len(list) == 0 {
		return nil, nil
	}
	c := *list[len(list)-1]
	return &c, nil
}
