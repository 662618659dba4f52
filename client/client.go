// Package client is a Go client for the fintrack API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/api/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API mounted at baseURL, e.g.
// http://localhost:8080/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*Session, error) {
	var res authResponse
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/auth/register", body, &res); err != nil {
		return nil, err
	}
	return NewSession(res.Token, res.User)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var res authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	return NewSession(res.Token, res.User)
}

type userResponse struct {
	User *models.User `json:"user"`
}

func (c *Client) Me(ctx context.Context, s *Session) (*models.User, error) {
	var res userResponse
	if err := c.do(ctx, s, http.MethodGet, "/users/me", nil, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) CompleteOnboarding(ctx context.Context, s *Session, profile models.FinancialProfile) (*models.User, error) {
	var res userResponse
	if err := c.do(ctx, s, http.MethodPut, "/onboarding/complete", profile, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) UpdateFinancialInfo(ctx context.Context, s *Session, profile models.FinancialProfile) (*models.User, error) {
	var res userResponse
	if err := c.do(ctx, s, http.MethodPut, "/users/financial-info", profile, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

// SendMessage posts a chat message and returns the assistant's reply. An
// empty area lets the server pick its default.
func (c *Client) SendMessage(ctx context.Context, s *Session, message, area string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	body := map[string]string{"message": message}
	if area != "" {
		body["area"] = area
	}
	if err := c.do(ctx, s, http.MethodPost, "/chat", body, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *Client) History(ctx context.Context, s *Session) ([]models.Message, error) {
	var res struct {
		ChatHistory []models.Message `json:"chatHistory"`
	}
	if err := c.do(ctx, s, http.MethodGet, "/chat", nil, &res); err != nil {
		return nil, err
	}
	return res.ChatHistory, nil
}

func (c *Client) ClearHistory(ctx context.Context, s *Session) error {
	return c.do(ctx, s, http.MethodDelete, "/chat", nil, nil)
}

type GoalRequest struct {
	Type          models.GoalType `json:"type"`
	TargetAmount  float64         `json:"targetAmount"`
	CurrentAmount float64         `json:"currentAmount"`
	TargetDate    string          `json:"targetDate"`
}

// GoalUpdate sends only the non-nil fields.
type GoalUpdate struct {
	Type          *models.GoalType `json:"type,omitempty"`
	TargetAmount  *float64         `json:"targetAmount,omitempty"`
	CurrentAmount *float64         `json:"currentAmount,omitempty"`
	TargetDate    *string          `json:"targetDate,omitempty"`
	Strategy      *string          `json:"strategy,omitempty"`
}

func (c *Client) CreateGoal(ctx context.Context, s *Session, req GoalRequest) (*models.Goal, error) {
	var goal models.Goal
	if err := c.do(ctx, s, http.MethodPost, "/goals", req, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (c *Client) ListGoals(ctx context.Context, s *Session) ([]models.Goal, error) {
	var goals []models.Goal
	if err := c.do(ctx, s, http.MethodGet, "/goals", nil, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func (c *Client) GetGoal(ctx context.Context, s *Session, id string) (*models.Goal, error) {
	var goal models.Goal
	if err := c.do(ctx, s, http.MethodGet, "/goals/"+url.PathEscape(id), nil, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (c *Client) UpdateGoal(ctx context.Context, s *Session, id string, update GoalUpdate) (*models.Goal, error) {
	var goal models.Goal
	if err := c.do(ctx, s, http.MethodPut, "/goals/"+url.PathEscape(id), update, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (c *Client) DeleteGoal(ctx context.Context, s *Session, id string) error {
	return c.do(ctx, s, http.MethodDelete, "/goals/"+url.PathEscape(id), nil, nil)
}

func (c *Client) RegenerateStrategy(ctx context.Context, s *Session, id string) (*models.Goal, error) {
	var goal models.Goal
	if err := c.do(ctx, s, http.MethodPost, "/goals/"+url.PathEscape(id)+"/strategy", nil, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

type SnapshotRequest struct {
	Income      float64            `json:"income"`
	Expenses    map[string]float64 `json:"expenses"`
	Savings     float64            `json:"savings"`
	Investments map[string]float64 `json:"investments"`
}

func (c *Client) CreateSnapshot(ctx context.Context, s *Session, req SnapshotRequest) (*models.FinancialSnapshot, error) {
	var snapshot models.FinancialSnapshot
	if err := c.do(ctx, s, http.MethodPost, "/financial-snapshot", req, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) LatestSnapshot(ctx context.Context, s *Session) (*models.FinancialSnapshot, models.SnapshotSummary, error) {
	var res struct {
		Snapshot *models.FinancialSnapshot `json:"snapshot"`
		Summary  models.SnapshotSummary    `json:"summary"`
	}
	if err := c.do(ctx, s, http.MethodGet, "/financial-snapshot", nil, &res); err != nil {
		return nil, models.SnapshotSummary{}, err
	}
	return res.Snapshot, res.Summary, nil
}

// do sends one request. A non-nil session is required for protected routes
// and is checked for local expiry first.
func (c *Client) do(ctx context.Context, s *Session, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !strings.HasPrefix(path, "/auth/") {
		if s == nil || s.Token == "" {
			return ErrNotLoggedIn
		}
		if s.Expired(c.now()) {
			return ErrSessionExpired
		}
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
