package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"fintrack/api/auth"
	"fintrack/api/client"
	"fintrack/api/handlers"
	"fintrack/api/memstore"
	"fintrack/api/middleware"
	"fintrack/api/models"
	"fintrack/api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoGenerator struct{}

func (echoGenerator) ChatReply(_ context.Context, _ *models.User, history []models.Message, area string) (string, error) {
	return "(" + area + ") you said: " + history[len(history)-1].Content, nil
}

func (echoGenerator) GoalStrategy(context.Context, *models.User, *models.Goal) (string, error) {
	return "Save steadily.", nil
}

type cli struct {
	t       *testing.T
	server  string
	session string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	tokens := auth.NewTokenService("cli-secret", "fintrack")
	h := handlers.NewHandler(
		services.NewAccountService(store.Users(), tokens, nil),
		services.NewGoalService(store.Users(), store.Goals(), echoGenerator{}, nil),
		services.NewChatService(store.Users(), store.Chats(), echoGenerator{}, nil),
		services.NewSnapshotService(store.Users(), store.Snapshots()),
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"), middleware.AuthMiddleware(tokens))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &cli{t: t, server: srv.URL + "/api", session: filepath.Join(t.TempDir(), "session.json")}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	full := append([]string{"-server", c.server, "-session", c.session}, args...)
	err := run(full, strings.NewReader(stdin), stdout, stderr)
	return stdout.String(), err
}

func TestRun_RegisterOnboardChat(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("secret1\n", "register", "-username", "alice", "-email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and logged in as alice")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice <alice@example.com>")
	assert.Contains(t, out, "Onboarding: not completed")

	_, err = c.run("", "onboard", "-income", "85000", "-savings", "12000",
		"-expenses", "housing=1500,food=400", "-goals", "retirement,investment", "-risk", "high")
	require.NoError(t, err)

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Risk tolerance:  high")
	assert.Contains(t, out, "retirement, investment")

	out, err = c.run("", "chat", "-area", "savings", "how", "much?")
	require.NoError(t, err)
	assert.Contains(t, out, "(savings) you said: how much?")

	out, err = c.run("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "user: how much?")
	assert.Contains(t, out, "assistant: (savings)")

	_, err = c.run("", "clear-history")
	require.NoError(t, err)
	out, err = c.run("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No messages yet")
}

func TestRun_Goals(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "register", "-username", "alice", "-email", "alice@example.com", "-password", "secret1")
	require.NoError(t, err)

	out, err := c.run("", "add-goal", "-type", "retirement", "-target", "1000", "-current", "250", "-date", "2040-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "Save steadily.")

	id := regexp.MustCompile(`[0-9a-f]{24}`).FindString(out)
	require.NotEmpty(t, id)

	out, err = c.run("", "update-goal", "-id", id, "-current", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "50.0%")

	out, err = c.run("", "goals")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = c.run("", "delete-goal", "-id", id)
	require.NoError(t, err)

	_, err = c.run("", "delete-goal", "-id", id)
	assert.ErrorContains(t, err, "GOAL_NOT_FOUND")
}

func TestRun_LoginLogout(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("secret1\n", "register", "-username", "alice", "-email", "alice@example.com")
	require.NoError(t, err)
	_, err = c.run("", "logout")
	require.NoError(t, err)

	_, err = c.run("", "goals")
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)

	_, err = c.run("wrong-pass\n", "login", "-email", "alice@example.com")
	assert.ErrorContains(t, err, "INVALID_PASSWORD")

	out, err := c.run("secret1\n", "login", "-email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")
	assert.Contains(t, out, "fintrack onboard")
}

func TestRun_Usage(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("")
	assert.ErrorContains(t, err, "missing command")

	_, err = c.run("", "bogus")
	assert.ErrorContains(t, err, "unknown command")

	_, err = c.run("", "register", "-username", "alice")
	assert.ErrorContains(t, err, "missing required flags")
}
