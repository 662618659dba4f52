package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/api/logger"
	"fintrack/api/models"

	"go.uber.org/zap"
)

const defaultArea = "general"

type ChatService struct {
	users     UserRepository
	chats     ChatRepository
	generator AdviceGenerator
	events    EventSink
	now       func() time.Time
}

func NewChatService(users UserRepository, chats ChatRepository, generator AdviceGenerator, events EventSink) *ChatService {
	if events == nil {
		events = NopSink{}
	}
	return &ChatService{users: users, chats: chats, generator: generator, events: events, now: time.Now}
}

func (s *ChatService) owner(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// PostMessage sends content to the advice generator with the last
// models.ContextWindow messages as context and returns the reply. The user
// message and the reply are stored together only when generation succeeds.
//
// Two concurrent posts by the same user each build their context without the
// other's messages; both exchanges are still appended.
func (s *ChatService) PostMessage(ctx context.Context, userID, content, area string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	area = strings.TrimSpace(area)
	if area == "" {
		area = defaultArea
	}

	user, err := s.owner(ctx, userID)
	if err != nil {
		return "", err
	}

	session, err := s.chats.GetChat(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get chat: %w", err)
	}
	var history []models.Message
	if session != nil {
		history = session.Messages
	}

	userMsg := models.Message{Role: models.RoleUser, Content: content, Timestamp: s.now()}
	window := models.Window(append(history[:len(history):len(history)], userMsg), models.ContextWindow)

	reply, err := s.generator.ChatReply(ctx, user, window, area)
	if err != nil {
		logger.Get().Error("chat reply generation failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return "", generationError(err)
	}
	if strings.TrimSpace(reply) == "" {
		logger.Get().Error("chat reply generation returned empty text", zap.String("user_id", userID))
		return "", ErrGenerationFailed
	}

	assistantMsg := models.Message{Role: models.RoleAssistant, Content: reply, Timestamp: s.now()}
	if err := s.chats.AppendMessages(ctx, userID, userMsg, assistantMsg); err != nil {
		return "", fmt.Errorf("append messages: %w", err)
	}

	s.events.Publish(models.Event{Type: models.EventChatReplied, UserID: userID, OccurredAt: assistantMsg.Timestamp})
	return reply, nil
}

// GetHistory returns every stored message, or an empty slice when the user
// has never chatted.
func (s *ChatService) GetHistory(ctx context.Context, userID string) ([]models.Message, error) {
	if _, err := s.owner(ctx, userID); err != nil {
		return nil, err
	}
	session, err := s.chats.GetChat(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if session == nil || session.Messages == nil {
		return []models.Message{}, nil
	}
	return session.Messages, nil
}

// ClearHistory deletes the user's chat session. It succeeds when there is none.
func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	if _, err := s.owner(ctx, userID); err != nil {
		return err
	}
	if err := s.chats.DeleteChat(ctx, userID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	s.events.Publish(models.Event{Type: models.EventChatCleared, UserID: userID, OccurredAt: s.now()})
	return nil
}
