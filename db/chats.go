package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/api/models"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type chatRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type messageRow struct {
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}

func (s *Store) GetChat(ctx context.Context, userID string) (*models.ChatSession, error) {
	if !validID(userID) {
		return nil, nil
	}
	var chat chatRow
	err := s.db.GetContext(ctx, &chat, `SELECT id, user_id, created_at, updated_at FROM chats WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chat for user %s: %w", userID, err)
	}

	var rows []messageRow
	err = s.db.SelectContext(ctx, &rows, `SELECT role, content, timestamp FROM chat_messages
		WHERE chat_id = $1 ORDER BY seq`, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("select messages for chat %s: %w", chat.ID, err)
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, models.Message{Role: models.Role(r.Role), Content: r.Content, Timestamp: r.Timestamp.UTC()})
	}
	return &models.ChatSession{
		ID:        parseID(chat.ID),
		UserID:    parseID(chat.UserID),
		Messages:  msgs,
		CreatedAt: chat.CreatedAt.UTC(),
		UpdatedAt: chat.UpdatedAt.UTC(),
	}, nil
}

// AppendMessages upserts the session row and inserts msgs in one transaction,
// so a pair of messages is stored together or not at all.
func (s *Store) AppendMessages(ctx context.Context, userID string, msgs ...models.Message) error {
	if !validID(userID) {
		return fmt.Errorf("append messages: invalid user id %q", userID)
	}
	if len(msgs) == 0 {
		return nil
	}
	now := s.now().UTC()

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var chatID string
		err := tx.GetContext(ctx, &chatID, `INSERT INTO chats (id, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
			RETURNING id`, bson.NewObjectID().Hex(), userID, now)
		if err != nil {
			return wrapWrite("upsert chat", err)
		}

		stmt, err := tx.PreparexContext(ctx, `INSERT INTO chat_messages (chat_id, role, content, timestamp)
			VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("prepare message insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range msgs {
			if _, err := stmt.ExecContext(ctx, chatID, string(m.Role), m.Content, m.Timestamp); err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}
		return nil
	})
}

// DeleteChat removes the session; its messages go with it by cascade.
func (s *Store) DeleteChat(ctx context.Context, userID string) error {
	if !validID(userID) {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete chat for user %s: %w", userID, err)
	}
	return nil
}
