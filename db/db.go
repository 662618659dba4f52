// Package db stores users, goals, chats and snapshots in PostgreSQL. Ids are
// the same 24-character hex strings the Mongo store uses, generated by the
// services before insert.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/api/logger"
	"fintrack/api/models"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                   CHAR(24) PRIMARY KEY,
		username             TEXT NOT NULL UNIQUE,
		email                TEXT NOT NULL UNIQUE,
		password             TEXT NOT NULL,
		annual_income        DOUBLE PRECISION NOT NULL DEFAULT 0,
		monthly_expenses     JSONB NOT NULL DEFAULT '{}',
		current_savings      DOUBLE PRECISION NOT NULL DEFAULT 0,
		financial_goals      JSONB NOT NULL DEFAULT '[]',
		risk_tolerance       TEXT NOT NULL DEFAULT 'medium',
		onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id             CHAR(24) PRIMARY KEY,
		user_id        CHAR(24) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type           TEXT NOT NULL,
		target_amount  DOUBLE PRECISION NOT NULL,
		current_amount DOUBLE PRECISION NOT NULL,
		target_date    TIMESTAMPTZ NOT NULL,
		progress       DOUBLE PRECISION NOT NULL,
		strategy       TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS goals_user_created ON goals (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id         CHAR(24) PRIMARY KEY,
		user_id    CHAR(24) NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		seq       BIGSERIAL PRIMARY KEY,
		chat_id   CHAR(24) NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role      TEXT NOT NULL,
		content   TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_chat ON chat_messages (chat_id, seq)`,
	`CREATE TABLE IF NOT EXISTS financial_snapshots (
		id          CHAR(24) PRIMARY KEY,
		user_id     CHAR(24) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		income      DOUBLE PRECISION NOT NULL,
		expenses    JSONB NOT NULL DEFAULT '{}',
		savings     DOUBLE PRECISION NOT NULL,
		investments JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_user_created ON financial_snapshots (user_id, created_at DESC)`,
}

// Store implements the service repositories on a PostgreSQL database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Connect opens a connection pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	logger.Get().Info("connected to postgres")
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the pool. The context is unused; it matches the Mongo store.
func (s *Store) Close(context.Context) {
	if err := s.db.Close(); err != nil {
		logger.Get().Error("error closing postgres pool", zap.Error(err))
	}
}

// EnsureSchema creates any missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying schema: %w", err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Get().Error("error rolling back transaction", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// validID reports whether id could name a row. Malformed ids match nothing.
func validID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

func parseID(id string) bson.ObjectID {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		logger.Get().Warn("row has malformed id", zap.String("id", id))
	}
	return oid
}

func wrapWrite(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// toJSON returns text. lib/pq binds a []byte as bytea.
func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func amounts(j types.JSONText) (map[string]float64, error) {
	out := map[string]float64{}
	if len(j) == 0 {
		return out, nil
	}
	if err := j.Unmarshal(&out); err != nil {
		return nil, err
	}
	return out, nil
}
