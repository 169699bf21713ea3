package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSessions keeps browser sessions in the web_sessions table. It is
// the alternative to Redis for deployments that already run PostgreSQL.
type PostgresSessions struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresSessions(pool *pgxpool.Pool, ttl time.Duration) *PostgresSessions {
	return &PostgresSessions{pool: pool, ttl: ttl}
}

// Migrate creates the web_sessions table if it doesn't exist.
func (s *PostgresSessions) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS web_sessions (
			id         UUID PRIMARY KEY,
			auth_token TEXT        NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

func (s *PostgresSessions) Token(ctx context.Context, sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", nil
	}
	var token string
	err := s.pool.QueryRow(ctx,
		`SELECT auth_token FROM web_sessions WHERE id = $1 AND expires_at > NOW()`, sessionID,
	).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return token, nil
}

func (s *PostgresSessions) SaveToken(ctx context.Context, sessionID, token string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO web_sessions (id, auth_token, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET auth_token = EXCLUDED.auth_token, expires_at = EXCLUDED.expires_at, updated_at = NOW()`,
		sessionID, token, time.Now().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresSessions) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM web_sessions WHERE id = $1`, sessionID)
	return err
}

// PurgeExpired removes sessions past their expiry and reports how many went.
func (s *PostgresSessions) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM web_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
