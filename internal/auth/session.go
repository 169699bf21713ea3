package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"
)

// SessionStore persists the backend bearer token per browser session.
// Token returns "" for unknown or expired sessions.
type SessionStore interface {
	Token(ctx context.Context, sessionID string) (string, error)
	SaveToken(ctx context.Context, sessionID, token string) error
	Delete(ctx context.Context, sessionID string) error
}

// Session is the token holder for one browser. It is created by the
// LoadSession middleware and handed to the API client for the request.
type Session struct {
	ID    string
	store SessionStore
}

var _ apiclient.TokenStore = (*Session)(nil)

func NewSession(store SessionStore, id string) *Session {
	return &Session{ID: id, store: store}
}

// Token reads the stored bearer token; a session without an ID has none.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s.ID == "" {
		return "", nil
	}
	return s.store.Token(ctx, s.ID)
}

// SetToken stores token, allocating a session ID on first use. An empty
// token deletes the session.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if token == "" {
		if s.ID == "" {
			return nil
		}
		return s.store.Delete(ctx, s.ID)
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return s.store.SaveToken(ctx, s.ID, token)
}

// Authenticated reports whether a token is currently stored.
func (s *Session) Authenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// RedisSessions keeps tokens in the hash session:<sid> under the auth_token
// field.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: SessionTTL}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (s *RedisSessions) Token(ctx context.Context, sessionID string) (string, error) {
	val, err := s.rdb.HGet(ctx, sessionKey(sessionID), apiclient.TokenKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// SaveToken overwrites the token and refreshes the session TTL.
func (s *RedisSessions) SaveToken(ctx context.Context, sessionID, token string) error {
	key := sessionKey(sessionID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, apiclient.TokenKey, token)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisSessions) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
