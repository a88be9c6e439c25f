package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	SessionDuration  = 7 * 24 * time.Hour
)

// SessionStore is the slice of *redis.Client the session service needs.
type SessionStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionService resolves session tokens to user ids. Tokens are issued by
// the login flow, which writes session:<token> = <user id>; Create exists for
// that flow and for seeding.
type SessionService struct {
	store SessionStore
	ttl   time.Duration
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{store: store, ttl: SessionDuration}
}

func (s *SessionService) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := s.store.Set(ctx, sessionKeyPrefix+token, userID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Lookup returns the user id for token and slides the session expiry.
func (s *SessionService) Lookup(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrSessionNotFound
	}
	key := sessionKeyPrefix + token
	raw, err := s.store.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get session: %w", err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	if err := s.store.Expire(ctx, key, s.ttl).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("refresh session: %w", err)
	}
	return userID, nil
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if err := s.store.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
