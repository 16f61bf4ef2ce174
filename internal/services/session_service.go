package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

// SessionService keeps staff sessions in Redis so sessions survive restarts
// and are shared across replicas.
type SessionService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSessionService(redisClient *redis.Client, ttl time.Duration) *SessionService {
	return &SessionService{redis: redisClient, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Create opens a session for the user and returns its id.
func (s *SessionService) Create(ctx context.Context, userID int64) (string, error) {
	sessionID := uuid.NewString()
	err := s.redis.Set(ctx, sessionKey(sessionID), userID, s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}
	return sessionID, nil
}

// UserID resolves a session to its owner. Missing or expired sessions return
// models.ErrNotFound.
func (s *SessionService) UserID(ctx context.Context, sessionID string) (int64, error) {
	value, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error getting session: %w", err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing session value: %w", err)
	}
	return userID, nil
}

func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
