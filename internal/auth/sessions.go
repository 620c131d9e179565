// Package auth holds browser-session management and the hosted identity
// provider client. Credentials never touch this service: the provider verifies
// them and this package only mints and tracks sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taqyim/internal/common/database"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/models"
)

const (
	sessionKeyPrefix  = "session:"
	userSessionPrefix = "user-sessions:"
)

// RedisSessionStore keeps sessions in Redis with a TTL matching their expiry.
// A per-user set tracks tokens so every session of a user can be revoked at
// once.
type RedisSessionStore struct {
	rdb    *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisSessionStore(rdb *database.RedisClient, ttl time.Duration, log logger.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "session-store"}),
	}
}

// NewSession mints a session for an authenticated user. The token is random,
// not derived from any user attribute.
func (s *RedisSessionStore) NewSession(user models.User, ip, userAgent string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Token:        newToken(),
		Role:         user.Role,
		Language:     user.Language,
		IPAddress:    ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
	}
}

func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("session token generation failed: %v", err))
	}
	return hex.EncodeToString(buf)
}

func (s *RedisSessionStore) Create(session *models.Session) error {
	ctx := context.Background()

	body, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return apperrors.NewSessionExpiredError()
	}

	pipe := s.rdb.Client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.Token, body, ttl)
	pipe.SAdd(ctx, userSessionPrefix+session.UserID, session.Token)
	pipe.Expire(ctx, userSessionPrefix+session.UserID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewStoreWriteFailedError(sessionKeyPrefix+session.Token, err)
	}

	s.logger.Info("session created", map[string]interface{}{"userId": session.UserID, "sessionId": session.ID})
	return nil
}

func (s *RedisSessionStore) FindByToken(token string) (*models.Session, error) {
	ctx := context.Background()

	body, err := s.rdb.Client.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, apperrors.NewSessionExpiredError()
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError(sessionKeyPrefix+token, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(body), &session); err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, apperrors.NewSessionExpiredError()
	}
	return &session, nil
}

// Refresh slides the session's expiry forward by the store TTL and records the
// activity.
func (s *RedisSessionStore) Refresh(session *models.Session) error {
	ctx := context.Background()

	session.Touch()
	session.ExpiresAt = time.Now().Add(s.ttl)

	body, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.rdb.Client.Set(ctx, sessionKeyPrefix+session.Token, body, s.ttl).Err(); err != nil {
		return apperrors.NewStoreWriteFailedError(sessionKeyPrefix+session.Token, err)
	}
	return nil
}

func (s *RedisSessionStore) Revoke(token string) error {
	ctx := context.Background()

	// Look the session up first so the user set stays consistent.
	body, err := s.rdb.Client.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperrors.NewStoreQueryFailedError(sessionKeyPrefix+token, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(body), &session); err == nil {
		s.rdb.Client.SRem(ctx, userSessionPrefix+session.UserID, token)
	}

	if err := s.rdb.Client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return apperrors.NewStoreWriteFailedError(sessionKeyPrefix+token, err)
	}
	return nil
}

// RevokeUser terminates every session of a user, for role changes and account
// disabling.
func (s *RedisSessionStore) RevokeUser(userID string) error {
	ctx := context.Background()

	tokens, err := s.rdb.Client.SMembers(ctx, userSessionPrefix+userID).Result()
	if err != nil {
		return apperrors.NewStoreQueryFailedError(userSessionPrefix+userID, err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKeyPrefix+token)
	}
	keys = append(keys, userSessionPrefix+userID)

	if err := s.rdb.Client.Del(ctx, keys...).Err(); err != nil {
		return apperrors.NewStoreWriteFailedError(userSessionPrefix+userID, err)
	}

	s.logger.Info("user sessions revoked", map[string]interface{}{"userId": userID, "count": len(tokens)})
	return nil
}
