package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"story-maker/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ DraftRepository       = (*redisDraftRepository)(nil)
	_ PlaySessionRepository = (*redisPlaySessionRepository)(nil)
)

// redisJSON stores JSON values under a key prefix with a sliding TTL.
type redisJSON struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func (s *redisJSON) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

func (s *redisJSON) put(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", s.prefix, id, err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to store value in redis", zap.Error(err), zap.String("key", s.key(id)))
		return fmt.Errorf("failed to store %s %s: %w", s.prefix, id, err)
	}
	return nil
}

// get decodes the value into v and reports found=false on a miss.
func (s *redisJSON) get(ctx context.Context, id string, v any) (bool, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		s.logger.Error("Failed to read value from redis", zap.Error(err), zap.String("key", s.key(id)))
		return false, fmt.Errorf("failed to read %s %s: %w", s.prefix, id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s %s: %w", s.prefix, id, err)
	}
	return true, nil
}

func (s *redisJSON) del(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		s.logger.Error("Failed to delete value from redis", zap.Error(err), zap.String("key", s.key(id)))
		return false, fmt.Errorf("failed to delete %s %s: %w", s.prefix, id, err)
	}
	return n > 0, nil
}

type redisDraftRepository struct {
	store redisJSON
}

// NewRedisDraftRepository keeps drafts in Redis for ttl after their last save.
func NewRedisDraftRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) DraftRepository {
	return &redisDraftRepository{store: redisJSON{
		client: client,
		prefix: "draft",
		ttl:    ttl,
		logger: logger.Named("RedisDraftRepo"),
	}}
}

func (r *redisDraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	return r.store.put(ctx, draft.ID, draft)
}

func (r *redisDraftRepository) Get(ctx context.Context, id string) (*models.Draft, error) {
	draft := &models.Draft{}
	found, err := r.store.get(ctx, id, draft)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrDraftNotFound
	}
	return draft, nil
}

func (r *redisDraftRepository) Delete(ctx context.Context, id string) error {
	found, err := r.store.del(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return models.ErrDraftNotFound
	}
	return nil
}

type redisPlaySessionRepository struct {
	store redisJSON
}

// NewRedisPlaySessionRepository keeps play sessions in Redis for ttl after
// their last step.
func NewRedisPlaySessionRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) PlaySessionRepository {
	return &redisPlaySessionRepository{store: redisJSON{
		client: client,
		prefix: "play",
		ttl:    ttl,
		logger: logger.Named("RedisPlaySessionRepo"),
	}}
}

func (r *redisPlaySessionRepository) Save(ctx context.Context, session *models.PlaySession) error {
	return r.store.put(ctx, session.ID, session)
}

func (r *redisPlaySessionRepository) Get(ctx context.Context, id string) (*models.PlaySession, error) {
	session := &models.PlaySession{}
	found, err := r.store.get(ctx, id, session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrSessionExpired
	}
	return session, nil
}

func (r *redisPlaySessionRepository) Delete(ctx context.Context, id string) error {
	found, err := r.store.del(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return models.ErrSessionExpired
	}
	return nil
}
