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

var _ StoryRepository = (*cachedStoryRepository)(nil)

type cachedStoryRepository struct {
	next   StoryRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStoryRepository reads stories through Redis before falling back to
// next. Writes go to next first and then drop the cached copy. Cache failures
// are logged and never fail the call.
func NewCachedStoryRepository(next StoryRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) StoryRepository {
	return &cachedStoryRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.Named("CachedStoryRepo"),
	}
}

func storyCacheKey(id string) string {
	return fmt.Sprintf("story:%s", id)
}

func (r *cachedStoryRepository) Save(ctx context.Context, doc *models.StoryDocument) error {
	if err := r.next.Save(ctx, doc); err != nil {
		return err
	}
	r.invalidate(ctx, doc.ID)
	return nil
}

func (r *cachedStoryRepository) GetByID(ctx context.Context, id string) (*models.StoryDocument, error) {
	key := storyCacheKey(id)
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		doc := &models.StoryDocument{}
		if jsonErr := json.Unmarshal(data, doc); jsonErr == nil {
			r.logger.Debug("Story cache hit", zap.String("storyID", id))
			return doc, nil
		}
		r.logger.Warn("Dropping undecodable cached story", zap.String("storyID", id))
		r.invalidate(ctx, id)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("Story cache read failed", zap.Error(err), zap.String("storyID", id))
	}

	doc, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(doc); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("Story cache write failed", zap.Error(err), zap.String("storyID", id))
		}
	}
	return doc, nil
}

func (r *cachedStoryRepository) List(ctx context.Context, ownerID string) ([]*models.StoryDocument, error) {
	return r.next.List(ctx, ownerID)
}

func (r *cachedStoryRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedStoryRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, storyCacheKey(id)).Err(); err != nil {
		r.logger.Warn("Story cache invalidation failed", zap.Error(err), zap.String("storyID", id))
	}
}
