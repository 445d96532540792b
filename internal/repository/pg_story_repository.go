package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"story-maker/internal/models"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository stores documents as JSONB rows in the stories table.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

// created_at is kept from the first insert so list order follows creation.
const upsertStoryQuery = `
INSERT INTO stories (id, owner_id, title, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    owner_id = EXCLUDED.owner_id,
    title = EXCLUDED.title,
    data = EXCLUDED.data,
    updated_at = EXCLUDED.updated_at`

const getStoryByIDQuery = `SELECT data FROM stories WHERE id = $1`

const listStoriesQuery = `
SELECT data FROM stories
WHERE $1 = '' OR owner_id = $1
ORDER BY created_at DESC, id ASC`

const deleteStoryQuery = `DELETE FROM stories WHERE id = $1`

func (r *pgStoryRepository) Save(ctx context.Context, doc *models.StoryDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode story %s: %w", doc.ID, err)
	}
	_, err = r.db.Exec(ctx, upsertStoryQuery,
		doc.ID,
		doc.Metadata.OwnerID,
		doc.Metadata.Title,
		data,
		doc.Metadata.CreatedAt,
		doc.Metadata.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save story", zap.Error(err), zap.String("storyID", doc.ID))
		return fmt.Errorf("failed to save story %s: %w", doc.ID, err)
	}
	r.logger.Info("Story saved", zap.String("storyID", doc.ID), zap.Int("nodes", len(doc.Nodes)))
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, id string) (*models.StoryDocument, error) {
	var data []byte
	err := r.db.QueryRow(ctx, getStoryByIDQuery, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Story not found", zap.String("storyID", id))
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.String("storyID", id))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	doc := &models.StoryDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", id, err)
	}
	return doc, nil
}

func (r *pgStoryRepository) List(ctx context.Context, ownerID string) ([]*models.StoryDocument, error) {
	rows, err := r.db.Query(ctx, listStoriesQuery, ownerID)
	if err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err), zap.String("ownerID", ownerID))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	stories := make([]*models.StoryDocument, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		doc := &models.StoryDocument{}
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode story row: %w", err)
		}
		stories = append(stories, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate story rows: %w", err)
	}
	r.logger.Debug("Stories listed", zap.String("ownerID", ownerID), zap.Int("count", len(stories)))
	return stories, nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Error(err), zap.String("storyID", id))
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", zap.String("storyID", id))
	return nil
}
