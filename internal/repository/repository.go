// Package repository is the persistence side of the story maker: finished
// stories (Postgres, optionally behind a Redis cache) and short-lived editing
// drafts and play sessions (Redis with TTL or process memory).
package repository

import (
	"context"

	"story-maker/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoryRepository stores exported documents. Save is an idempotent full
// overwrite keyed by document id.
type StoryRepository interface {
	Save(ctx context.Context, doc *models.StoryDocument) error
	// GetByID returns models.ErrStoryNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*models.StoryDocument, error)
	// List returns stories newest first; an empty ownerID lists everything.
	List(ctx context.Context, ownerID string) ([]*models.StoryDocument, error)
	Delete(ctx context.Context, id string) error
}

// DraftRepository keeps in-progress editing documents between requests.
type DraftRepository interface {
	Save(ctx context.Context, draft *models.Draft) error
	// Get returns models.ErrDraftNotFound for unknown or expired drafts.
	Get(ctx context.Context, id string) (*models.Draft, error)
	Delete(ctx context.Context, id string) error
}

// PlaySessionRepository keeps playback positions between requests.
type PlaySessionRepository interface {
	Save(ctx context.Context, session *models.PlaySession) error
	// Get returns models.ErrSessionExpired for unknown or expired sessions.
	Get(ctx context.Context, id string) (*models.PlaySession, error)
	Delete(ctx context.Context, id string) error
}
