package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"story-maker/internal/importer"
	"story-maker/internal/messaging"
	"story-maker/internal/metrics"
	"story-maker/internal/models"
	"story-maker/internal/repository"

	"go.uber.org/zap"
)

// ImportResult is a freshly opened draft over an imported document.
type ImportResult struct {
	Draft    *models.Draft      `json:"draft"`
	Format   importer.Format    `json:"format"`
	Warnings []importer.Warning `json:"warnings"`
}

// Download is a stored story rendered as an indented JSON file.
type Download struct {
	Filename string
	Body     []byte
}

// LibraryService manages finished stories: saving drafts, listing, loading
// for editing, import and download. Every save and delete is followed by a
// sync event whose failure is logged and never undoes the change.
type LibraryService interface {
	SaveDraft(ctx context.Context, draftID, ownerID string) (*models.StoryDocument, error)
	ListStories(ctx context.Context, ownerID string) ([]*models.StoryDocument, error)
	GetStory(ctx context.Context, storyID string) (*models.StoryDocument, error)
	DeleteStory(ctx context.Context, storyID, ownerID string) error
	DownloadStory(ctx context.Context, storyID string) (*Download, error)
	EditStory(ctx context.Context, storyID, ownerID string) (*models.Draft, error)
	ImportStory(ctx context.Context, ownerID string, data []byte) (*ImportResult, error)
}

type libraryServiceImpl struct {
	stories   repository.StoryRepository
	editor    EditorService
	importer  *importer.Importer
	publisher messaging.SyncPublisher
	now       func() time.Time
	logger    *zap.Logger
}

var _ LibraryService = (*libraryServiceImpl)(nil)

func NewLibraryService(
	stories repository.StoryRepository,
	editor EditorService,
	imp *importer.Importer,
	publisher messaging.SyncPublisher,
	logger *zap.Logger,
) LibraryService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &libraryServiceImpl{
		stories:   stories,
		editor:    editor,
		importer:  imp,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("LibraryService"),
	}
}

func (s *libraryServiceImpl) SaveDraft(ctx context.Context, draftID, ownerID string) (*models.StoryDocument, error) {
	doc, err := s.editor.Export(ctx, draftID)
	if err != nil {
		return nil, err
	}

	existing, err := s.stories.GetByID(ctx, doc.ID)
	switch {
	case err == nil:
		if !canModify(existing, ownerID) {
			s.logger.Warn("Refusing to overwrite a story of another owner",
				zap.String("storyID", doc.ID), zap.String("ownerID", ownerID))
			return nil, fmt.Errorf("%w: story %s belongs to another owner", models.ErrForbidden, doc.ID)
		}
		if doc.Metadata.OwnerID == "" {
			doc.Metadata.OwnerID = existing.Metadata.OwnerID
		}
	case errors.Is(err, models.ErrStoryNotFound):
	default:
		return nil, fmt.Errorf("failed to check existing story: %w", err)
	}
	if doc.Metadata.OwnerID == "" {
		doc.Metadata.OwnerID = ownerID
	}

	if err := s.stories.Save(ctx, doc); err != nil {
		s.logger.Error("Failed to save story", zap.String("storyID", doc.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save story: %w", err)
	}
	metrics.StoriesSavedTotal.Inc()
	s.logger.Info("Story saved",
		zap.String("storyID", doc.ID),
		zap.String("draftID", draftID),
		zap.Int("nodes", len(doc.Nodes)),
	)
	s.publishSync(ctx, models.SyncActionSave, doc)
	return doc, nil
}

func (s *libraryServiceImpl) ListStories(ctx context.Context, ownerID string) ([]*models.StoryDocument, error) {
	docs, err := s.stories.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return docs, nil
}

func (s *libraryServiceImpl) GetStory(ctx context.Context, storyID string) (*models.StoryDocument, error) {
	return s.stories.GetByID(ctx, storyID)
}

func (s *libraryServiceImpl) DeleteStory(ctx context.Context, storyID, ownerID string) error {
	doc, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if !canModify(doc, ownerID) {
		return fmt.Errorf("%w: story %s belongs to another owner", models.ErrForbidden, storyID)
	}
	if err := s.stories.Delete(ctx, storyID); err != nil {
		return err
	}
	metrics.StoriesDeletedTotal.Inc()
	s.logger.Info("Story deleted", zap.String("storyID", storyID))
	s.publishSync(ctx, models.SyncActionDelete, doc)
	return nil
}

func (s *libraryServiceImpl) DownloadStory(ctx context.Context, storyID string) (*Download, error) {
	doc, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode story %s: %w", storyID, err)
	}
	return &Download{Filename: DownloadFilename(doc.Metadata.Title, s.now()), Body: body}, nil
}

// DownloadFilename builds "<title>_<YYYY-MM-DD>.json" keeping only letters,
// digits and spaces of the title, with spaces turned into underscores.
func DownloadFilename(title string, at time.Time) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" {
		name = "story"
	}
	return fmt.Sprintf("%s_%s.json", name, at.Format("2006-01-02"))
}

func (s *libraryServiceImpl) EditStory(ctx context.Context, storyID, ownerID string) (*models.Draft, error) {
	doc, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return s.editor.OpenDraft(ctx, ownerID, doc)
}

func (s *libraryServiceImpl) ImportStory(ctx context.Context, ownerID string, data []byte) (*ImportResult, error) {
	res, err := s.importer.Parse(data)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("unknown", "error").Inc()
		s.logger.Info("Import rejected", zap.Int("bytes", len(data)), zap.Error(err))
		return nil, err
	}
	if ownerID != "" && res.Document.Metadata.OwnerID == "" {
		res.Document.Metadata.OwnerID = ownerID
	}

	draft, err := s.editor.OpenDraft(ctx, ownerID, res.Document)
	metrics.ImportsTotal.WithLabelValues(string(res.Format), metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		metrics.ImportWarningsTotal.WithLabelValues(string(w.Kind)).Inc()
	}
	s.logger.Info("Story imported",
		zap.String("draftID", draft.ID),
		zap.String("format", string(res.Format)),
		zap.Int("nodes", len(res.Document.Nodes)),
		zap.Int("warnings", len(res.Warnings)),
	)
	warnings := res.Warnings
	if warnings == nil {
		warnings = []importer.Warning{}
	}
	return &ImportResult{Draft: draft, Format: res.Format, Warnings: warnings}, nil
}

func (s *libraryServiceImpl) publishSync(ctx context.Context, action string, doc *models.StoryDocument) {
	event := models.StorySyncEvent{
		Action:      action,
		StoryID:     doc.ID,
		Timestamp:   s.now().UTC(),
		Title:       doc.Metadata.Title,
		Author:      doc.Metadata.Author,
		Description: doc.Metadata.Description,
		Theme:       doc.Metadata.Theme,
		OwnerID:     doc.Metadata.OwnerID,
	}
	if action == models.SyncActionSave {
		data, err := json.Marshal(doc)
		if err != nil {
			s.logger.Error("Failed to encode story for sync", zap.String("storyID", doc.ID), zap.Error(err))
			return
		}
		event.StoryData = data
	}
	err := s.publisher.PublishStorySync(ctx, event)
	metrics.SyncEventsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Error("Failed to publish sync event",
			zap.String("action", action),
			zap.String("storyID", doc.ID),
			zap.Error(err),
		)
	}
}

// canModify allows anonymous stories to be changed by anyone and owned ones
// only by their owner.
func canModify(doc *models.StoryDocument, ownerID string) bool {
	return doc.Metadata.OwnerID == "" || doc.Metadata.OwnerID == ownerID
}
