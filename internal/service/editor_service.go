package service

import (
	"context"
	"fmt"
	"time"

	"story-maker/internal/builder"
	"story-maker/internal/metrics"
	"story-maker/internal/models"
	"story-maker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EditorService runs builder operations over drafts kept in a DraftRepository.
// A draft is loaded, mutated once and written back only when the operation
// succeeds.
type EditorService interface {
	CreateDraft(ctx context.Context, ownerID string, meta builder.MetadataUpdate) (*models.Draft, error)
	// OpenDraft starts a draft over an existing document, keeping its id.
	OpenDraft(ctx context.Context, ownerID string, doc *models.StoryDocument) (*models.Draft, error)
	GetDraft(ctx context.Context, draftID string) (*models.Draft, error)
	DeleteDraft(ctx context.Context, draftID string) error

	UpdateMetadata(ctx context.Context, draftID string, meta builder.MetadataUpdate) (*models.Draft, error)
	CreateRoot(ctx context.Context, draftID string) (*models.Draft, []string, error)
	AddSubchoices(ctx context.Context, draftID, nodeID string) (*models.Draft, []string, error)
	SetEnding(ctx context.Context, draftID, nodeID string, data builder.EndingData) (*models.Draft, error)
	ClearEnding(ctx context.Context, draftID, nodeID string) (*models.Draft, error)
	UpdateNodeContent(ctx context.Context, draftID, nodeID string, content builder.NodeContent) (*models.Draft, error)
	DeleteNode(ctx context.Context, draftID, nodeID string) (*models.Draft, error)

	// Export returns the repaired document without persisting it.
	Export(ctx context.Context, draftID string) (*models.StoryDocument, error)
}

type editorServiceImpl struct {
	drafts      repository.DraftRepository
	builderOpts []builder.Option
	newID       func() string
	now         func() time.Time
	logger      *zap.Logger
}

var _ EditorService = (*editorServiceImpl)(nil)

// NewEditorService creates the editor. builderOpts are passed to every
// builder it opens (theme, clock, id source).
func NewEditorService(drafts repository.DraftRepository, logger *zap.Logger, builderOpts ...builder.Option) EditorService {
	return &editorServiceImpl{
		drafts:      drafts,
		builderOpts: builderOpts,
		newID:       uuid.NewString,
		now:         time.Now,
		logger:      logger.Named("EditorService"),
	}
}

func (s *editorServiceImpl) CreateDraft(ctx context.Context, ownerID string, meta builder.MetadataUpdate) (*models.Draft, error) {
	b := builder.New(s.builderOpts...)
	if ownerID != "" {
		meta.OwnerID = &ownerID
	}
	b.SetMetadata(meta)
	draft, err := s.store(ctx, ownerID, b)
	metrics.EditorOperationsTotal.WithLabelValues("create_draft", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Draft created", zap.String("draftID", draft.ID), zap.String("storyID", b.ID()))
	return draft, nil
}

func (s *editorServiceImpl) OpenDraft(ctx context.Context, ownerID string, doc *models.StoryDocument) (*models.Draft, error) {
	b, err := builder.Load(doc, s.builderOpts...)
	if err != nil {
		return nil, err
	}
	draft, err := s.store(ctx, ownerID, b)
	metrics.EditorOperationsTotal.WithLabelValues("open_draft", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Draft opened over existing document", zap.String("draftID", draft.ID), zap.String("storyID", b.ID()))
	return draft, nil
}

func (s *editorServiceImpl) store(ctx context.Context, ownerID string, b *builder.Builder) (*models.Draft, error) {
	draft := &models.Draft{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Document:  b.Document(),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		s.logger.Error("Failed to save draft", zap.String("draftID", draft.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

func (s *editorServiceImpl) GetDraft(ctx context.Context, draftID string) (*models.Draft, error) {
	return s.drafts.Get(ctx, draftID)
}

func (s *editorServiceImpl) DeleteDraft(ctx context.Context, draftID string) error {
	if err := s.drafts.Delete(ctx, draftID); err != nil {
		return err
	}
	s.logger.Info("Draft deleted", zap.String("draftID", draftID))
	return nil
}

// mutate loads the draft, applies op and saves the result. Refused
// operations leave the stored draft untouched.
func (s *editorServiceImpl) mutate(ctx context.Context, draftID, operation string, op func(b *builder.Builder) error) (draft *models.Draft, err error) {
	defer func() {
		metrics.EditorOperationsTotal.WithLabelValues(operation, metrics.Result(err)).Inc()
	}()

	draft, err = s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	b, err := builder.Load(draft.Document, s.builderOpts...)
	if err != nil {
		s.logger.Error("Stored draft is not editable", zap.String("draftID", draftID), zap.Error(err))
		return nil, err
	}
	if err = op(b); err != nil {
		s.logger.Debug("Editor operation refused",
			zap.String("draftID", draftID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return nil, err
	}

	draft.Document = b.Document()
	draft.UpdatedAt = s.now().UTC()
	if err = s.drafts.Save(ctx, draft); err != nil {
		s.logger.Error("Failed to save draft", zap.String("draftID", draftID), zap.Error(err))
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

func (s *editorServiceImpl) UpdateMetadata(ctx context.Context, draftID string, meta builder.MetadataUpdate) (*models.Draft, error) {
	// Ownership is fixed at draft creation.
	meta.OwnerID = nil
	return s.mutate(ctx, draftID, "update_metadata", func(b *builder.Builder) error {
		b.SetMetadata(meta)
		return nil
	})
}

func (s *editorServiceImpl) CreateRoot(ctx context.Context, draftID string) (*models.Draft, []string, error) {
	var ids []string
	draft, err := s.mutate(ctx, draftID, "create_root", func(b *builder.Builder) error {
		var err error
		ids, err = b.CreateRoot()
		return err
	})
	return draft, ids, err
}

func (s *editorServiceImpl) AddSubchoices(ctx context.Context, draftID, nodeID string) (*models.Draft, []string, error) {
	var ids []string
	draft, err := s.mutate(ctx, draftID, "add_subchoices", func(b *builder.Builder) error {
		var err error
		ids, err = b.AddSubchoices(nodeID)
		return err
	})
	return draft, ids, err
}

func (s *editorServiceImpl) SetEnding(ctx context.Context, draftID, nodeID string, data builder.EndingData) (*models.Draft, error) {
	return s.mutate(ctx, draftID, "set_ending", func(b *builder.Builder) error {
		return b.SetEnding(nodeID, data)
	})
}

func (s *editorServiceImpl) ClearEnding(ctx context.Context, draftID, nodeID string) (*models.Draft, error) {
	return s.mutate(ctx, draftID, "clear_ending", func(b *builder.Builder) error {
		return b.ClearEnding(nodeID)
	})
}

func (s *editorServiceImpl) UpdateNodeContent(ctx context.Context, draftID, nodeID string, content builder.NodeContent) (*models.Draft, error) {
	return s.mutate(ctx, draftID, "update_node_content", func(b *builder.Builder) error {
		return b.UpdateNodeContent(nodeID, content)
	})
}

func (s *editorServiceImpl) DeleteNode(ctx context.Context, draftID, nodeID string) (*models.Draft, error) {
	return s.mutate(ctx, draftID, "delete_node", func(b *builder.Builder) error {
		return b.DeleteNode(nodeID)
	})
}

func (s *editorServiceImpl) Export(ctx context.Context, draftID string) (doc *models.StoryDocument, err error) {
	defer func() {
		metrics.EditorOperationsTotal.WithLabelValues("export", metrics.Result(err)).Inc()
	}()
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	b, err := builder.Load(draft.Document, s.builderOpts...)
	if err != nil {
		return nil, err
	}
	return b.Export()
}
