package service_test

import (
	"context"
	"errors"
	"testing"

	"story-maker/internal/builder"
	"story-maker/internal/models"
	repoMocks "story-maker/internal/repository/mocks"
	"story-maker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEditorServiceDraftLifecycle(t *testing.T) {
	ctx := context.Background()
	editor, drafts := newTestEditor()

	draft, err := editor.CreateDraft(ctx, "alice", builder.MetadataUpdate{Title: strPtr("  제목  "), Theme: strPtr("space")})
	require.NoError(t, err)
	assert.Equal(t, "alice", draft.OwnerID)
	assert.Equal(t, "story-1", draft.Document.ID)
	assert.Equal(t, "제목", draft.Document.Metadata.Title)
	assert.Equal(t, "alice", draft.Document.Metadata.OwnerID)
	assert.Equal(t, "space", draft.Document.Metadata.Theme)

	stored, err := drafts.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Document.Nodes, 1)

	updated, slots, err := editor.CreateRoot(ctx, draft.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Len(t, updated.Document.Nodes, 3)

	t.Run("Refused operation keeps the stored draft", func(t *testing.T) {
		before, err := drafts.Get(ctx, draft.ID)
		require.NoError(t, err)

		_, _, err = editor.AddSubchoices(ctx, draft.ID, models.StartNodeID)
		assert.ErrorIs(t, err, models.ErrAlreadyHasChildren)
		_, err = editor.DeleteNode(ctx, draft.ID, slots[0])
		assert.ErrorIs(t, err, models.ErrProtectedNode)

		after, err := drafts.Get(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Document, after.Document)
	})

	t.Run("Ending on a slot", func(t *testing.T) {
		d, err := editor.SetEnding(ctx, draft.ID, slots[1], builder.EndingData{Title: "끝", Type: models.EndingSad})
		require.NoError(t, err)
		assert.True(t, d.Document.Nodes[slots[1]].IsEnding())

		_, _, err = editor.AddSubchoices(ctx, draft.ID, slots[1])
		assert.ErrorIs(t, err, models.ErrAlreadyEnding)

		d, err = editor.ClearEnding(ctx, draft.ID, slots[1])
		require.NoError(t, err)
		assert.False(t, d.Document.Nodes[slots[1]].IsEnding())
	})

	t.Run("Subtree delete", func(t *testing.T) {
		_, grand, err := editor.AddSubchoices(ctx, draft.ID, slots[0])
		require.NoError(t, err)
		d, err := editor.DeleteNode(ctx, draft.ID, grand[0])
		require.NoError(t, err)
		assert.NotContains(t, d.Document.Nodes, grand[0])
		assert.Len(t, d.Document.Nodes[slots[0]].Choices, 1)
	})

	t.Run("Metadata update cannot change owner", func(t *testing.T) {
		d, err := editor.UpdateMetadata(ctx, draft.ID, builder.MetadataUpdate{OwnerID: strPtr("mallory"), Author: strPtr("작가")})
		require.NoError(t, err)
		assert.Equal(t, "alice", d.Document.Metadata.OwnerID)
		assert.Equal(t, "작가", d.Document.Metadata.Author)
	})

	require.NoError(t, editor.DeleteDraft(ctx, draft.ID))
	_, err = editor.GetDraft(ctx, draft.ID)
	assert.ErrorIs(t, err, models.ErrDraftNotFound)
	_, err = editor.UpdateMetadata(ctx, draft.ID, builder.MetadataUpdate{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEditorServiceExport(t *testing.T) {
	ctx := context.Background()
	editor, _ := newTestEditor()

	t.Run("Missing title", func(t *testing.T) {
		draft, err := editor.CreateDraft(ctx, "", builder.MetadataUpdate{})
		require.NoError(t, err)
		_, err = editor.Export(ctx, draft.ID)
		assert.ErrorIs(t, err, models.ErrMissingTitle)
	})

	t.Run("Complete draft", func(t *testing.T) {
		draftID, slots := exportableDraft(t, editor, "")
		doc, err := editor.Export(ctx, draftID)
		require.NoError(t, err)
		require.NoError(t, models.Validate(doc))
		// Both root slots were leaves and got implicit endings.
		assert.Len(t, doc.Nodes, 5)
		assert.Equal(t, models.ImplicitChoiceLabel, doc.Nodes[slots[0]].Choices[0].Label)

		draft, err := editor.GetDraft(ctx, draftID)
		require.NoError(t, err)
		assert.Len(t, draft.Document.Nodes, 3, "export must not repair the draft itself")
	})
}

func TestEditorServiceOpenDraft(t *testing.T) {
	ctx := context.Background()
	editor, _ := newTestEditor()

	draft, err := editor.OpenDraft(ctx, "bob", playableStory("story-x"))
	require.NoError(t, err)
	assert.Equal(t, "story-x", draft.Document.ID)
	assert.Equal(t, "bob", draft.OwnerID)

	broken := playableStory("story-y")
	broken.Nodes["right"].Choices[0].NextID = "left"
	_, err = editor.OpenDraft(ctx, "", broken)
	assert.ErrorIs(t, err, models.ErrMergePoint)
}

func TestEditorServiceSaveFailure(t *testing.T) {
	ctx := context.Background()
	drafts := new(repoMocks.DraftRepository)
	editor := service.NewEditorService(drafts, zap.NewNop(), testBuilderOpts()...)

	stored := &models.Draft{ID: "d1", Document: playableStory("story-1")}
	drafts.On("Get", ctx, "d1").Return(stored, nil).Once()
	drafts.On("Save", ctx, mock.AnythingOfType("*models.Draft")).Return(errors.New("redis down")).Once()

	_, err := editor.UpdateMetadata(ctx, "d1", builder.MetadataUpdate{Title: strPtr("새 제목")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save draft")
	drafts.AssertExpectations(t)
}

func TestEditorServiceRefusedOperationDoesNotSave(t *testing.T) {
	ctx := context.Background()
	drafts := new(repoMocks.DraftRepository)
	editor := service.NewEditorService(drafts, zap.NewNop(), testBuilderOpts()...)

	drafts.On("Get", ctx, "d1").Return(&models.Draft{ID: "d1", Document: playableStory("story-1")}, nil).Once()

	_, err := editor.SetEnding(ctx, "d1", "right", builder.EndingData{Type: models.EndingHappy})
	assert.ErrorIs(t, err, models.ErrNotEmpty)
	drafts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	drafts.AssertExpectations(t)
}
