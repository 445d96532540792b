package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"story-maker/internal/builder"
	"story-maker/internal/models"
	"story-maker/internal/repository"
	"story-maker/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 12, 24, 9, 0, 0, 0, time.UTC)

func testBuilderOpts() []builder.Option {
	n := 0
	return []builder.Option{
		builder.WithIDGenerator(func() string {
			n++
			return fmt.Sprint(n)
		}),
		builder.WithClock(func() time.Time { return fixedNow }),
	}
}

func newTestEditor() (service.EditorService, *repository.MemoryDraftRepository) {
	drafts := repository.NewMemoryDraftRepository(0)
	return service.NewEditorService(drafts, zap.NewNop(), testBuilderOpts()...), drafts
}

func strPtr(s string) *string { return &s }

// exportableDraft builds a draft that passes export: title, start text and
// both root choices labeled. Returns the draft id and the two root slot ids.
func exportableDraft(t *testing.T, editor service.EditorService, ownerID string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	draft, err := editor.CreateDraft(ctx, ownerID, builder.MetadataUpdate{Title: strPtr("눈 오는 밤")})
	require.NoError(t, err)
	_, slots, err := editor.CreateRoot(ctx, draft.ID)
	require.NoError(t, err)
	_, err = editor.UpdateNodeContent(ctx, draft.ID, models.StartNodeID, builder.NodeContent{Text: strPtr("창밖에 눈이 내린다.")})
	require.NoError(t, err)
	_, err = editor.UpdateNodeContent(ctx, draft.ID, slots[0], builder.NodeContent{Label: strPtr("밖으로 나간다"), Text: strPtr("차가운 공기")})
	require.NoError(t, err)
	_, err = editor.UpdateNodeContent(ctx, draft.ID, slots[1], builder.NodeContent{Label: strPtr("집에 머문다")})
	require.NoError(t, err)
	return draft.ID, slots
}

// playableStory is start -> {left: ending, right -> deep ending}.
func playableStory(id string) *models.StoryDocument {
	return &models.StoryDocument{
		ID:          id,
		Metadata:    models.Metadata{Title: "우주 여행", Theme: "space", CreatedAt: fixedNow, UpdatedAt: fixedNow},
		StartNodeID: models.StartNodeID,
		Nodes: map[string]*models.Node{
			"start": {ID: "start", Type: models.NodeTypeStory, Text: "발사 준비", Choices: []models.Choice{
				{Label: "발사", NextID: "left", Letter: "a"},
				{Label: "대기", NextID: "right", Letter: "b"},
			}},
			"left": {ID: "left", Type: models.NodeTypeEnding, Text: "달에 도착", Ending: &models.Ending{Title: "성공", Type: models.EndingHappy}},
			"right": {ID: "right", Type: models.NodeTypeStory, Text: "기다림", Choices: []models.Choice{
				{Label: "포기", NextID: "deep", Letter: "a"},
			}},
			"deep": {ID: "deep", Type: models.NodeTypeEnding, Text: "집으로", Ending: &models.Ending{Title: "포기", Type: models.EndingSad}},
		},
	}
}

func builderMeta(title string) builder.MetadataUpdate {
	return builder.MetadataUpdate{Title: strPtr(title)}
}
