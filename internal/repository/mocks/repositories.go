package mocks

import (
	"context"

	"story-maker/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Save(ctx context.Context, doc *models.StoryDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *StoryRepository) GetByID(ctx context.Context, id string) (*models.StoryDocument, error) {
	args := m.Called(ctx, id)
	doc, _ := args.Get(0).(*models.StoryDocument)
	return doc, args.Error(1)
}

func (m *StoryRepository) List(ctx context.Context, ownerID string) ([]*models.StoryDocument, error) {
	args := m.Called(ctx, ownerID)
	docs, _ := args.Get(0).([]*models.StoryDocument)
	return docs, args.Error(1)
}

func (m *StoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock DraftRepository
type DraftRepository struct {
	mock.Mock
}

func (m *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *DraftRepository) Get(ctx context.Context, id string) (*models.Draft, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Draft)
	return d, args.Error(1)
}

func (m *DraftRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock PlaySessionRepository
type PlaySessionRepository struct {
	mock.Mock
}

func (m *PlaySessionRepository) Save(ctx context.Context, session *models.PlaySession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *PlaySessionRepository) Get(ctx context.Context, id string) (*models.PlaySession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.PlaySession)
	return s, args.Error(1)
}

func (m *PlaySessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
