package mocks

import (
	"context"

	"story-maker/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock SyncPublisher
type SyncPublisher struct {
	mock.Mock
}

func (m *SyncPublisher) PublishStorySync(ctx context.Context, event models.StorySyncEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
