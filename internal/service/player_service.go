package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"story-maker/internal/metrics"
	"story-maker/internal/models"
	"story-maker/internal/player"
	"story-maker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlayView is what a reader sees at one step of a session.
type PlayView struct {
	SessionID string                `json:"sessionId"`
	StoryID   string                `json:"storyId"`
	Preview   bool                  `json:"preview"`
	Title     string                `json:"title"`
	Theme     string                `json:"theme"`
	Node      *models.Node          `json:"node"`
	History   []models.HistoryEntry `json:"history"`
	Ended     bool                  `json:"ended"`
	CanGoBack bool                  `json:"canGoBack"`

	// NodeMissing is set when the story was re-saved without the node the
	// reader stood on. Only back and restart move on from here.
	NodeMissing bool `json:"nodeMissing,omitempty"`
}

// PlayerService keeps playback sessions. Stored stories are re-read on each
// step (through the cache when one is configured); preview sessions carry
// their own snapshot.
type PlayerService interface {
	StartStory(ctx context.Context, storyID string) (*PlayView, error)
	StartPreview(ctx context.Context, draftID string) (*PlayView, error)
	GetSession(ctx context.Context, sessionID string) (*PlayView, error)
	Choose(ctx context.Context, sessionID string, index int) (*PlayView, error)
	Back(ctx context.Context, sessionID string) (*PlayView, error)
	Restart(ctx context.Context, sessionID string) (*PlayView, error)
	// Reveal streams the current node's text; canceling ctx stops it.
	Reveal(ctx context.Context, sessionID string) (<-chan player.Frame, error)
}

type playerServiceImpl struct {
	stories        repository.StoryRepository
	sessions       repository.PlaySessionRepository
	editor         EditorService
	revealInterval time.Duration
	newID          func() string
	now            func() time.Time
	logger         *zap.Logger
}

var _ PlayerService = (*playerServiceImpl)(nil)

func NewPlayerService(
	stories repository.StoryRepository,
	sessions repository.PlaySessionRepository,
	editor EditorService,
	revealInterval time.Duration,
	logger *zap.Logger,
) PlayerService {
	return &playerServiceImpl{
		stories:        stories,
		sessions:       sessions,
		editor:         editor,
		revealInterval: revealInterval,
		newID:          uuid.NewString,
		now:            time.Now,
		logger:         logger.Named("PlayerService"),
	}
}

func (s *playerServiceImpl) StartStory(ctx context.Context, storyID string) (*PlayView, error) {
	doc, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, &models.PlaySession{StoryID: doc.ID}, doc)
}

func (s *playerServiceImpl) StartPreview(ctx context.Context, draftID string) (*PlayView, error) {
	doc, err := s.editor.Export(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, &models.PlaySession{StoryID: doc.ID, Preview: true, Document: doc}, doc)
}

func (s *playerServiceImpl) start(ctx context.Context, session *models.PlaySession, doc *models.StoryDocument) (*PlayView, error) {
	p, err := player.Start(doc)
	if err != nil {
		return nil, err
	}
	session.ID = s.newID()
	session.State = p.State()
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Failed to save play session", zap.String("storyID", doc.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save play session: %w", err)
	}
	metrics.PlaySessionsStarted.WithLabelValues(strconv.FormatBool(session.Preview)).Inc()
	s.logger.Info("Play session started",
		zap.String("sessionID", session.ID),
		zap.String("storyID", doc.ID),
		zap.Bool("preview", session.Preview),
	)
	return view(session, p)
}

// load restores the session and its player.
func (s *playerServiceImpl) load(ctx context.Context, sessionID string) (*models.PlaySession, *player.Player, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	doc := session.Document
	if doc == nil {
		doc, err = s.stories.GetByID(ctx, session.StoryID)
		if err != nil {
			return nil, nil, err
		}
	}
	p, err := player.Resume(doc, session.State)
	if err != nil {
		s.logger.Warn("Play session no longer matches its story",
			zap.String("sessionID", sessionID),
			zap.String("storyID", session.StoryID),
			zap.Error(err),
		)
		return nil, nil, err
	}
	if _, err := p.Current(); err != nil {
		s.logger.Warn("Play session stands on a removed node",
			zap.String("sessionID", sessionID),
			zap.String("nodeID", session.State.CurrentNodeID),
		)
	}
	return session, p, nil
}

func (s *playerServiceImpl) GetSession(ctx context.Context, sessionID string) (*PlayView, error) {
	session, p, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return view(session, p)
}

// step applies one transition and persists the new state on success.
func (s *playerServiceImpl) step(ctx context.Context, sessionID, action string, fn func(p *player.Player) error) (v *PlayView, err error) {
	defer func() {
		metrics.PlayStepsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
	}()
	session, p, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err = fn(p); err != nil {
		return nil, err
	}
	session.State = p.State()
	session.UpdatedAt = s.now().UTC()
	if err = s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Failed to save play session", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to save play session: %w", err)
	}
	return view(session, p)
}

func (s *playerServiceImpl) Choose(ctx context.Context, sessionID string, index int) (*PlayView, error) {
	return s.step(ctx, sessionID, "choose", func(p *player.Player) error {
		return p.Choose(index)
	})
}

func (s *playerServiceImpl) Back(ctx context.Context, sessionID string) (*PlayView, error) {
	return s.step(ctx, sessionID, "back", func(p *player.Player) error {
		return p.Back()
	})
}

func (s *playerServiceImpl) Restart(ctx context.Context, sessionID string) (*PlayView, error) {
	return s.step(ctx, sessionID, "restart", func(p *player.Player) error {
		p.Restart()
		return nil
	})
}

func (s *playerServiceImpl) Reveal(ctx context.Context, sessionID string) (<-chan player.Frame, error) {
	_, p, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	node, err := p.Current()
	if err != nil {
		return nil, err
	}
	return player.NewRevealer(s.revealInterval).Reveal(ctx, node.ID, node.Text), nil
}

func view(session *models.PlaySession, p *player.Player) (*PlayView, error) {
	doc := p.Document()
	state := p.State()
	v := &PlayView{
		SessionID: session.ID,
		StoryID:   session.StoryID,
		Preview:   session.Preview,
		Title:     doc.Metadata.Title,
		Theme:     doc.Metadata.Theme,
		History:   state.History,
		Ended:     p.Ended(),
		CanGoBack: len(state.History) > 0,
	}
	node, err := p.Current()
	switch {
	case err == nil:
		v.Node = node.Clone()
	case errors.Is(err, models.ErrNodeNotFound):
		v.NodeMissing = true
	default:
		return nil, err
	}
	return v, nil
}
