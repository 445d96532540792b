package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"story-maker/internal/models"
)

var (
	_ StoryRepository       = (*MemoryStoryRepository)(nil)
	_ DraftRepository       = (*MemoryDraftRepository)(nil)
	_ PlaySessionRepository = (*MemoryPlaySessionRepository)(nil)
)

// MemoryStoryRepository is a process-local StoryRepository used when no
// database is configured and in tests.
type MemoryStoryRepository struct {
	mu      sync.RWMutex
	stories map[string]*models.StoryDocument
}

func NewMemoryStoryRepository() *MemoryStoryRepository {
	return &MemoryStoryRepository{stories: make(map[string]*models.StoryDocument)}
}

func (r *MemoryStoryRepository) Save(_ context.Context, doc *models.StoryDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := doc.Clone()
	if prev, ok := r.stories[doc.ID]; ok {
		stored.Metadata.CreatedAt = prev.Metadata.CreatedAt
	}
	r.stories[doc.ID] = stored
	return nil
}

func (r *MemoryStoryRepository) GetByID(_ context.Context, id string) (*models.StoryDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.stories[id]
	if !ok {
		return nil, models.ErrStoryNotFound
	}
	return doc.Clone(), nil
}

func (r *MemoryStoryRepository) List(_ context.Context, ownerID string) ([]*models.StoryDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.StoryDocument, 0, len(r.stories))
	for _, doc := range r.stories {
		if ownerID != "" && doc.Metadata.OwnerID != ownerID {
			continue
		}
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Metadata.CreatedAt, out[j].Metadata.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryStoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stories[id]; !ok {
		return models.ErrStoryNotFound
	}
	delete(r.stories, id)
	return nil
}

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// ttlMap is a mutex-guarded map whose entries expire ttl after their last put.
type ttlMap[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry[T]
}

func newTTLMap[T any](ttl time.Duration) *ttlMap[T] {
	return &ttlMap[T]{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry[T])}
}

func (m *ttlMap[T]) put(id string, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if m.ttl > 0 {
		exp = m.now().Add(m.ttl)
	}
	m.entries[id] = memoryEntry[T]{value: v, expiresAt: exp}
}

func (m *ttlMap[T]) get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if ok && !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, id)
		ok = false
	}
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (m *ttlMap[T]) remove(id string) bool {
	if _, ok := m.get(id); !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return true
}

// MemoryDraftRepository keeps drafts in process memory.
type MemoryDraftRepository struct {
	m *ttlMap[models.Draft]
}

// NewMemoryDraftRepository creates a draft store; ttl <= 0 never expires.
func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{m: newTTLMap[models.Draft](ttl)}
}

func (r *MemoryDraftRepository) Save(_ context.Context, draft *models.Draft) error {
	d := *draft
	d.Document = draft.Document.Clone()
	r.m.put(d.ID, d)
	return nil
}

func (r *MemoryDraftRepository) Get(_ context.Context, id string) (*models.Draft, error) {
	d, ok := r.m.get(id)
	if !ok {
		return nil, models.ErrDraftNotFound
	}
	d.Document = d.Document.Clone()
	return &d, nil
}

func (r *MemoryDraftRepository) Delete(_ context.Context, id string) error {
	if !r.m.remove(id) {
		return models.ErrDraftNotFound
	}
	return nil
}

// MemoryPlaySessionRepository keeps play sessions in process memory.
type MemoryPlaySessionRepository struct {
	m *ttlMap[models.PlaySession]
}

// NewMemoryPlaySessionRepository creates a session store; ttl <= 0 never expires.
func NewMemoryPlaySessionRepository(ttl time.Duration) *MemoryPlaySessionRepository {
	return &MemoryPlaySessionRepository{m: newTTLMap[models.PlaySession](ttl)}
}

func (r *MemoryPlaySessionRepository) Save(_ context.Context, session *models.PlaySession) error {
	r.m.put(session.ID, copySession(*session))
	return nil
}

func (r *MemoryPlaySessionRepository) Get(_ context.Context, id string) (*models.PlaySession, error) {
	s, ok := r.m.get(id)
	if !ok {
		return nil, models.ErrSessionExpired
	}
	s = copySession(s)
	return &s, nil
}

func (r *MemoryPlaySessionRepository) Delete(_ context.Context, id string) error {
	if !r.m.remove(id) {
		return models.ErrSessionExpired
	}
	return nil
}

func copySession(s models.PlaySession) models.PlaySession {
	s.Document = s.Document.Clone()
	h := make([]models.HistoryEntry, len(s.State.History))
	copy(h, s.State.History)
	s.State.History = h
	return s
}
