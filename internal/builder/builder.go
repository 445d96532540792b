// Package builder holds the editor core: mutations over a single in-progress
// StoryDocument that keep it a rooted binary tree at every step.
//
// Every operation either succeeds and mutates the document or returns an
// error and leaves the document untouched.
package builder

import (
	"fmt"
	"strings"
	"time"

	"story-maker/internal/models"

	"github.com/google/uuid"
)

// Builder owns one document while it is being edited.
type Builder struct {
	doc          *models.StoryDocument
	newID        func() string
	now          func() time.Time
	defaultTheme string
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDGenerator replaces the uuid-based id source (used by tests).
func WithIDGenerator(f func() string) Option {
	return func(b *Builder) { b.newID = f }
}

// WithClock replaces time.Now.
func WithClock(f func() time.Time) Option {
	return func(b *Builder) { b.now = f }
}

// WithDefaultTheme sets the theme used when none or an unknown one is given.
func WithDefaultTheme(theme string) Option {
	return func(b *Builder) {
		if models.IsKnownTheme(theme) {
			b.defaultTheme = theme
		}
	}
}

func newBuilder(opts []Option) *Builder {
	b := &Builder{
		newID:        uuid.NewString,
		now:          time.Now,
		defaultTheme: models.DefaultTheme,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// New starts an empty document: one start node with no choices.
func New(opts ...Option) *Builder {
	b := newBuilder(opts)
	now := b.now().UTC()
	start := models.NewStoryNode(models.StartNodeID)
	start.Emoji = models.StartEmoji
	b.doc = &models.StoryDocument{
		ID: "story-" + b.newID(),
		Metadata: models.Metadata{
			Theme:     b.defaultTheme,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Nodes:       map[string]*models.Node{models.StartNodeID: start},
		StartNodeID: models.StartNodeID,
	}
	return b
}

// Load reopens a stored or imported document for editing. The document id is
// kept so a later save overwrites the same story.
func Load(doc *models.StoryDocument, opts ...Option) (*Builder, error) {
	if err := models.VerifyTree(doc); err != nil {
		return nil, fmt.Errorf("document cannot be edited: %w", err)
	}
	b := newBuilder(opts)
	b.doc = doc.Clone()
	return b, nil
}

// Document returns a copy of the current, unrepaired document.
func (b *Builder) Document() *models.StoryDocument {
	return b.doc.Clone()
}

// ID returns the document id.
func (b *Builder) ID() string {
	return b.doc.ID
}

// Node returns a copy of a node.
func (b *Builder) Node(nodeID string) (*models.Node, error) {
	n, err := models.Resolve(b.doc, nodeID)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// MetadataUpdate carries the metadata fields to change; nil fields are kept.
type MetadataUpdate struct {
	Title       *string
	Author      *string
	Description *string
	Theme       *string
	OwnerID     *string
}

// SetMetadata updates story-level fields. Unknown themes fall back to the default.
func (b *Builder) SetMetadata(u MetadataUpdate) {
	m := &b.doc.Metadata
	if u.Title != nil {
		m.Title = strings.TrimSpace(*u.Title)
	}
	if u.Author != nil {
		m.Author = strings.TrimSpace(*u.Author)
	}
	if u.Description != nil {
		m.Description = strings.TrimSpace(*u.Description)
	}
	if u.Theme != nil {
		m.Theme = *u.Theme
		if !models.IsKnownTheme(m.Theme) {
			m.Theme = b.defaultTheme
		}
	}
	if u.OwnerID != nil {
		m.OwnerID = *u.OwnerID
	}
	m.UpdatedAt = b.now().UTC()
}

// CreateRoot gives the start node its two root choice slots.
func (b *Builder) CreateRoot() ([]string, error) {
	return b.AddSubchoices(b.doc.StartNodeID)
}

// AddSubchoices turns an unfinished leaf into a branch point with two fresh
// empty children, appended as letter a then letter b.
func (b *Builder) AddSubchoices(nodeID string) ([]string, error) {
	n, err := models.Resolve(b.doc, nodeID)
	if err != nil {
		return nil, err
	}
	if n.IsEnding() {
		return nil, models.NewValidationError(models.ErrAlreadyEnding, nodeID)
	}
	if len(n.Choices) > 0 {
		return nil, models.NewValidationError(models.ErrAlreadyHasChildren, nodeID)
	}

	ids := make([]string, 0, models.MaxChoices)
	choices := make([]models.Choice, 0, models.MaxChoices)
	children := make([]*models.Node, 0, models.MaxChoices)
	for i := 0; i < models.MaxChoices; i++ {
		letter := models.LetterAt(i)
		id := "node-" + b.newID()
		if _, exists := b.doc.Nodes[id]; exists {
			return nil, fmt.Errorf("generated node id %s already exists", id)
		}
		child := models.NewStoryNode(id)
		child.Emoji = models.ChoiceEmoji(letter)
		children = append(children, child)
		choices = append(choices, models.Choice{
			Emoji:  models.ChoiceEmoji(letter),
			NextID: id,
			Letter: letter,
		})
		ids = append(ids, id)
	}

	for _, child := range children {
		b.doc.Nodes[child.ID] = child
	}
	n.Choices = choices
	b.touch()
	return ids, nil
}

// EndingData describes the conclusion set by SetEnding.
type EndingData struct {
	Title   string
	Message string
	Type    models.EndingType
	Image   string
}

// SetEnding marks a leaf as an ending, or updates the ending data of a node
// that already is one. A node with choices is refused; its subtree is never
// removed implicitly.
func (b *Builder) SetEnding(nodeID string, data EndingData) error {
	n, err := models.Resolve(b.doc, nodeID)
	if err != nil {
		return err
	}
	if nodeID == b.doc.StartNodeID {
		return fmt.Errorf("%w: start node cannot be an ending", models.ErrInvalidInput)
	}
	if len(n.Choices) > 0 {
		return models.NewValidationError(models.ErrNotEmpty, nodeID)
	}
	if data.Type == "" {
		data.Type = models.EndingNeutral
	}
	if !data.Type.Valid() {
		return fmt.Errorf("%w: unknown ending type %q", models.ErrInvalidInput, data.Type)
	}
	if len(data.Image) > models.MaxImageBytes {
		return fmt.Errorf("%w: ending image exceeds %d bytes", models.ErrInvalidInput, models.MaxImageBytes)
	}

	n.Type = models.NodeTypeEnding
	n.Choices = nil
	n.Ending = &models.Ending{
		Title:   strings.TrimSpace(data.Title),
		Message: strings.TrimSpace(data.Message),
		Type:    data.Type,
		Image:   data.Image,
	}
	b.touch()
	return nil
}

// ClearEnding turns an ending back into an unfinished leaf.
func (b *Builder) ClearEnding(nodeID string) error {
	n, err := models.Resolve(b.doc, nodeID)
	if err != nil {
		return err
	}
	if !n.IsEnding() {
		return models.NewValidationError(models.ErrNotEnding, nodeID)
	}
	n.Type = models.NodeTypeStory
	n.Ending = nil
	n.Choices = []models.Choice{}
	b.touch()
	return nil
}

// DeleteNode removes a node, its whole subtree and the choice leading to it.
// The start node and the two root slots are protected.
func (b *Builder) DeleteNode(nodeID string) error {
	if nodeID == b.doc.StartNodeID {
		return models.NewValidationError(models.ErrProtectedNode, nodeID)
	}
	if _, err := models.Resolve(b.doc, nodeID); err != nil {
		return err
	}
	parent, idx, found := models.FindParent(b.doc, nodeID)
	if found && parent.ID == b.doc.StartNodeID {
		return models.NewValidationError(models.ErrProtectedNode, nodeID)
	}

	for _, id := range b.subtree(nodeID) {
		delete(b.doc.Nodes, id)
	}
	if found {
		parent.Choices = append(parent.Choices[:idx:idx], parent.Choices[idx+1:]...)
	}
	b.touch()
	return nil
}

// subtree lists nodeID and all its descendants.
func (b *Builder) subtree(nodeID string) []string {
	var ids []string
	seen := make(map[string]bool)
	stack := []string{nodeID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := b.doc.Nodes[id]
		if !ok {
			continue
		}
		ids = append(ids, id)
		for _, c := range n.Choices {
			stack = append(stack, c.NextID)
		}
	}
	return ids
}

// NodeContent carries the content fields to change; nil fields are kept.
// Label is the label of the choice that leads to the node.
type NodeContent struct {
	Text  *string
	Image *string
	Label *string
	Emoji *string
}

// UpdateNodeContent sets text, image and label. It has no structural effect.
func (b *Builder) UpdateNodeContent(nodeID string, c NodeContent) error {
	n, err := models.Resolve(b.doc, nodeID)
	if err != nil {
		return err
	}
	if c.Image != nil && len(*c.Image) > models.MaxImageBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", models.ErrInvalidInput, models.MaxImageBytes)
	}
	var parent *models.Node
	idx := -1
	if c.Label != nil {
		var found bool
		parent, idx, found = models.FindParent(b.doc, nodeID)
		if !found {
			return fmt.Errorf("%w: node %s has no incoming choice to label", models.ErrInvalidInput, nodeID)
		}
	}

	if c.Text != nil {
		n.Text = strings.TrimSpace(*c.Text)
	}
	if c.Image != nil {
		n.Image = strings.TrimSpace(*c.Image)
	}
	if c.Emoji != nil {
		n.Emoji = *c.Emoji
	}
	if parent != nil {
		parent.Choices[idx].Label = strings.TrimSpace(*c.Label)
	}
	b.touch()
	return nil
}

// Validate runs the document checks without exporting.
func (b *Builder) Validate() error {
	return models.Validate(b.doc)
}

func (b *Builder) touch() {
	b.doc.Metadata.UpdatedAt = b.now().UTC()
}
