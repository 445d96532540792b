// Package player walks a finished story from its start node. The document is
// never modified; the only state is the current node and the history stack,
// and Back is the exact inverse of Choose.
package player

import (
	"errors"

	"story-maker/internal/models"
)

var (
	ErrEmptyStory         = errors.New("story has no start node")
	ErrStoryEnded         = errors.New("story has ended; go back or restart")
	ErrInvalidChoiceIndex = errors.New("choice index out of range")
	ErrNoHistory          = errors.New("nothing to go back to")
)

// Player is one reader's position in a story. Not safe for concurrent use.
type Player struct {
	doc   *models.StoryDocument
	state models.PlaybackState
}

// Start positions a new reader at the start node.
func Start(doc *models.StoryDocument) (*Player, error) {
	if doc == nil {
		return nil, ErrEmptyStory
	}
	if _, ok := doc.Nodes[doc.StartNodeID]; !ok {
		return nil, ErrEmptyStory
	}
	return &Player{
		doc:   doc,
		state: models.PlaybackState{CurrentNodeID: doc.StartNodeID, History: []models.HistoryEntry{}},
	}, nil
}

// Resume restores a reader from a saved state. The current node may have
// been removed from the document since; Current and Choose then report
// models.ErrNodeNotFound while Back and Restart still work.
func Resume(doc *models.StoryDocument, state models.PlaybackState) (*Player, error) {
	p, err := Start(doc)
	if err != nil {
		return nil, err
	}
	if state.CurrentNodeID == "" {
		return p, nil
	}
	p.state.CurrentNodeID = state.CurrentNodeID
	p.state.History = append(p.state.History, state.History...)
	return p, nil
}

// State returns a copy of the traversal state.
func (p *Player) State() models.PlaybackState {
	h := make([]models.HistoryEntry, len(p.state.History))
	copy(h, p.state.History)
	return models.PlaybackState{CurrentNodeID: p.state.CurrentNodeID, History: h}
}

// Document returns the story being played.
func (p *Player) Document() *models.StoryDocument {
	return p.doc
}

// Current returns the node the reader is on.
func (p *Player) Current() (*models.Node, error) {
	return models.Resolve(p.doc, p.state.CurrentNodeID)
}

// Ended reports whether no choice can be taken from the current node. An
// unrepaired leaf without choices counts as ended.
func (p *Player) Ended() bool {
	n, err := p.Current()
	if err != nil {
		return true
	}
	return n.IsEnding() || len(n.Choices) == 0
}

// Choose follows the choice at index and records it on the history stack.
// On error the state is unchanged.
func (p *Player) Choose(index int) error {
	n, err := p.Current()
	if err != nil {
		return err
	}
	if n.IsEnding() || len(n.Choices) == 0 {
		return ErrStoryEnded
	}
	if index < 0 || index >= len(n.Choices) {
		return ErrInvalidChoiceIndex
	}
	c := n.Choices[index]
	if _, err := models.Resolve(p.doc, c.NextID); err != nil {
		return err
	}
	p.state.History = append(p.state.History, models.HistoryEntry{
		FromNodeID:  n.ID,
		ChoiceLabel: c.Label,
		ChoiceEmoji: c.Emoji,
		ToNodeID:    c.NextID,
	})
	p.state.CurrentNodeID = c.NextID
	return nil
}

// Back pops the last choice and returns to the node it was taken from.
func (p *Player) Back() error {
	last := len(p.state.History) - 1
	if last < 0 {
		return ErrNoHistory
	}
	p.state.CurrentNodeID = p.state.History[last].FromNodeID
	p.state.History = p.state.History[:last]
	return nil
}

// Restart returns to the start node with an empty history.
func (p *Player) Restart() {
	p.state.CurrentNodeID = p.doc.StartNodeID
	p.state.History = []models.HistoryEntry{}
}
