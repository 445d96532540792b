package models

import (
	"time"
)

// NodeType distinguishes a regular story beat from an ending.
type NodeType string

const (
	NodeTypeStory  NodeType = "story"
	NodeTypeEnding NodeType = "ending"
)

// EndingType is the kind of conclusion an ending node carries.
type EndingType string

const (
	EndingHappy   EndingType = "happy"
	EndingSad     EndingType = "sad"
	EndingNeutral EndingType = "neutral"
)

// Valid reports whether t is one of the known ending kinds.
func (t EndingType) Valid() bool {
	switch t {
	case EndingHappy, EndingSad, EndingNeutral:
		return true
	}
	return false
}

const (
	// StartNodeID is the conventional id of the traversal root.
	StartNodeID = "start"
	// MaxChoices is the fan-out of every decision point.
	MaxChoices = 2
	// MaxImageBytes limits the size of an inline image reference (data URI).
	MaxImageBytes = 2 * 1024 * 1024
)

// Letters of the two sibling choices, in order.
const (
	LetterA = "a"
	LetterB = "b"
)

// Metadata describes a story as a whole.
type Metadata struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Theme       string    `json:"theme"`
	OwnerID     string    `json:"ownerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Choice is a labeled edge from a story node to exactly one child node.
type Choice struct {
	Label  string `json:"label"`
	Emoji  string `json:"emoji,omitempty"`
	NextID string `json:"nextId"`
	Letter string `json:"letter,omitempty"`
}

// Ending holds the typed conclusion of an ending node.
type Ending struct {
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Type    EndingType `json:"type"`
	Image   string     `json:"image,omitempty"`
}

// Node is one narrative beat. A story node carries up to two choices,
// an ending node carries an Ending and no choices.
type Node struct {
	ID      string   `json:"id"`
	Type    NodeType `json:"type"`
	Text    string   `json:"text"`
	Image   string   `json:"image"`
	Emoji   string   `json:"emoji,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
	Ending  *Ending  `json:"ending,omitempty"`
}

// IsEnding reports whether the node is a terminal ending.
func (n *Node) IsEnding() bool {
	return n != nil && n.Type == NodeTypeEnding
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Choices != nil {
		c.Choices = make([]Choice, len(n.Choices))
		copy(c.Choices, n.Choices)
	}
	if n.Ending != nil {
		e := *n.Ending
		c.Ending = &e
	}
	return &c
}

// StoryDocument is the canonical story: metadata plus a flat id → node map
// rooted at StartNodeID. Parent/child links exist only through Choice.NextID.
type StoryDocument struct {
	ID          string           `json:"id"`
	Metadata    Metadata         `json:"metadata"`
	Nodes       map[string]*Node `json:"nodes"`
	StartNodeID string           `json:"startNodeId"`
}

// Clone returns a deep copy of the document.
func (d *StoryDocument) Clone() *StoryDocument {
	if d == nil {
		return nil
	}
	c := &StoryDocument{
		ID:          d.ID,
		Metadata:    d.Metadata,
		StartNodeID: d.StartNodeID,
		Nodes:       make(map[string]*Node, len(d.Nodes)),
	}
	for id, n := range d.Nodes {
		c.Nodes[id] = n.Clone()
	}
	return c
}

// NewStoryNode creates an empty story node.
func NewStoryNode(id string) *Node {
	return &Node{ID: id, Type: NodeTypeStory, Choices: []Choice{}}
}
