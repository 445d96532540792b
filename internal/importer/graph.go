package importer

import (
	"fmt"
	"strings"

	"story-maker/internal/models"
)

// ForeignNode is a vertex of the external graph format.
type ForeignNode struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// ForeignLink is a labeled directed edge of the external graph format.
type ForeignLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// ForeignGraph is the {nodes[], links[]} input shape.
type ForeignGraph struct {
	Title       string        `json:"title,omitempty"`
	Author      string        `json:"author,omitempty"`
	Description string        `json:"description,omitempty"`
	Nodes       []ForeignNode `json:"nodes"`
	Links       []ForeignLink `json:"links"`
}

// WarningKind classifies what the conversion changed.
type WarningKind string

const (
	WarningDuplicated   WarningKind = "duplicated"
	WarningDanglingLink WarningKind = "dangling_link"
	WarningBackLink     WarningKind = "back_link"
	WarningExtraLink    WarningKind = "extra_link"
	WarningDuplicateID  WarningKind = "duplicate_id"
)

// Warning reports one lossy or duplicating step of a graph conversion.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	ForeignID string      `json:"foreignId"`
	Message   string      `json:"message"`
}

// ConvertGraph converts a labeled graph into a binary tree rooted at "start".
// A node reachable along several paths is converted once per path, so shared
// targets come out duplicated instead of merged.
func (im *Importer) ConvertGraph(g ForeignGraph) (*Result, error) {
	c := &conversion{
		im:       im,
		byID:     make(map[string]ForeignNode, len(g.Nodes)),
		outgoing: make(map[string][]ForeignLink),
		uses:     make(map[string]int),
	}
	var nodes []ForeignNode
	for _, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			continue
		}
		if _, dup := c.byID[n.ID]; dup {
			c.warn(WarningDuplicateID, n.ID, "node id appears more than once; first occurrence kept")
			continue
		}
		c.byID[n.ID] = n
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrUnsupportedFormat)
	}
	for _, l := range g.Links {
		c.outgoing[l.Source] = append(c.outgoing[l.Source], l)
	}

	now := im.now().UTC()
	c.doc = &models.StoryDocument{
		ID: "story-" + im.newID(),
		Metadata: models.Metadata{
			Title:       firstNonEmpty(g.Title, DefaultTitle),
			Author:      firstNonEmpty(g.Author, models.DefaultAuthor),
			Description: firstNonEmpty(g.Description, DefaultDescription),
			Theme:       im.theme,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Nodes:       make(map[string]*models.Node),
		StartNodeID: models.StartNodeID,
	}

	// The root follows the same ending rules as every other node, so a root
	// without usable links becomes an ending start.
	root := selectRoot(nodes, g.Links)
	if err := c.convertNode(root, models.StartNodeID, "", map[string]bool{}); err != nil {
		return nil, err
	}
	if start := c.doc.Nodes[models.StartNodeID]; !start.IsEnding() {
		start.Emoji = models.StartEmoji
		start.Text = firstNonEmpty(root.Content, root.Title, DefaultStartText)
	}

	if err := models.VerifyTree(c.doc); err != nil {
		return nil, fmt.Errorf("conversion produced an invalid tree: %w", err)
	}
	return &Result{Document: c.doc, Format: FormatGraph, Warnings: c.warnings}, nil
}

// selectRoot picks, in order: an id containing "start" (any case) or equal to
// "S1"; the first node that no link targets; the first node.
func selectRoot(nodes []ForeignNode, links []ForeignLink) ForeignNode {
	for _, n := range nodes {
		if n.ID == "S1" || strings.Contains(strings.ToLower(n.ID), "start") {
			return n
		}
	}
	targets := make(map[string]bool, len(links))
	for _, l := range links {
		targets[l.Target] = true
	}
	for _, n := range nodes {
		if !targets[n.ID] {
			return n
		}
	}
	return nodes[0]
}

type conversion struct {
	im       *Importer
	byID     map[string]ForeignNode
	outgoing map[string][]ForeignLink
	uses     map[string]int
	doc      *models.StoryDocument
	warnings []Warning
}

func (c *conversion) warn(kind WarningKind, foreignID, msg string) {
	c.warnings = append(c.warnings, Warning{Kind: kind, ForeignID: foreignID, Message: msg})
}

// usableLinks filters the outgoing links of a foreign node: unknown targets
// and links back onto the current path are dropped, and only the first two
// remaining links are kept.
func (c *conversion) usableLinks(foreignID string, path map[string]bool) []ForeignLink {
	var kept []ForeignLink
	for _, l := range c.outgoing[foreignID] {
		if _, ok := c.byID[l.Target]; !ok {
			c.warn(WarningDanglingLink, foreignID, fmt.Sprintf("link to unknown node %q skipped", l.Target))
			continue
		}
		if path[l.Target] {
			c.warn(WarningBackLink, foreignID, fmt.Sprintf("link back to %q would form a cycle; skipped", l.Target))
			continue
		}
		if len(kept) == models.MaxChoices {
			c.warn(WarningExtraLink, foreignID, fmt.Sprintf("only %d choices per node are kept; link to %q skipped", models.MaxChoices, l.Target))
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func (c *conversion) internalID(foreignID string) string {
	c.uses[foreignID]++
	n := c.uses[foreignID]
	id := "choice-" + foreignID
	if n > 1 {
		c.warn(WarningDuplicated, foreignID, fmt.Sprintf("node reached by %d paths; converted as a separate copy", n))
		id = fmt.Sprintf("choice-%s-%d", foreignID, n)
	}
	for i := n + 1; c.doc.Nodes[id] != nil; i++ {
		id = fmt.Sprintf("choice-%s-%d", foreignID, i)
	}
	return id
}

func (c *conversion) addChoices(parent *models.Node, foreignID string, path map[string]bool) error {
	for i, l := range c.usableLinks(foreignID, path) {
		target := c.byID[l.Target]
		childID := c.internalID(target.ID)
		letter := models.LetterAt(i)
		label := strings.TrimSpace(l.Label)
		if label == "" {
			label = fmt.Sprintf("선택지 %d", i+1)
		}
		parent.Choices = append(parent.Choices, models.Choice{
			Label:  label,
			Emoji:  models.ChoiceEmoji(letter),
			NextID: childID,
			Letter: letter,
		})
		if err := c.convertNode(target, childID, letter, path); err != nil {
			return err
		}
	}
	return nil
}

func (c *conversion) convertNode(f ForeignNode, id, letter string, path map[string]bool) error {
	if len(c.doc.Nodes) >= c.im.maxNodes {
		return fmt.Errorf("%w (%d)", ErrTooLarge, c.im.maxNodes)
	}

	path[f.ID] = true
	defer delete(path, f.ID)

	var links []ForeignLink
	ending := isEndingID(f.ID) || len(c.outgoing[f.ID]) == 0
	if !ending {
		links = c.usableLinks(f.ID, path)
		ending = len(links) == 0
	}

	if ending {
		c.doc.Nodes[id] = &models.Node{
			ID:    id,
			Type:  models.NodeTypeEnding,
			Emoji: models.EndingEmoji,
			Text:  firstNonEmpty(f.Content, f.Title, models.DefaultEndingText),
			Ending: &models.Ending{
				Title:   firstNonEmpty(f.Title, models.DefaultEndingTitle),
				Message: firstNonEmpty(f.Content, models.DefaultEndingText),
				Type:    GuessEndingType(f.Title + " " + f.Content),
			},
		}
		return nil
	}

	n := &models.Node{
		ID:      id,
		Type:    models.NodeTypeStory,
		Emoji:   models.ChoiceEmoji(letter),
		Text:    firstNonEmpty(f.Content, f.Title, DefaultStoryText),
		Choices: []models.Choice{},
	}
	c.doc.Nodes[id] = n
	return c.addChoices(n, f.ID, path)
}

func isEndingID(id string) bool {
	return strings.HasPrefix(id, "E_") || strings.Contains(strings.ToLower(id), "ending")
}

// GuessEndingType infers the kind of ending from its title and content.
func GuessEndingType(text string) models.EndingType {
	lower := strings.ToLower(text)
	for _, kw := range []string{"happy", "해피", "행복"} {
		if strings.Contains(lower, kw) {
			return models.EndingHappy
		}
	}
	for _, kw := range []string{"sad", "새드", "슬픔", "비극"} {
		if strings.Contains(lower, kw) {
			return models.EndingSad
		}
	}
	return models.EndingNeutral
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
