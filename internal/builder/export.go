package builder

import (
	"fmt"
	"strings"

	"story-maker/internal/models"
)

// Export validates the document and returns a repaired copy ready to persist:
// empty fields get their defaults and every story leaf without an ending is
// given an implicit ending behind a single "다음" choice. The builder's own
// document is not changed, and exporting an exported document again yields
// the same shape.
func (b *Builder) Export() (*models.StoryDocument, error) {
	if err := models.Validate(b.doc); err != nil {
		return nil, err
	}
	out := b.doc.Clone()

	ids := models.SortedNodeIDs(out)
	for _, id := range ids {
		for _, c := range out.Nodes[id].Choices {
			if strings.TrimSpace(c.Label) == "" {
				return nil, models.NewValidationError(models.ErrMissingLabel, c.NextID)
			}
		}
	}

	b.applyDefaults(out)
	for _, id := range ids {
		n := out.Nodes[id]
		if n.Type == models.NodeTypeStory && len(n.Choices) == 0 {
			addImplicitEnding(out, n)
		}
	}

	now := b.now().UTC()
	if out.Metadata.CreatedAt.IsZero() {
		out.Metadata.CreatedAt = now
	}
	out.Metadata.UpdatedAt = now

	if err := models.VerifyTree(out); err != nil {
		return nil, fmt.Errorf("exported document is not a tree: %w", err)
	}
	return out, nil
}

func (b *Builder) applyDefaults(doc *models.StoryDocument) {
	m := &doc.Metadata
	m.Title = strings.TrimSpace(m.Title)
	if m.Author == "" {
		m.Author = models.DefaultAuthor
	}
	if !models.IsKnownTheme(m.Theme) {
		m.Theme = b.defaultTheme
	}

	for _, n := range doc.Nodes {
		switch n.Type {
		case models.NodeTypeEnding:
			if n.Text == "" {
				n.Text = models.DefaultEndingText
			}
			if n.Emoji == "" {
				n.Emoji = models.EndingEmoji
			}
			if n.Ending == nil {
				n.Ending = &models.Ending{}
			}
			if n.Ending.Title == "" {
				n.Ending.Title = models.DefaultEndingTitle
			}
			if !n.Ending.Type.Valid() {
				n.Ending.Type = models.EndingNeutral
			}
			n.Choices = nil
		default:
			n.Type = models.NodeTypeStory
			if n.Text == "" {
				n.Text = models.DefaultStoryText
			}
			if n.Emoji == "" {
				n.Emoji = models.StartEmoji
			}
			for i := range n.Choices {
				c := &n.Choices[i]
				if c.Emoji == "" {
					letter := c.Letter
					if letter == "" {
						letter = models.LetterAt(i)
					}
					c.Emoji = models.ChoiceEmoji(letter)
				}
			}
		}
	}
}

func addImplicitEnding(doc *models.StoryDocument, n *models.Node) {
	endID := models.ImplicitEndingPrefix + n.ID
	for i := 2; ; i++ {
		if _, taken := doc.Nodes[endID]; !taken {
			break
		}
		endID = fmt.Sprintf("%s%s-%d", models.ImplicitEndingPrefix, n.ID, i)
	}
	doc.Nodes[endID] = &models.Node{
		ID:    endID,
		Type:  models.NodeTypeEnding,
		Text:  models.DefaultEndingText,
		Emoji: models.EndingEmoji,
		Ending: &models.Ending{
			Title:   models.ImplicitEndingTitle,
			Message: models.ImplicitEndingMessage,
			Type:    models.EndingNeutral,
		},
	}
	n.Choices = []models.Choice{{
		Label:  models.ImplicitChoiceLabel,
		Emoji:  models.ImplicitChoiceEmoji,
		NextID: endID,
	}}
}
