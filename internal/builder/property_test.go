package builder_test

import (
	"reflect"
	"testing"

	"story-maker/internal/builder"
	"story-maker/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// applyOp decodes one step of a random edit script and runs it against b.
func applyOp(b *builder.Builder, step int) error {
	doc := b.Document()
	ids := models.SortedNodeIDs(doc)
	target := ids[(step/5)%len(ids)]
	switch step % 5 {
	case 0:
		_, err := b.AddSubchoices(target)
		return err
	case 1:
		return b.SetEnding(target, builder.EndingData{Title: "끝", Type: models.EndingSad})
	case 2:
		return b.ClearEnding(target)
	case 3:
		return b.DeleteNode(target)
	default:
		label := "선택"
		return b.UpdateNodeContent(target, builder.NodeContent{Label: &label})
	}
}

// Any sequence of edits keeps a rooted binary tree, and a refused edit leaves
// the document exactly as it was.
func TestEditScriptsKeepTreeShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("document stays a tree after every edit", prop.ForAll(
		func(script []int) bool {
			b := newTestBuilder()
			for _, step := range script {
				before := b.Document()
				if err := applyOp(b, step); err != nil {
					if !reflect.DeepEqual(before, b.Document()) {
						return false
					}
					continue
				}
				if models.VerifyTree(b.Document()) != nil {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.Property("export output is a valid tree without unfinished leaves", prop.ForAll(
		func(script []int) bool {
			b := newTestBuilder()
			title, text := "제목", "시작"
			b.SetMetadata(builder.MetadataUpdate{Title: &title})
			if err := b.UpdateNodeContent("start", builder.NodeContent{Text: &text}); err != nil {
				return false
			}
			for _, step := range script {
				_ = applyOp(b, step)
			}
			label := "선택"
			for _, id := range models.SortedNodeIDs(b.Document()) {
				if id != models.StartNodeID {
					_ = b.UpdateNodeContent(id, builder.NodeContent{Label: &label})
				}
			}
			out, err := b.Export()
			if err != nil {
				return false
			}
			if models.VerifyTree(out) != nil || models.Validate(out) != nil {
				return false
			}
			for _, n := range out.Nodes {
				if n.Type == models.NodeTypeStory && len(n.Choices) == 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.TestingRun(t)
}
