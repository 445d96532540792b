package importer_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"story-maker/internal/builder"
	"story-maker/internal/importer"
	"story-maker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestImporter(opts ...importer.Option) *importer.Importer {
	base := []importer.Option{
		importer.WithIDGenerator(func() string { return "fixed" }),
		importer.WithClock(func() time.Time { return fixedNow }),
	}
	return importer.New(append(base, opts...)...)
}

func kinds(ws []importer.Warning) []importer.WarningKind {
	out := make([]importer.WarningKind, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Kind)
	}
	return out
}

func TestParseDiamond(t *testing.T) {
	input := `{
		"title": "다이아몬드",
		"nodes": [
			{"id": "A", "content": "시작"},
			{"id": "B", "content": "왼쪽"},
			{"id": "C", "content": "오른쪽"},
			{"id": "D", "title": "행복한 결말", "content": "모두 만났다"}
		],
		"links": [
			{"source": "A", "target": "B", "label": "왼쪽으로"},
			{"source": "A", "target": "C", "label": "오른쪽으로"},
			{"source": "B", "target": "D"},
			{"source": "C", "target": "D"}
		]
	}`

	res, err := newTestImporter().Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, importer.FormatGraph, res.Format)

	doc := res.Document
	assert.Equal(t, "story-fixed", doc.ID)
	assert.Equal(t, "다이아몬드", doc.Metadata.Title)
	assert.Equal(t, models.DefaultAuthor, doc.Metadata.Author)
	assert.Equal(t, importer.DefaultDescription, doc.Metadata.Description)
	require.NoError(t, models.VerifyTree(doc))
	require.NoError(t, models.Validate(doc))

	start := doc.Nodes["start"]
	assert.Equal(t, "시작", start.Text)
	require.Len(t, start.Choices, 2)
	assert.Equal(t, "왼쪽으로", start.Choices[0].Label)
	assert.Equal(t, "choice-B", start.Choices[0].NextID)
	assert.Equal(t, "choice-C", start.Choices[1].NextID)

	left := doc.Nodes["choice-B"].Choices
	right := doc.Nodes["choice-C"].Choices
	require.Len(t, left, 1)
	require.Len(t, right, 1)
	assert.Equal(t, "선택지 1", left[0].Label)
	assert.NotEqual(t, left[0].NextID, right[0].NextID)
	for _, id := range []string{left[0].NextID, right[0].NextID} {
		d := doc.Nodes[id]
		require.NotNil(t, d)
		assert.True(t, d.IsEnding())
		assert.Equal(t, "행복한 결말", d.Ending.Title)
		assert.Equal(t, "모두 만났다", d.Ending.Message)
		assert.Equal(t, models.EndingHappy, d.Ending.Type)
	}
	assert.Len(t, doc.Nodes, 5)
	assert.Contains(t, kinds(res.Warnings), importer.WarningDuplicated)
}

func TestRootSelection(t *testing.T) {
	t.Run("Id containing start wins", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "intro", Content: "intro"}, {ID: "Story_START", Content: "여기서 시작"}},
			Links: []importer.ForeignLink{{Source: "Story_START", Target: "intro"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		assert.Equal(t, "여기서 시작", res.Document.Nodes["start"].Text)
	})

	t.Run("S1 wins", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "X", Content: "x"}, {ID: "S1", Content: "s1"}},
			Links: []importer.ForeignLink{{Source: "S1", Target: "X"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		assert.Equal(t, "s1", res.Document.Nodes["start"].Text)
	})

	t.Run("First untargeted node", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "n2", Content: "two"}, {ID: "n1", Content: "one"}},
			Links: []importer.ForeignLink{{Source: "n1", Target: "n2"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		assert.Equal(t, "one", res.Document.Nodes["start"].Text)
	})

	t.Run("Everything targeted falls back to first node", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "p"}, {ID: "q", Content: "q"}},
			Links: []importer.ForeignLink{{Source: "p", Target: "q"}, {Source: "q", Target: "p"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		doc := res.Document
		assert.Equal(t, importer.DefaultStartText, doc.Nodes["start"].Text)
		require.NoError(t, models.VerifyTree(doc))
		// q's only link returns to the root, so q becomes an ending.
		assert.True(t, doc.Nodes["choice-q"].IsEnding())
		assert.Contains(t, kinds(res.Warnings), importer.WarningBackLink)
	})
}

func TestRootEnding(t *testing.T) {
	t.Run("Root without links", func(t *testing.T) {
		res, err := newTestImporter().Parse([]byte(`{"nodes":[{"id":"only","title":"Happy end","content":"행복"}],"links":[]}`))
		require.NoError(t, err)
		doc := res.Document
		require.Len(t, doc.Nodes, 1)
		start := doc.Nodes["start"]
		require.True(t, start.IsEnding())
		assert.Empty(t, start.Choices)
		assert.Equal(t, "행복", start.Text)
		assert.Equal(t, "Happy end", start.Ending.Title)
		assert.Equal(t, models.EndingHappy, start.Ending.Type)
		require.NoError(t, models.VerifyTree(doc))
		require.NoError(t, models.Validate(doc))
	})

	t.Run("Ending id at the root", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "E_start", Content: "비극"}, {ID: "next"}},
			Links: []importer.ForeignLink{{Source: "E_start", Target: "next"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		start := res.Document.Nodes["start"]
		assert.True(t, start.IsEnding())
		assert.Equal(t, models.EndingSad, start.Ending.Type)
		assert.NotContains(t, res.Document.Nodes, "choice-next")
	})

	t.Run("Root whose links all dangle", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "r", Content: "끝"}},
			Links: []importer.ForeignLink{{Source: "r", Target: "ghost"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		assert.True(t, res.Document.Nodes["start"].IsEnding())
		assert.Contains(t, kinds(res.Warnings), importer.WarningDanglingLink)
	})

	t.Run("Branching root keeps the start emoji", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "r"}, {ID: "a"}},
			Links: []importer.ForeignLink{{Source: "r", Target: "a"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		start := res.Document.Nodes["start"]
		assert.Equal(t, models.NodeTypeStory, start.Type)
		assert.Equal(t, models.StartEmoji, start.Emoji)
		assert.Equal(t, importer.DefaultStartText, start.Text)
	})
}

func TestConvertGraphLinks(t *testing.T) {
	t.Run("Only two links are kept", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "r"}, {ID: "a"}, {ID: "b"}, {ID: "c"}},
			Links: []importer.ForeignLink{
				{Source: "r", Target: "a"}, {Source: "r", Target: "b"}, {Source: "r", Target: "c"},
			},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		start := res.Document.Nodes["start"]
		require.Len(t, start.Choices, 2)
		assert.Equal(t, models.LetterA, start.Choices[0].Letter)
		assert.Equal(t, "⭐", start.Choices[0].Emoji)
		assert.Equal(t, "💫", start.Choices[1].Emoji)
		assert.NotContains(t, res.Document.Nodes, "choice-c")
		assert.Contains(t, kinds(res.Warnings), importer.WarningExtraLink)
	})

	t.Run("Unknown target is skipped", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "r"}, {ID: "a"}},
			Links: []importer.ForeignLink{{Source: "r", Target: "ghost"}, {Source: "r", Target: "a"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		start := res.Document.Nodes["start"]
		require.Len(t, start.Choices, 1)
		assert.Equal(t, "choice-a", start.Choices[0].NextID)
		assert.Contains(t, kinds(res.Warnings), importer.WarningDanglingLink)
	})

	t.Run("Ending ids stop descent", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "r"}, {ID: "E_bad", Title: "새드 엔딩"}, {ID: "after"}},
			Links: []importer.ForeignLink{{Source: "r", Target: "E_bad"}, {Source: "E_bad", Target: "after"}},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		end := res.Document.Nodes["choice-E_bad"]
		require.NotNil(t, end)
		assert.True(t, end.IsEnding())
		assert.Equal(t, models.EndingSad, end.Ending.Type)
		assert.Equal(t, models.DefaultEndingText, end.Ending.Message)
		assert.NotContains(t, res.Document.Nodes, "choice-after")
	})

	t.Run("Cycle terminates", func(t *testing.T) {
		g := importer.ForeignGraph{
			Nodes: []importer.ForeignNode{{ID: "start"}, {ID: "a"}, {ID: "b"}},
			Links: []importer.ForeignLink{
				{Source: "start", Target: "a"}, {Source: "a", Target: "b"}, {Source: "b", Target: "a"},
			},
		}
		res, err := newTestImporter().ConvertGraph(g)
		require.NoError(t, err)
		require.NoError(t, models.VerifyTree(res.Document))
		assert.True(t, res.Document.Nodes["choice-b"].IsEnding())
	})

	t.Run("Too large", func(t *testing.T) {
		// A ladder of diamonds doubles the converted size at every rung.
		var g importer.ForeignGraph
		prev := "s0"
		g.Nodes = append(g.Nodes, importer.ForeignNode{ID: prev})
		for i := 1; i <= 20; i++ {
			l, r, next := fmt.Sprintf("l%d", i), fmt.Sprintf("r%d", i), fmt.Sprintf("s%d", i)
			g.Nodes = append(g.Nodes, importer.ForeignNode{ID: l}, importer.ForeignNode{ID: r}, importer.ForeignNode{ID: next})
			g.Links = append(g.Links,
				importer.ForeignLink{Source: prev, Target: l}, importer.ForeignLink{Source: prev, Target: r},
				importer.ForeignLink{Source: l, Target: next}, importer.ForeignLink{Source: r, Target: next},
			)
			prev = next
		}
		_, err := newTestImporter(importer.WithMaxNodes(100)).ConvertGraph(g)
		assert.ErrorIs(t, err, importer.ErrTooLarge)
	})

	t.Run("No nodes", func(t *testing.T) {
		_, err := newTestImporter().ConvertGraph(importer.ForeignGraph{})
		assert.ErrorIs(t, err, importer.ErrUnsupportedFormat)
	})
}

func TestParseFormats(t *testing.T) {
	t.Run("Malformed JSON", func(t *testing.T) {
		_, err := newTestImporter().Parse([]byte(`{"nodes": [`))
		assert.ErrorIs(t, err, importer.ErrMalformedJSON)
	})

	t.Run("Top-level array", func(t *testing.T) {
		_, err := newTestImporter().Parse([]byte(`[1, 2]`))
		assert.ErrorIs(t, err, importer.ErrUnsupportedFormat)
	})

	t.Run("Unknown shape", func(t *testing.T) {
		_, err := newTestImporter().Parse([]byte(`{"scenes": []}`))
		assert.ErrorIs(t, err, importer.ErrUnsupportedFormat)
	})

	t.Run("App document round trip", func(t *testing.T) {
		title, text, label := "왕복", "시작", "가자"
		b := builder.New(builder.WithClock(func() time.Time { return fixedNow }))
		b.SetMetadata(builder.MetadataUpdate{Title: &title})
		require.NoError(t, b.UpdateNodeContent("start", builder.NodeContent{Text: &text}))
		roots, err := b.CreateRoot()
		require.NoError(t, err)
		for _, r := range roots {
			require.NoError(t, b.UpdateNodeContent(r, builder.NodeContent{Label: &label}))
		}
		exported, err := b.Export()
		require.NoError(t, err)
		raw, err := json.Marshal(exported)
		require.NoError(t, err)

		res, err := newTestImporter().Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, importer.FormatApp, res.Format)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, exported, res.Document)
	})

	t.Run("App document that is not a tree", func(t *testing.T) {
		raw := `{
			"id": "story-1",
			"metadata": {"title": "t"},
			"startNodeId": "start",
			"nodes": {
				"start": {"id": "start", "type": "story", "text": "s", "choices": [{"label": "a", "nextId": "a"}]},
				"a": {"id": "a", "type": "story", "text": "a", "choices": [{"label": "back", "nextId": "start"}]}
			}
		}`
		_, err := newTestImporter().Parse([]byte(raw))
		assert.ErrorIs(t, err, models.ErrCycle)
	})
}

func TestGuessEndingType(t *testing.T) {
	assert.Equal(t, models.EndingHappy, importer.GuessEndingType("A HAPPY day"))
	assert.Equal(t, models.EndingHappy, importer.GuessEndingType("행복한 마무리"))
	assert.Equal(t, models.EndingSad, importer.GuessEndingType("비극적인 끝"))
	assert.Equal(t, models.EndingNeutral, importer.GuessEndingType("그냥 끝"))
}
