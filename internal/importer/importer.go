// Package importer turns external story files into StoryDocuments. Two
// shapes are accepted: the app's own document format, passed through after
// validation, and a general labeled graph ({nodes[], links[]}) that is
// converted into a binary tree.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"story-maker/internal/models"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported story format: expected a nodes/links graph or an app document")
	ErrMalformedJSON     = errors.New("malformed JSON")
	ErrTooLarge          = errors.New("converted story exceeds the node limit")
)

// Format names the detected input shape.
type Format string

const (
	FormatApp   Format = "app"
	FormatGraph Format = "nodes_links"
)

// DefaultMaxNodes bounds conversion of graphs whose shared subgraphs would be
// duplicated many times over.
const DefaultMaxNodes = 5000

// Defaults for synthesized metadata and text.
const (
	DefaultTitle       = "불러온 스토리"
	DefaultDescription = "외부에서 불러온 스토리입니다."
	DefaultStartText   = "스토리가 시작됩니다."
	DefaultStoryText   = "이야기가 계속됩니다."
)

// Result is a converted document together with everything the conversion
// had to drop or duplicate.
type Result struct {
	Document *models.StoryDocument `json:"document"`
	Format   Format                `json:"format"`
	Warnings []Warning             `json:"warnings,omitempty"`
}

// Importer converts external input. The zero value is not usable; use New.
type Importer struct {
	newID    func() string
	now      func() time.Time
	theme    string
	maxNodes int
}

// Option configures an Importer.
type Option func(*Importer)

// WithIDGenerator replaces the uuid-based story id source.
func WithIDGenerator(f func() string) Option {
	return func(im *Importer) { im.newID = f }
}

// WithClock replaces time.Now.
func WithClock(f func() time.Time) Option {
	return func(im *Importer) { im.now = f }
}

// WithTheme sets the theme of converted stories.
func WithTheme(theme string) Option {
	return func(im *Importer) {
		if models.IsKnownTheme(theme) {
			im.theme = theme
		}
	}
}

// WithMaxNodes sets the conversion node limit; values <= 0 keep the default.
func WithMaxNodes(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.maxNodes = n
		}
	}
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	im := &Importer{
		newID:    uuid.NewString,
		now:      time.Now,
		theme:    models.DefaultTheme,
		maxNodes: DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Parse detects the shape of raw JSON and converts it. No partial result is
// returned on error.
func (im *Importer) Parse(data []byte) (*Result, error) {
	if !json.Valid(data) {
		return nil, ErrMalformedJSON
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: top level is not an object", ErrUnsupportedFormat)
	}

	switch {
	case isAppFormat(top):
		var doc models.StoryDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if err := models.VerifyTree(&doc); err != nil {
			return nil, fmt.Errorf("app document rejected: %w", err)
		}
		if err := models.Validate(&doc); err != nil {
			return nil, fmt.Errorf("app document rejected: %w", err)
		}
		return &Result{Document: &doc, Format: FormatApp}, nil
	case isGraphFormat(top):
		var g ForeignGraph
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return im.ConvertGraph(g)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func isAppFormat(top map[string]json.RawMessage) bool {
	_, hasStart := top["startNodeId"]
	_, hasMeta := top["metadata"]
	return hasStart && hasMeta && firstByte(top["nodes"]) == '{'
}

func isGraphFormat(top map[string]json.RawMessage) bool {
	return firstByte(top["nodes"]) == '[' && firstByte(top["links"]) == '['
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
