package handler

import (
	"time"

	"story-maker/internal/builder"
	"story-maker/internal/models"

	"github.com/go-playground/validator/v10"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	NodeID  string `json:"nodeId,omitempty"`
	Field   string `json:"field,omitempty"`
}

// RequestValidator plugs go-playground/validator into echo.Context.Validate.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *RequestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// --- Requests --- //

type metadataRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Author      *string `json:"author" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Theme       *string `json:"theme" validate:"omitempty,max=50"`
}

func (r metadataRequest) toUpdate() builder.MetadataUpdate {
	return builder.MetadataUpdate{
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		Theme:       r.Theme,
	}
}

type nodeContentRequest struct {
	Text  *string `json:"text" validate:"omitempty,max=20000"`
	Image *string `json:"image"`
	Label *string `json:"label" validate:"omitempty,max=200"`
	Emoji *string `json:"emoji" validate:"omitempty,max=32"`
}

func (r nodeContentRequest) toContent() builder.NodeContent {
	return builder.NodeContent{Text: r.Text, Image: r.Image, Label: r.Label, Emoji: r.Emoji}
}

type endingRequest struct {
	Title   string `json:"title" validate:"max=200"`
	Message string `json:"message" validate:"max=2000"`
	Type    string `json:"type" validate:"omitempty,oneof=happy sad neutral"`
	Image   string `json:"image"`
}

func (r endingRequest) toEnding() builder.EndingData {
	return builder.EndingData{
		Title:   r.Title,
		Message: r.Message,
		Type:    models.EndingType(r.Type),
		Image:   r.Image,
	}
}

type startPlayRequest struct {
	StoryID string `json:"storyId" validate:"required"`
}

type chooseRequest struct {
	Index *int `json:"index" validate:"required"`
}

// --- Responses --- //

type draftResponse struct {
	*models.Draft
	CreatedNodeIDs []string `json:"createdNodeIds,omitempty"`
}

// StorySummary is one row of the library listing.
type StorySummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Theme       string    `json:"theme"`
	OwnerID     string    `json:"ownerId,omitempty"`
	NodeCount   int       `json:"nodeCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func summarize(doc *models.StoryDocument) StorySummary {
	return StorySummary{
		ID:          doc.ID,
		Title:       doc.Metadata.Title,
		Author:      doc.Metadata.Author,
		Description: doc.Metadata.Description,
		Theme:       doc.Metadata.Theme,
		OwnerID:     doc.Metadata.OwnerID,
		NodeCount:   len(doc.Nodes),
		CreatedAt:   doc.Metadata.CreatedAt,
		UpdatedAt:   doc.Metadata.UpdatedAt,
	}
}
