// Package handler exposes the editor, library and player services over HTTP.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"story-maker/internal/importer"
	"story-maker/internal/metrics"
	"story-maker/internal/middleware"
	"story-maker/internal/models"
	"story-maker/internal/player"
	"story-maker/internal/service"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StoryHandler serves the /api routes.
type StoryHandler struct {
	editor   service.EditorService
	library  service.LibraryService
	player   service.PlayerService
	verifier *middleware.JWTVerifier
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStoryHandler creates the handler. A nil verifier leaves every request
// anonymous.
func NewStoryHandler(
	editor service.EditorService,
	library service.LibraryService,
	playerService service.PlayerService,
	verifier *middleware.JWTVerifier,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		editor:   editor,
		library:  library,
		player:   playerService,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("StoryHandler"),
	}
}

// RegisterRoutes mounts the API, health and metrics endpoints.
func (h *StoryHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api", middleware.OwnerAuth(h.verifier))

	drafts := api.Group("/drafts")
	{
		drafts.POST("", h.createDraft)
		drafts.GET("/:id", h.getDraft)
		drafts.DELETE("/:id", h.deleteDraft)
		drafts.PATCH("/:id/metadata", h.updateMetadata)
		drafts.POST("/:id/root", h.createRoot)
		drafts.POST("/:id/nodes/:nodeId/subchoices", h.addSubchoices)
		drafts.PUT("/:id/nodes/:nodeId/ending", h.setEnding)
		drafts.DELETE("/:id/nodes/:nodeId/ending", h.clearEnding)
		drafts.PATCH("/:id/nodes/:nodeId", h.updateNodeContent)
		drafts.DELETE("/:id/nodes/:nodeId", h.deleteNode)
		drafts.GET("/:id/export", h.exportDraft)
		drafts.POST("/:id/save", h.saveDraft)
		drafts.POST("/:id/preview", h.previewDraft)
	}

	stories := api.Group("/stories")
	{
		stories.POST("/import", h.importStory)
		stories.GET("", h.listStories)
		stories.GET("/:id", h.getStory)
		stories.GET("/:id/download", h.downloadStory)
		stories.DELETE("/:id", h.deleteStory)
		stories.POST("/:id/edit", h.editStory)
	}

	play := api.Group("/play")
	{
		play.POST("", h.startPlay)
		play.GET("/:sessionId", h.getPlay)
		play.POST("/:sessionId/choose", h.choose)
		play.POST("/:sessionId/back", h.back)
		play.POST("/:sessionId/restart", h.restart)
		play.GET("/:sessionId/reveal", h.reveal)
	}
}

// bindAndValidate decodes the body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) *APIError {
	if err := c.Bind(req); err != nil {
		return &APIError{Message: "Invalid request body", Code: "invalid_body"}
	}
	if err := c.Validate(req); err != nil {
		return &APIError{Message: err.Error(), Code: "invalid_request"}
	}
	return nil
}

// handleServiceError maps service and domain errors onto HTTP responses.
func (h *StoryHandler) handleServiceError(c echo.Context, err error) error {
	var verr *models.ValidationError
	var status int
	apiErr := APIError{Message: err.Error()}

	switch {
	case errors.Is(err, importer.ErrMalformedJSON):
		status, apiErr.Code = http.StatusBadRequest, "malformed_json"
	case errors.Is(err, importer.ErrUnsupportedFormat):
		status, apiErr.Code = http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, importer.ErrTooLarge):
		status, apiErr.Code = http.StatusBadRequest, "too_large"
	case errors.As(err, &verr):
		status = validationStatus(verr.Code)
		apiErr.Code = string(verr.Code)
		apiErr.NodeID = verr.NodeID
		apiErr.Field = verr.Field
	case errors.Is(err, models.ErrInvalidInput):
		status, apiErr.Code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, player.ErrInvalidChoiceIndex):
		status, apiErr.Code = http.StatusBadRequest, "invalid_choice_index"
	case errors.Is(err, player.ErrStoryEnded):
		status, apiErr.Code = http.StatusConflict, "story_ended"
	case errors.Is(err, player.ErrNoHistory):
		status, apiErr.Code = http.StatusConflict, "no_history"
	case errors.Is(err, player.ErrEmptyStory):
		status, apiErr.Code = http.StatusConflict, "empty_story"
	case errors.Is(err, models.ErrStoryNotFound):
		status, apiErr.Code = http.StatusNotFound, "story_not_found"
	case errors.Is(err, models.ErrDraftNotFound):
		status, apiErr.Code = http.StatusNotFound, "draft_not_found"
	case errors.Is(err, models.ErrSessionExpired):
		status, apiErr.Code = http.StatusNotFound, "session_expired"
	case errors.Is(err, models.ErrNotFound):
		status, apiErr.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrUnauthorized):
		status, apiErr.Code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, models.ErrForbidden):
		status, apiErr.Code = http.StatusForbidden, "forbidden"
	default:
		h.logger.Error("Unhandled service error",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error", Code: "internal_error"}
	}
	return c.JSON(status, apiErr)
}

// validationStatus: missing fields are the caller's input problem, unknown
// nodes are 404, everything else is a structural conflict.
func validationStatus(code models.ValidationCode) int {
	switch code {
	case models.CodeMissingTitle, models.CodeMissingStartText, models.CodeMissingLabel, models.CodeMissingStartNode:
		return http.StatusBadRequest
	case models.CodeNodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

func attachmentHeader(filename string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", "story.json", url.PathEscape(filename))
}
