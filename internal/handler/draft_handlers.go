package handler

import (
	"net/http"

	"story-maker/internal/middleware"

	"github.com/labstack/echo/v4"
)

func (h *StoryHandler) createDraft(c echo.Context) error {
	var req metadataRequest
	// An empty body is allowed.
	if c.Request().ContentLength != 0 {
		if apiErr := bindAndValidate(c, &req); apiErr != nil {
			return c.JSON(http.StatusBadRequest, apiErr)
		}
	}
	draft, err := h.editor.CreateDraft(c.Request().Context(), middleware.OwnerID(c), req.toUpdate())
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, draft)
}

func (h *StoryHandler) getDraft(c echo.Context) error {
	draft, err := h.editor.GetDraft(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *StoryHandler) deleteDraft(c echo.Context) error {
	if err := h.editor.DeleteDraft(c.Request().Context(), c.Param("id")); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) updateMetadata(c echo.Context) error {
	var req metadataRequest
	if apiErr := bindAndValidate(c, &req); apiErr != nil {
		return c.JSON(http.StatusBadRequest, apiErr)
	}
	draft, err := h.editor.UpdateMetadata(c.Request().Context(), c.Param("id"), req.toUpdate())
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *StoryHandler) createRoot(c echo.Context) error {
	draft, ids, err := h.editor.CreateRoot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draftResponse{Draft: draft, CreatedNodeIDs: ids})
}

func (h *StoryHandler) addSubchoices(c echo.Context) error {
	draft, ids, err := h.editor.AddSubchoices(c.Request().Context(), c.Param("id"), c.Param("nodeId"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draftResponse{Draft: draft, CreatedNodeIDs: ids})
}

func (h *StoryHandler) setEnding(c echo.Context) error {
	var req endingRequest
	if apiErr := bindAndValidate(c, &req); apiErr != nil {
		return c.JSON(http.StatusBadRequest, apiErr)
	}
	draft, err := h.editor.SetEnding(c.Request().Context(), c.Param("id"), c.Param("nodeId"), req.toEnding())
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *StoryHandler) clearEnding(c echo.Context) error {
	draft, err := h.editor.ClearEnding(c.Request().Context(), c.Param("id"), c.Param("nodeId"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *StoryHandler) updateNodeContent(c echo.Context) error {
	var req nodeContentRequest
	if apiErr := bindAndValidate(c, &req); apiErr != nil {
		return c.JSON(http.StatusBadRequest, apiErr)
	}
	draft, err := h.editor.UpdateNodeContent(c.Request().Context(), c.Param("id"), c.Param("nodeId"), req.toContent())
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *StoryHandler) deleteNode(c echo.Context) error {
	draft, err := h.editor.DeleteNode(c.Request().Context(), c.Param("id"), c.Param("nodeId"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *StoryHandler) exportDraft(c echo.Context) error {
	doc, err := h.editor.Export(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *StoryHandler) saveDraft(c echo.Context) error {
	doc, err := h.library.SaveDraft(c.Request().Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *StoryHandler) previewDraft(c echo.Context) error {
	view, err := h.player.StartPreview(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}
