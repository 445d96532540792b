package handler

import (
	"io"
	"net/http"
	"strings"

	"story-maker/internal/middleware"

	"github.com/labstack/echo/v4"
)

// maxImportBytes bounds an uploaded story file.
const maxImportBytes = 10 << 20

func (h *StoryHandler) importStory(c echo.Context) error {
	data, err := readImportBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error(), Code: "invalid_body"})
	}
	res, err := h.library.ImportStory(c.Request().Context(), middleware.OwnerID(c), data)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// readImportBody accepts either a raw JSON body or a multipart form with a
// "file" field.
func readImportBody(c echo.Context) ([]byte, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportBytes))
	}
	return io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes))
}

func (h *StoryHandler) listStories(c echo.Context) error {
	docs, err := h.library.ListStories(c.Request().Context(), c.QueryParam("owner"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	out := make([]StorySummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, summarize(doc))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StoryHandler) getStory(c echo.Context) error {
	doc, err := h.library.GetStory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *StoryHandler) downloadStory(c echo.Context) error {
	dl, err := h.library.DownloadStory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachmentHeader(dl.Filename))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, dl.Body)
}

func (h *StoryHandler) deleteStory(c echo.Context) error {
	if err := h.library.DeleteStory(c.Request().Context(), c.Param("id"), middleware.OwnerID(c)); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) editStory(c echo.Context) error {
	draft, err := h.library.EditStory(c.Request().Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, draft)
}
