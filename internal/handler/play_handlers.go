package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

func (h *StoryHandler) startPlay(c echo.Context) error {
	var req startPlayRequest
	if apiErr := bindAndValidate(c, &req); apiErr != nil {
		return c.JSON(http.StatusBadRequest, apiErr)
	}
	view, err := h.player.StartStory(c.Request().Context(), req.StoryID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *StoryHandler) getPlay(c echo.Context) error {
	view, err := h.player.GetSession(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *StoryHandler) choose(c echo.Context) error {
	var req chooseRequest
	if apiErr := bindAndValidate(c, &req); apiErr != nil {
		return c.JSON(http.StatusBadRequest, apiErr)
	}
	view, err := h.player.Choose(c.Request().Context(), c.Param("sessionId"), *req.Index)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *StoryHandler) back(c echo.Context) error {
	view, err := h.player.Back(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *StoryHandler) restart(c echo.Context) error {
	view, err := h.player.Restart(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// reveal streams the current node's text as JSON frames over a websocket.
// The stream stops when the client goes away or the last frame is sent.
func (h *StoryHandler) reveal(c echo.Context) error {
	sessionID := c.Param("sessionId")
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	frames, err := h.player.Reveal(ctx, sessionID)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.logger.Warn("Failed to upgrade reveal connection", zap.String("sessionID", sessionID), zap.Error(err))
		return nil
	}
	defer conn.Close()
	log := h.logger.With(zap.String("sessionID", sessionID))

	// Reading is only needed to notice the client closing the socket.
	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for frame := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Debug("Reveal client gone", zap.Error(err))
			cancel()
			return nil
		}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	return nil
}
