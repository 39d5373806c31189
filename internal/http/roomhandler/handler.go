package roomhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RoomStatusSource is the registry read the probe delegates to. It is the
// same read backing the "check-room" WS event.
type RoomStatusSource interface {
	Exists(roomID string) bool
	CanJoin(roomID string) bool
}

type Handler struct {
	src RoomStatusSource
}

func New(src RoomStatusSource) *Handler { return &Handler{src: src} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/rooms/:id/status", h.status)
}

// status lets the landing page decide whether a room code is joinable
// before opening a websocket.
func (h *Handler) status(c *gin.Context) {
	var q RoomStatusQuery
	if err := c.ShouldBindUri(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, RoomStatusResponse{
		Exists:  h.src.Exists(q.RoomID),
		CanJoin: h.src.CanJoin(q.RoomID),
	})
}
