package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"channelbuyer/internal/feed"
)

type StreamHandler struct {
	Feed   *feed.Hub
	Logger *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/ws/trades", h.trades)
}

// @Summary Live trade ledger feed over websocket
// @Tags trade
// @Router /ws/trades [get]
func (h *StreamHandler) trades(c *gin.Context) {
	if h.Feed == nil {
		Error(c, http.StatusInternalServerError, "feed unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := c.Request.Context()
	entries, cancel := h.Feed.Subscribe(32)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case entry, ok := <-entries:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, entry); err != nil {
				if h.Logger != nil {
					h.Logger.Debug("trade feed write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
