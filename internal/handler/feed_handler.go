package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	ws "github.com/stemsi/quizdesk/internal/websocket"
)

// FeedHandler streams result log changes over a WebSocket.
type FeedHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewFeedHandler(hub *ws.Hub, allowedOrigins []string, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
		log:      log.With().Str("component", "feed_handler").Logger(),
	}
}

// ResultsFeed godoc
// WS /ws/results
func (h *FeedHandler) ResultsFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.hub.Serve(conn)
}
