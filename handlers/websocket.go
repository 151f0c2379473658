package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Jayabed45/unihub-sub000/services"
	"github.com/Jayabed45/unihub-sub000/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboards are served from a different origin than the API
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *services.Hub
	logger *utils.Logger
}

func NewWebSocketHandler(hub *services.Hub, logger *utils.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// Serve handles GET /ws, upgrading the request and running the
// connection until the client goes away
func (h *WebSocketHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	h.hub.HandleConnection(conn)
}
