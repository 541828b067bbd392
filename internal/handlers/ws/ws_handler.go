// internal/handlers/ws/ws_handler.go
package ws

import (
	"net/http"

	"malipo-service/internal/events"
	"malipo-service/internal/middleware"
	"malipo-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard origins are enforced at the gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub    *events.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *events.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Connect upgrades to a websocket and streams the organization's billing
// events until the connection drops.
func (h *WSHandler) Connect(c *gin.Context) {
	orgID := middleware.MustGetOrganizationID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "websocket upgrade failed", err)
		return
	}

	client := events.NewClient(h.hub, conn, orgID)
	go client.Serve()
}
