package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/internal/middleware"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
)

// StreamController upgrades admin dashboards to a websocket that receives analytics events.
type StreamController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewStreamController(hub *ws.Hub, allowedOrigins []string) *StreamController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &StreamController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 같은 출처 요청(브라우저 외 클라이언트)은 Origin이 비어 있음
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Connect GET /api/v1/analytics/stream
func (ctrl *StreamController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, uuid.NewString())
	ctrl.hub.Register(client)

	go client.Deliver()
	go client.Listen()

	userID, _ := middleware.GetUserID(c)
	log.Info("WebSocket connection established", map[string]interface{}{
		"client_id": client.ID,
		"user_id":   userID,
	})
}
