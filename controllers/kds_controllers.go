package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-pos/kds"
)

// LiveFeedController streams order events over a websocket.
type LiveFeedController struct {
	Hub      *kds.Hub
	upgrader websocket.Upgrader
}

func NewLiveFeedController(hub *kds.Hub, allowedOrigin string) *LiveFeedController {
	return &LiveFeedController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || strings.EqualFold(origin, allowedOrigin)
			},
		},
	}
}

// Subscribe -> endpoint WebSocket; admin menerima semua event order
func (lc *LiveFeedController) Subscribe(c *gin.Context) {
	actor := currentActor(c)
	if !actor.Authenticated() {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := lc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	lc.Hub.RegisterClient(ws, actor)

	// baca sampai client disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	lc.Hub.UnregisterClient(ws)
}
