package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/homebites/feed"
	"github.com/yeremiapane/homebites/middlewares"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type FeedController struct {
	Hub      *feed.Hub
	upgrader websocket.Upgrader
}

// NewFeedController accepts handshakes from allowedOrigins. "*" or an empty
// list accepts any origin.
func NewFeedController(hub *feed.Hub, allowedOrigins []string) *FeedController {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAny := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = true
	}
	return &FeedController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAny || origin == "" || allowed[origin]
			},
		},
	}
}

// OrdersFeed upgrades an admin connection and streams order events until
// the client goes away.
func (fc *FeedController) OrdersFeed(c *gin.Context) {
	user := middlewares.CurrentUser(c)
	if err := services.RequireRole(user, models.RoleAdmin); err != nil {
		utils.RespondError(c, err)
		return
	}

	ws, err := fc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithField("user_id", user.ID).Warnf("feed: upgrade failed: %v", err)
		return
	}
	fc.Hub.Register(ws, user)
	defer fc.Hub.Unregister(ws)

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(pongWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Client messages are ignored; reading detects disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
