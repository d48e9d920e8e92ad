package api

import (
	"net/http"
	"strings"
	"time"

	"funplanet-backend/internal/service"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsRoutes struct {
	notifier *service.Notifier
	a        *auth.BearerAuth
}

func NewWSRoutes(handler *gin.RouterGroup, notifier *service.Notifier, a *auth.BearerAuth) {
	r := &wsRoutes{notifier: notifier, a: a}
	handler.GET("/ws/claims", r.ClaimStream)
}

// ClaimStream pushes claim status events to the authenticated user. Browsers
// cannot set headers on websocket dials, so the token is also accepted as a
// query parameter.
func (r *wsRoutes) ClaimStream(c *gin.Context) {
	log := logger.Logger()

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	user, err := r.a.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events := r.notifier.Subscribe(user.ID)
	defer r.notifier.Unsubscribe(user.ID, events)

	// Reader drains control frames and signals the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				log.Error("failed to marshal claim event", zap.Error(err))
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
