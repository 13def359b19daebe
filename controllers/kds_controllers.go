package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/utils"
)

// KDSController upgrades kitchen displays and dashboards to the realtime feed.
type KDSController struct {
	Evaluator *permissions.Evaluator
	upgrader  websocket.Upgrader
}

// NewKDSController accepts handshakes from any origin when allowed is empty.
func NewKDSController(ev *permissions.Evaluator, allowed []string) *KDSController {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return &KDSController{
		Evaluator: ev,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return len(origins) == 0 || origins[r.Header.Get("Origin")]
			},
		},
	}
}

// KDSHandler admits roles that can view the kitchen or the dashboard.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	subject := middlewares.CurrentSubject(c)
	if !kc.Evaluator.Check(c.Request.Context(), subject, "GET /ws/kds",
		permissions.KitchenViewOrders, permissions.AnalyticsViewDashboard) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}
	kds.RegisterClient(ws, string(subject.Role))
	utils.InfoLogger.Printf("KDS client connected: user=%d role=%s (%d connected)", subject.UserID, subject.Role, kds.ClientCount())

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(kds.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(kds.PongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kds.UnregisterClient(ws)
	utils.InfoLogger.Printf("KDS client disconnected: user=%d", subject.UserID)
}
