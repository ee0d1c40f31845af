package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jps1990/Night-Shade-V2/internal/auth"
	"github.com/jps1990/Night-Shade-V2/internal/config"
	"github.com/jps1990/Night-Shade-V2/internal/metrics"
	"github.com/jps1990/Night-Shade-V2/internal/mw"
	"github.com/jps1990/Night-Shade-V2/internal/store"
	"github.com/jps1990/Night-Shade-V2/internal/ws"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, st *store.Store, hub *ws.Hub, bots ws.BotNotifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.CORS(cfg.Env))
	r.Use(metrics.GinMiddleware())
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": st.Online()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(st, cfg)

	api := r.Group("/api/v1")
	api.POST("/profile", h.SaveProfile)
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:id/messages", h.ListMessages)

	// 需要 Bearer Token 的写接口。
	authed := api.Group("")
	authed.Use(auth.Middleware(cfg.JWTSecret))
	authed.POST("/rooms", h.CreateRoom)
	authed.PATCH("/rooms/:id", h.UpdateRoom)
	authed.DELETE("/rooms/:id", h.DeleteRoom)

	r.GET("/ws", ws.Serve(hub, st, bots, cfg))

	return r
}
