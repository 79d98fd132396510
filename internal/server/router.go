package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"chatsync/internal/auth"
	"chatsync/internal/config"
	"chatsync/internal/metrics"
	"chatsync/internal/mw"
	"chatsync/internal/service"
	"chatsync/internal/store"
)

// SetupRouter 统一初始化中间件和 REST API。
func SetupRouter(cfg config.Config, gdb *gorm.DB) *gin.Engine {
	st := store.New(gdb)
	users := service.NewUserService(st, cfg)
	rooms := service.NewRoomService(st)
	msgs := service.NewMessageService(st)
	h := NewHandler(users, rooms, msgs)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.RequestID())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.AllowedOrigins))
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/renew/access", h.RenewAccess)
	r.POST("/auth/renew/refresh", h.RenewRefresh)

	// 房间列表是公开资源，允许匿名读取。
	r.GET("/rooms", h.ListRooms)

	authed := r.Group("")
	authed.Use(auth.Middleware(cfg))

	authed.POST("/rooms", h.CreateRoom)
	authed.PATCH("/rooms/:id", h.UpdateRoom)
	authed.DELETE("/rooms/:id", h.DeleteRoom)

	authed.GET("/messages", h.ListMessages)
	authed.POST("/messages", h.PostMessage)
	authed.PATCH("/messages/:id", h.EditMessage)
	authed.DELETE("/messages/:id", h.DeleteMessage)

	authed.GET("/users/:id", h.GetUser)
	authed.PATCH("/users/:id", h.UpdateUser)

	return r
}
