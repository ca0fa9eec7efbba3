package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 配置中间件和路由
func SetupRoutes(r *gin.Engine, h *Handler) {
	// CORS 跨域中间件
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "ok",
		})
	})

	api := r.Group("/api")
	{
		// 公开接口
		api.POST("/login", h.Login)
		api.POST("/register", h.Register)

		api.GET("/sites", h.ListSites)
		api.GET("/sites/:id", h.GetSite)
		api.GET("/cost", h.GetCost)
		api.POST("/plan/collection", h.PlanCollection)
		api.GET("/plan/network", h.PlanNetwork)

		// 需要登录
		authorized := api.Group("/")
		authorized.Use(h.AuthMiddleware())
		{
			authorized.POST("/sites", h.CreateSite)
		}
	}
}
