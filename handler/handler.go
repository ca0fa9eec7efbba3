// Package handler 提供 HTTP 接口: 站点查询、成本计算、路线规划、登录注册
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agropath/db"
	"agropath/logistics"
	"agropath/planner"
)

// Handler 持有各接口依赖
type Handler struct {
	sites       db.SiteStore
	users       db.UserStore
	planner     *planner.Orchestrator
	costCfg     logistics.Config
	jwtSecret   []byte
	artifactDir string
}

// New 创建 Handler; 成本参数取自 planner
func New(sites db.SiteStore, users db.UserStore, p *planner.Orchestrator, jwtSecret []byte, artifactDir string) *Handler {
	return &Handler{
		sites:       sites,
		users:       users,
		planner:     p,
		costCfg:     p.CostConfig(),
		jwtSecret:   jwtSecret,
		artifactDir: artifactDir,
	}
}

// respondStoreError 把存储层错误转为 HTTP 状态码
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, db.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}
