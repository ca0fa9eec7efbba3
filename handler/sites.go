package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"agropath/db"
	"agropath/model"
)

// CreateSiteRequest 新增站点请求
type CreateSiteRequest struct {
	ID   string         `json:"id" binding:"required"`
	Name string         `json:"name" binding:"required"`
	Lat  float64        `json:"lat"`
	Lng  float64        `json:"lng"`
	Kind model.SiteKind `json:"kind" binding:"required"`
	Info string         `json:"info"`
	Tags []string       `json:"tags"`
}

// ListSites 获取站点列表, 可按 kind 过滤
func (h *Handler) ListSites(c *gin.Context) {
	kind := model.SiteKind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的站点类型: " + string(kind)})
		return
	}

	sites, err := h.sites.ListSites(c.Request.Context(), kind)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(sites),
		"sites": sites,
	})
}

// GetSite 根据 ID 获取站点
func (h *Handler) GetSite(c *gin.Context) {
	site, err := h.sites.GetSite(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// CreateSite 新增站点 (需要登录)
func (h *Handler) CreateSite(c *gin.Context) {
	var req CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	site := model.Site{
		ID:   req.ID,
		Name: req.Name,
		Lat:  req.Lat,
		Lng:  req.Lng,
		Kind: req.Kind,
		Info: req.Info,
		Tags: pq.StringArray(req.Tags),
	}
	if err := db.ValidateSite(site); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sites.CreateSite(c.Request.Context(), site); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, site)
}
