package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agropath/logistics"
)

// GetCost 按单程距离 (km) 计算每吨成本
func (h *Handler) GetCost(c *gin.Context) {
	km, err := logistics.ParseDistance(c.Query("distance_km"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := logistics.Cost(km, h.costCfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}
