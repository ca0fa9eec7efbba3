package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"agropath/db"
	"agropath/export"
	"agropath/model"
	"agropath/planner"
)

// CollectionRequest 农场到收储中心的批量规划请求
type CollectionRequest struct {
	Origins     []string `json:"origins" binding:"required,min=1"` // 起点站点 ID
	Destination string   `json:"destination" binding:"required"`   // 终点站点 ID
}

// LegResponse 一段成功规划的路线
type LegResponse struct {
	Label              string               `json:"label"`
	OriginID           string               `json:"origin_id"`
	DestinationID      string               `json:"destination_id"`
	ProviderDistanceKm float64              `json:"provider_distance_km"`
	GraphDistanceKm    float64              `json:"graph_distance_km"`
	Deviation          float64              `json:"deviation"`
	Nodes              int                  `json:"nodes"`
	Edges              int                  `json:"edges"`
	Path               []model.GeoPoint     `json:"path"`
	Cost               *model.CostBreakdown `json:"cost,omitempty"`
}

// FailureResponse 一段失败的路线
type FailureResponse struct {
	Label string `json:"label"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// MergedResponse 合并图的规模
type MergedResponse struct {
	Labels        []string `json:"labels"`
	Nodes         int      `json:"nodes"`
	Edges         int      `json:"edges"`
	TotalWeightKm float64  `json:"total_weight_km"`
}

// BatchResponse 批量规划响应
type BatchResponse struct {
	RunID       string            `json:"run_id"`
	Destination model.Site        `json:"destination"`
	Legs        []LegResponse     `json:"legs"`
	Failures    []FailureResponse `json:"failures"`
	Merged      *MergedResponse   `json:"merged,omitempty"`
	Artifact    string            `json:"artifact,omitempty"` // GeoJSON 文件路径
}

// BoundsResponse 渲染端 fit_bounds 所需的范围
type BoundsResponse struct {
	SouthWest model.GeoPoint `json:"south_west"`
	NorthEast model.GeoPoint `json:"north_east"`
	Center    model.GeoPoint `json:"center"`
}

// NetworkResponse 完整物流网络响应
type NetworkResponse struct {
	Summary  planner.Summary   `json:"summary"`
	Legs     []LegResponse     `json:"legs"`
	Failures []FailureResponse `json:"failures"`
	Network  *MergedResponse   `json:"network,omitempty"`
	Bounds   *BoundsResponse   `json:"bounds,omitempty"`
	Artifact string            `json:"artifact,omitempty"` // GeoJSON 文件路径
}

// PlanCollection 规划多个农场到同一收储中心的路线
// 个别路线失败时仍返回 200, 失败记录在 failures 中; 全部失败时返回 502
func (h *Handler) PlanCollection(c *gin.Context) {
	var req CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	dest, err := h.sites.GetSite(ctx, req.Destination)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	origins := make([]model.Site, 0, len(req.Origins))
	for _, id := range req.Origins {
		s, err := h.sites.GetSite(ctx, id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		origins = append(origins, s)
	}

	res := h.planner.PlanBatch(ctx, origins, dest)
	resp := BatchResponse{
		RunID:       res.RunID,
		Destination: dest,
		Legs:        toLegResponses(res.Legs),
		Failures:    toFailureResponses(res.Failures),
		Merged:      toMergedResponse(res.Merged),
	}

	if len(res.Legs) == 0 {
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	sites := append(append([]model.Site(nil), origins...), dest)
	path, err := export.WriteBatch(h.artifactDir, sites, res)
	if err != nil {
		log.Printf("写出 GeoJSON 失败: %v", err)
	} else {
		resp.Artifact = path
	}
	c.JSON(http.StatusOK, resp)
}

// PlanNetwork 规划 农场 -> 收储中心 -> 港口 的完整网络, 并写出 GeoJSON 文件
func (h *Handler) PlanNetwork(c *gin.Context) {
	ctx := c.Request.Context()
	farms, center, port, err := db.NetworkSites(ctx, h.sites)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	res, err := h.planner.PlanNetwork(ctx, farms, center, port)
	if errors.Is(err, planner.ErrNoSites) {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有可规划的农场"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	legs := res.Legs()
	resp := NetworkResponse{
		Summary:  res.Summary(),
		Legs:     toLegResponses(legs),
		Failures: toFailureResponses(res.Failures()),
		Network:  toMergedResponse(res.Network),
	}
	if len(legs) == 0 {
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	var pts []model.GeoPoint
	for _, leg := range legs {
		pts = append(pts, leg.Polyline.Points...)
	}
	if sw, ne, mid, ok := export.Bounds(pts); ok {
		resp.Bounds = &BoundsResponse{SouthWest: sw, NorthEast: ne, Center: mid}
	}

	path, err := export.WriteNetwork(h.artifactDir, export.NetworkSites(farms, center, port), res)
	if err != nil {
		// 文件写出失败不影响规划结果
		log.Printf("写出 GeoJSON 失败: %v", err)
	} else {
		resp.Artifact = path
	}
	c.JSON(http.StatusOK, resp)
}

func toLegResponses(legs []*planner.Leg) []LegResponse {
	out := make([]LegResponse, 0, len(legs))
	for _, l := range legs {
		out = append(out, LegResponse{
			Label:              l.Label,
			OriginID:           l.Origin.ID,
			DestinationID:      l.Destination.ID,
			ProviderDistanceKm: l.ProviderDistanceKm,
			GraphDistanceKm:    l.GraphDistanceKm,
			Deviation:          l.Deviation,
			Nodes:              l.Graph.NodeCount(),
			Edges:              l.Graph.EdgeCount(),
			Path:               l.Path.Path,
			Cost:               l.Cost,
		})
	}
	return out
}

func toFailureResponses(fs []planner.Failure) []FailureResponse {
	out := make([]FailureResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, FailureResponse{Label: f.Label, Stage: string(f.Stage), Error: f.Err.Error()})
	}
	return out
}

func toMergedResponse(m *planner.MergedGraph) *MergedResponse {
	if m == nil {
		return nil
	}
	return &MergedResponse{
		Labels:        m.Labels,
		Nodes:         m.Nodes,
		Edges:         m.Edges,
		TotalWeightKm: m.TotalWeightM / 1000,
	}
}
