package algo

import (
	"agropath/model"
	"agropath/utils"
)

// MinRoutePoints 构建路线图所需的最少点数 (至少一条边)
const MinRoutePoints = 2

// Edge 有向边, 端点为节点表中的下标
type Edge struct {
	From   int
	To     int
	Weight float64 // 大地线距离 (米), 恒 >= 0
}

type edgeKey struct{ from, to int }

// RouteGraph 有向加权路线图
// 节点表: 坐标 -> 整数下标 (按首次出现顺序); 边表按 (from, to) 下标对去重
type RouteGraph struct {
	nodes   []model.GeoPoint
	index   map[model.GeoPoint]int
	edges   []Edge
	edgeIdx map[edgeKey]int
	adjList [][]int // 节点下标 -> 出边在 edges 中的下标 (插入顺序)
}

// NewRouteGraph 创建一个空的图
func NewRouteGraph() *RouteGraph {
	return &RouteGraph{
		index:   make(map[model.GeoPoint]int),
		edgeIdx: make(map[edgeKey]int),
	}
}

// BuildGraph 将有序坐标序列转换为由相邻点连成的有向加权图
// 不修改输入切片
func BuildGraph(points []model.GeoPoint) (*RouteGraph, error) {
	if len(points) < MinRoutePoints {
		return nil, &InsufficientPointsError{Got: len(points), Min: MinRoutePoints}
	}

	g := NewRouteGraph()
	for i := 0; i < len(points)-1; i++ {
		p1, p2 := points[i], points[i+1]
		g.SetEdge(p1, p2, utils.Distance(p1, p2))
	}
	return g, nil
}

// BuildGraphFromPolyline 由路由服务返回的路线构建图
func BuildGraphFromPolyline(pl model.Polyline) (*RouteGraph, error) {
	return BuildGraph(pl.Points)
}

// AddNode 添加节点并返回其下标; 已存在则直接返回原下标
func (g *RouteGraph) AddNode(p model.GeoPoint) int {
	if id, ok := g.index[p]; ok {
		return id
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, p)
	g.index[p] = id
	g.adjList = append(g.adjList, nil)
	return id
}

// SetEdge 设置有向边 from -> to 的权重
// 同一对节点再次写入时覆盖权重, 但保留其在邻接表中的原位置
func (g *RouteGraph) SetEdge(from, to model.GeoPoint, weight float64) {
	u := g.AddNode(from)
	v := g.AddNode(to)
	key := edgeKey{u, v}
	if ei, ok := g.edgeIdx[key]; ok {
		g.edges[ei].Weight = weight // 后写覆盖
		return
	}
	g.edgeIdx[key] = len(g.edges)
	g.adjList[u] = append(g.adjList[u], len(g.edges))
	g.edges = append(g.edges, Edge{From: u, To: v, Weight: weight})
}

// NodeCount 节点数
func (g *RouteGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount 边数
func (g *RouteGraph) EdgeCount() int { return len(g.edges) }

// Weight 返回边 from -> to 的权重
func (g *RouteGraph) Weight(from, to model.GeoPoint) (float64, bool) {
	u, ok := g.index[from]
	if !ok {
		return 0, false
	}
	v, ok := g.index[to]
	if !ok {
		return 0, false
	}
	ei, ok := g.edgeIdx[edgeKey{u, v}]
	if !ok {
		return 0, false
	}
	return g.edges[ei].Weight, true
}

// TotalWeight 所有边权重之和 (米)
func (g *RouteGraph) TotalWeight() float64 {
	total := 0.0
	for _, e := range g.edges {
		total += e.Weight
	}
	return total
}

// Clone 深拷贝
func (g *RouteGraph) Clone() *RouteGraph {
	c := NewRouteGraph()
	for _, p := range g.nodes {
		c.AddNode(p)
	}
	for _, e := range g.edges {
		c.SetEdge(g.nodes[e.From], g.nodes[e.To], e.Weight)
	}
	return c
}

// neighbors 返回节点 u 的出边 (插入顺序)
func (g *RouteGraph) neighbors(u int) []int {
	return g.adjList[u]
}
