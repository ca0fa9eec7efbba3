package algo

import (
	"container/heap"
	"fmt"
	"math"
	"slices"

	"agropath/model"
)

// PathSegment 路径段信息
type PathSegment struct {
	From     model.GeoPoint `json:"from"`
	To       model.GeoPoint `json:"to"`
	Distance float64        `json:"distance"` // 米
}

// PathResult 最短路径结果
type PathResult struct {
	Path     []model.GeoPoint // 节点序列, 首为起点, 尾为终点
	Segments []PathSegment    // 路径段详情
	Distance float64          // 总距离 (米), 等于各段权重之和
}

// PriorityQueueItem 优先队列中的元素
type PriorityQueueItem struct {
	Node  int
	Cost  float64
	Index int // 在堆中的索引
}

// PriorityQueue 实现 heap.Interface 接口的优先队列
// 代价相同时按节点下标排序, 保证结果可复现
type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Cost != pq[j].Cost {
		return pq[i].Cost < pq[j].Cost
	}
	return pq[i].Node < pq[j].Node
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*PriorityQueueItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // 避免内存泄漏
	item.Index = -1 // 标记为已移除
	*pq = old[0 : n-1]
	return item
}

// ShortestPath 使用 Dijkstra 算法计算 source 到 target 的最短路径
// 要求所有边权重非负 (由 BuildGraph 保证)
func ShortestPath(g *RouteGraph, source, target model.GeoPoint) (PathResult, error) {
	src, ok := g.index[source]
	if !ok {
		return PathResult{}, &NodeNotFoundError{Point: source, Role: "source"}
	}
	dst, ok := g.index[target]
	if !ok {
		return PathResult{}, &NodeNotFoundError{Point: target, Role: "target"}
	}

	n := g.NodeCount()
	dist := make([]float64, n)
	prevEdge := make([]int, n) // 到达该节点所用的边下标
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prevEdge[i] = -1
	}
	dist[src] = 0

	pq := make(PriorityQueue, 0)
	heap.Init(&pq)
	heap.Push(&pq, &PriorityQueueItem{Node: src, Cost: 0})

	for pq.Len() > 0 {
		current := heap.Pop(&pq).(*PriorityQueueItem)
		u := current.Node
		if visited[u] {
			continue
		}
		visited[u] = true

		// 到达终点，提前退出
		if u == dst {
			break
		}

		for _, ei := range g.neighbors(u) {
			e := g.edges[ei]
			newCost := dist[u] + e.Weight
			if newCost < dist[e.To] {
				dist[e.To] = newCost
				prevEdge[e.To] = ei
				heap.Push(&pq, &PriorityQueueItem{Node: e.To, Cost: newCost})
			}
		}
	}

	if math.IsInf(dist[dst], 1) {
		return PathResult{}, &NoPathError{From: source, To: target}
	}

	// 回溯路径上的边
	var edgePath []int
	for at := dst; at != src; at = g.edges[prevEdge[at]].From {
		edgePath = append(edgePath, prevEdge[at])
	}
	slices.Reverse(edgePath)

	result := PathResult{
		Path:     make([]model.GeoPoint, 0, len(edgePath)+1),
		Segments: make([]PathSegment, 0, len(edgePath)),
	}
	result.Path = append(result.Path, source)
	for _, ei := range edgePath {
		e := g.edges[ei]
		result.Path = append(result.Path, g.nodes[e.To])
		result.Segments = append(result.Segments, PathSegment{
			From:     g.nodes[e.From],
			To:       g.nodes[e.To],
			Distance: e.Weight,
		})
		result.Distance += e.Weight
	}
	return result, nil
}

// FormatPath 格式化路径结果为可读字符串
func FormatPath(result PathResult) string {
	output := fmt.Sprintf("总距离: %.2f 米 (%.2f 公里)\n", result.Distance, result.Distance/1000)
	output += fmt.Sprintf("路径节点数: %d\n", len(result.Path))
	if len(result.Path) > 0 {
		first, last := result.Path[0], result.Path[len(result.Path)-1]
		output += fmt.Sprintf("起点: (%.6f, %.6f)\n", first.Lat, first.Lng)
		output += fmt.Sprintf("终点: (%.6f, %.6f)\n", last.Lat, last.Lng)
	}
	return output
}
