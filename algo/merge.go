package algo

import "fmt"

// LabeledGraph 带来源标签的路线图 (如每个农场一张)
type LabeledGraph struct {
	Label string
	Graph *RouteGraph
}

// MergeOrdered 按给定顺序合并多张图
// 节点取并集, 边取并集; 同一 (from, to) 在多张图中出现时, 后合并的权重覆盖先前的
// 不修改输入图
func MergeOrdered(graphs []LabeledGraph) *RouteGraph {
	merged := NewRouteGraph()
	for _, lg := range graphs {
		if lg.Graph == nil {
			continue
		}
		g := lg.Graph
		for _, p := range g.nodes {
			merged.AddNode(p)
		}
		for _, e := range g.edges {
			merged.SetEdge(g.nodes[e.From], g.nodes[e.To], e.Weight)
		}
	}
	return merged
}

// Merge 按 order 中的标签顺序合并 graphs
// order 必须恰好覆盖 graphs 的全部标签, 否则返回错误, 避免依赖 map 的遍历顺序
func Merge(order []string, graphs map[string]*RouteGraph) (*RouteGraph, error) {
	if len(order) != len(graphs) {
		return nil, fmt.Errorf("algo: merge: 标签数 %d 与图数 %d 不一致", len(order), len(graphs))
	}
	seen := make(map[string]bool, len(order))
	ordered := make([]LabeledGraph, 0, len(order))
	for _, label := range order {
		if seen[label] {
			return nil, fmt.Errorf("algo: merge: 标签 %q 重复", label)
		}
		seen[label] = true
		g, ok := graphs[label]
		if !ok {
			return nil, fmt.Errorf("algo: merge: 未知的图标签 %q", label)
		}
		ordered = append(ordered, LabeledGraph{Label: label, Graph: g})
	}
	return MergeOrdered(ordered), nil
}
