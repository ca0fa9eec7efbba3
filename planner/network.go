package planner

import (
	"context"
	"errors"

	"agropath/model"
)

// ErrNoSites 缺少规划所需的站点
var ErrNoSites = errors.New("缺少规划所需的站点")

// NetworkResult 农场 -> 收储中心 -> 港口 的完整物流网络
type NetworkResult struct {
	Collection  *BatchResult // 各农场到收储中心
	PortLeg     *Leg         // 收储中心到港口, 失败时为 nil
	PortFailure *Failure
	Network     *MergedGraph // 所有成功路线合并: 先农场路线, 后港口路线
}

// Legs 返回网络中所有成功的路线 (农场路线在前)
func (n *NetworkResult) Legs() []*Leg {
	legs := append([]*Leg(nil), n.Collection.Legs...)
	if n.PortLeg != nil {
		legs = append(legs, n.PortLeg)
	}
	return legs
}

// Failures 返回网络中所有失败记录
func (n *NetworkResult) Failures() []Failure {
	out := append([]Failure(nil), n.Collection.Failures...)
	if n.PortFailure != nil {
		out = append(out, *n.PortFailure)
	}
	return out
}

// PlanNetwork 规划各农场到收储中心, 以及收储中心到港口的路线, 并合并为一张网络图
// 港口路线不计入每吨到站成本, 调用失败同样只记录不中断
func (o *Orchestrator) PlanNetwork(ctx context.Context, farms []model.Site, center, port model.Site) (*NetworkResult, error) {
	if len(farms) == 0 {
		return nil, ErrNoSites
	}

	res := &NetworkResult{Collection: o.PlanBatch(ctx, farms, center)}

	portOut := o.planLeg(ctx, center, port)
	if portOut.Status == LegOK {
		portOut.Leg.Cost = nil
		res.PortLeg = portOut.Leg
	} else {
		res.PortFailure = portOut.Failure
		o.logf("planner: run %s: 收储中心到港口的路线失败 (%s): %v",
			res.Collection.RunID, portOut.Failure.Stage, portOut.Failure.Err)
	}

	if legs := res.Legs(); len(legs) > 0 {
		res.Network = mergeLegs(legs)
		o.logf("planner: run %s: 网络图 %d 个节点, %d 条边, 总权重 %.2f km",
			res.Collection.RunID, res.Network.Nodes, res.Network.Edges, res.Network.TotalWeightM/1000)
	}
	return res, nil
}

// Summary 供渲染端使用的网络汇总数据
type Summary struct {
	RunID         string  `json:"run_id"`
	Legs          int     `json:"legs"`
	Failures      int     `json:"failures"`
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	TotalWeightKm float64 `json:"total_weight_km"`
}

// Summary 汇总网络规模; 没有成功路线时节点和边均为 0
func (n *NetworkResult) Summary() Summary {
	s := Summary{
		RunID:    n.Collection.RunID,
		Legs:     len(n.Legs()),
		Failures: len(n.Failures()),
	}
	if n.Network != nil {
		s.Nodes = n.Network.Nodes
		s.Edges = n.Network.Edges
		s.TotalWeightKm = n.Network.TotalWeightM / 1000
	}
	return s
}
