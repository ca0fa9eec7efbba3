// Package planner 编排路由服务调用、路线图构建/合并、最短路径校验与成本计算
package planner

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agropath/algo"
	"agropath/logistics"
	"agropath/model"
	"agropath/routing"
)

const (
	// DefaultConcurrency 同时进行的路由服务调用数
	DefaultConcurrency = 4

	// deviationWarnRatio 重建图距离与服务商距离的偏差超过该比例时记录日志
	deviationWarnRatio = 0.05
)

// LegStatus 单个起点的处理结果
type LegStatus int

const (
	LegOK LegStatus = iota
	LegFailed
)

func (s LegStatus) String() string {
	if s == LegOK {
		return "ok"
	}
	return "failed"
}

// Stage 失败发生的阶段
type Stage string

const (
	StageProvider Stage = "provider" // 路由服务调用 (可恢复)
	StageBuild    Stage = "build"    // 构建路线图
	StageSolve    Stage = "solve"    // 最短路径校验
	StageCost     Stage = "cost"     // 成本计算
)

// Leg 一段成功规划的路线 (起点 -> 终点)
type Leg struct {
	Label       string
	Origin      model.Site
	Destination model.Site
	Polyline    model.Polyline
	Graph       *algo.RouteGraph
	Path        algo.PathResult

	ProviderDistanceKm float64 // 服务商报告的距离
	GraphDistanceKm    float64 // 重建图上的最短路径距离
	Deviation          float64 // |图距离 - 服务商距离| / 服务商距离

	Cost *model.CostBreakdown // 未启用成本计算时为 nil
}

// Failure 单个起点的失败记录
type Failure struct {
	Label string
	Stage Stage
	Err   error
}

// LegOutcome 每个起点对应一个结果, 成功时 Leg 非空, 失败时 Failure 非空
type LegOutcome struct {
	Status  LegStatus
	Leg     *Leg
	Failure *Failure
}

// MergedGraph 多条路线合并后的总图
type MergedGraph struct {
	Graph        *algo.RouteGraph
	Labels       []string // 合并顺序
	Nodes        int
	Edges        int
	TotalWeightM float64
}

// BatchResult 一次批量规划的结果
type BatchResult struct {
	RunID       string
	Destination model.Site
	Outcomes    []LegOutcome // 与输入起点一一对应, 顺序相同
	Legs        []*Leg       // 成功的路线, 按输入顺序
	Failures    []Failure    // 失败记录, 按输入顺序
	Merged      *MergedGraph // 成功路线多于一条时才合并
}

// Orchestrator 路线规划编排器
type Orchestrator struct {
	provider    routing.Provider
	costCfg     logistics.Config
	withCost    bool
	callTimeout time.Duration
	concurrency int
	logf        func(format string, args ...any)
	newRunID    func() string
}

// Option 配置 Orchestrator
type Option func(*Orchestrator)

// WithCostConfig 使用指定成本参数
func WithCostConfig(cfg logistics.Config) Option {
	return func(o *Orchestrator) { o.costCfg = cfg; o.withCost = true }
}

// WithoutCost 不计算成本
func WithoutCost() Option {
	return func(o *Orchestrator) { o.withCost = false }
}

// WithCallTimeout 单次路由服务调用的超时
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// WithConcurrency 最大并发调用数, 小于 1 时按 1 处理
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = max(n, 1) }
}

// WithLogger 设置日志函数, 默认 log.Printf
func WithLogger(logf func(format string, args ...any)) Option {
	return func(o *Orchestrator) { o.logf = logf }
}

// New 创建编排器
func New(provider routing.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:    provider,
		costCfg:     logistics.DefaultConfig(),
		withCost:    true,
		callTimeout: routing.DefaultTimeout,
		concurrency: DefaultConcurrency,
		logf:        log.Printf,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CostConfig 返回当前使用的成本参数
func (o *Orchestrator) CostConfig() logistics.Config { return o.costCfg }

// PlanBatch 为每个起点规划到 destination 的路线
// 单个起点的路由服务失败只记录并跳过, 不影响其他起点, 也不重试
// 路线图合并按 origins 的输入顺序进行, 与并发调用的完成顺序无关
func (o *Orchestrator) PlanBatch(ctx context.Context, origins []model.Site, destination model.Site) *BatchResult {
	res := &BatchResult{
		RunID:       o.newRunID(),
		Destination: destination,
		Outcomes:    make([]LegOutcome, len(origins)),
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, origin := range origins {
		i, origin := i, origin
		g.Go(func() error {
			res.Outcomes[i] = o.planLeg(ctx, origin, destination)
			return nil
		})
	}
	_ = g.Wait() // planLeg 不返回错误

	for _, out := range res.Outcomes {
		if out.Status == LegOK {
			res.Legs = append(res.Legs, out.Leg)
			continue
		}
		res.Failures = append(res.Failures, *out.Failure)
		o.logf("planner: run %s: %s 失败 (%s): %v", res.RunID, out.Failure.Label, out.Failure.Stage, out.Failure.Err)
	}

	if len(res.Legs) > 1 {
		res.Merged = mergeLegs(res.Legs)
	}
	o.logf("planner: run %s: 到 %s 的路线 %d 条成功, %d 条失败",
		res.RunID, destination.Name, len(res.Legs), len(res.Failures))
	return res
}

// planLeg 处理单个起点: 调用服务 -> 构建图 -> 最短路径校验 -> 成本
func (o *Orchestrator) planLeg(ctx context.Context, origin, destination model.Site) LegOutcome {
	label := origin.Name
	fail := func(stage Stage, err error) LegOutcome {
		return LegOutcome{Status: LegFailed, Failure: &Failure{Label: label, Stage: stage, Err: err}}
	}

	pl, err := o.fetch(ctx, origin, destination)
	if err != nil {
		return fail(StageProvider, err)
	}

	graph, err := algo.BuildGraphFromPolyline(*pl)
	if err != nil {
		return fail(StageBuild, err)
	}

	first, last := pl.Points[0], pl.Points[len(pl.Points)-1]
	path, err := algo.ShortestPath(graph, first, last)
	if err != nil {
		return fail(StageSolve, err)
	}

	leg := &Leg{
		Label:              label,
		Origin:             origin,
		Destination:        destination,
		Polyline:           *pl,
		Graph:              graph,
		Path:               path,
		ProviderDistanceKm: pl.DistanceM / 1000,
		GraphDistanceKm:    path.Distance / 1000,
	}
	if pl.DistanceM > 0 {
		leg.Deviation = math.Abs(path.Distance-pl.DistanceM) / pl.DistanceM
		if leg.Deviation > deviationWarnRatio {
			o.logf("planner: %s: 图上最短距离 %.2f km 与服务商距离 %.2f km 相差 %.1f%%",
				label, leg.GraphDistanceKm, leg.ProviderDistanceKm, leg.Deviation*100)
		}
	}

	if o.withCost {
		km := leg.ProviderDistanceKm
		if km <= 0 {
			km = leg.GraphDistanceKm
		}
		cost, err := logistics.Cost(km, o.costCfg)
		if err != nil {
			return fail(StageCost, err)
		}
		leg.Cost = &cost
	}
	return LegOutcome{Status: LegOK, Leg: leg}
}

// fetch 带超时调用路由服务; 任何服务错误都归为 *routing.ProviderCallError
func (o *Orchestrator) fetch(ctx context.Context, origin, destination model.Site) (*model.Polyline, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	pl, err := o.provider.Route(callCtx, routing.RouteRequest{
		Origin:      origin.Point(),
		Destination: destination.Point(),
	})
	if err != nil {
		var pce *routing.ProviderCallError
		if !errors.As(err, &pce) {
			err = &routing.ProviderCallError{Op: "route", Err: err}
		}
		return nil, err
	}
	if pl == nil {
		return nil, &routing.ProviderCallError{Op: "route", Err: errors.New("服务返回空路线")}
	}
	return pl, nil
}

// mergeLegs 按顺序合并各路线图, 重叠边后写覆盖
func mergeLegs(legs []*Leg) *MergedGraph {
	inputs := make([]algo.LabeledGraph, 0, len(legs))
	labels := make([]string, 0, len(legs))
	for _, l := range legs {
		inputs = append(inputs, algo.LabeledGraph{Label: l.Label, Graph: l.Graph})
		labels = append(labels, l.Label)
	}
	g := algo.MergeOrdered(inputs)
	return &MergedGraph{
		Graph:        g,
		Labels:       labels,
		Nodes:        g.NodeCount(),
		Edges:        g.EdgeCount(),
		TotalWeightM: g.TotalWeight(),
	}
}
