package algo

import (
	"errors"
	"fmt"

	"agropath/model"
)

// 可与 errors.Is 配合使用的哨兵错误
var (
	ErrInsufficientPoints = errors.New("路线点数不足")
	ErrNodeNotFound       = errors.New("节点不存在")
	ErrNoPath             = errors.New("不存在可达路径")
)

// InsufficientPointsError 构建路线图时输入点数少于下限
type InsufficientPointsError struct {
	Got int
	Min int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("algo: 路线至少需要 %d 个点, 实际 %d 个", e.Min, e.Got)
}

func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }

// NodeNotFoundError 查询的起点或终点不在图中
type NodeNotFoundError struct {
	Point model.GeoPoint
	Role  string // "source" 或 "target"
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("algo: %s 节点 (%v, %v) 不在图中", e.Role, e.Point.Lat, e.Point.Lng)
}

func (e *NodeNotFoundError) Is(target error) bool { return target == ErrNodeNotFound }

// NoPathError 沿有向边无法从起点到达终点
type NoPathError struct {
	From model.GeoPoint
	To   model.GeoPoint
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("algo: 从 (%v, %v) 到 (%v, %v) 没有可达路径",
		e.From.Lat, e.From.Lng, e.To.Lat, e.To.Lng)
}

func (e *NoPathError) Is(target error) bool { return target == ErrNoPath }
