// Package routing 调用外部路由服务 (OSRM) 获取两点间的路线几何
package routing

import (
	"context"
	"errors"
	"fmt"

	"agropath/model"
)

// RouteRequest 一次路线查询的起终点
type RouteRequest struct {
	Origin      model.GeoPoint
	Destination model.GeoPoint
}

// Provider 计算两点之间的路线
type Provider interface {
	Route(ctx context.Context, req RouteRequest) (*model.Polyline, error)
}

// ErrProviderCall 路由服务调用失败 (网络、超时、非 2xx、响应格式错误)
var ErrProviderCall = errors.New("路由服务调用失败")

// ProviderCallError 路由服务调用失败的详细信息
// 是编排层唯一可以按起点跳过的可恢复错误
type ProviderCallError struct {
	Op         string // "request", "http", "status", "decode", "route"
	StatusCode int    // 仅 Op == "status" 时有效
	Err        error
}

func (e *ProviderCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("routing: %s: 状态码 %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("routing: %s: %v", e.Op, e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

func (e *ProviderCallError) Is(target error) bool { return target == ErrProviderCall }
