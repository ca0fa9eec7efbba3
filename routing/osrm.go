package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agropath/model"
)

const (
	// DefaultOSRMURL 公共 OSRM 演示服务
	DefaultOSRMURL = "http://router.project-osrm.org"

	// DefaultProfile 默认出行方式
	DefaultProfile = "driving"

	// DefaultTimeout 单次调用的超时时间
	DefaultTimeout = 20 * time.Second

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second

	// errorBodyLimit 非 2xx 响应时读取的最大字节数
	errorBodyLimit = 1024
)

// OSRMProvider 基于 OSRM HTTP 接口实现 Provider
type OSRMProvider struct {
	baseURL    string
	profile    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewOSRMProvider 创建 OSRM 客户端, 空参数使用默认值
func NewOSRMProvider(baseURL, profile string, timeout time.Duration) *OSRMProvider {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if profile == "" {
		profile = DefaultProfile
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &OSRMProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Route 调用 OSRM /route/v1 接口, 返回完整几何 (GeoJSON) 与总距离
// 所有失败都以 *ProviderCallError 返回
func (p *OSRMProvider) Route(ctx context.Context, req RouteRequest) (*model.Polyline, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.routeURL(req), nil)
	if err != nil {
		return nil, &ProviderCallError{Op: "request", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderCallError{Op: "http", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &ProviderCallError{
			Op:         "status",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(b))),
		}
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderCallError{Op: "decode", Err: err}
	}
	pl, err := body.polyline()
	if err != nil {
		return nil, &ProviderCallError{Op: "decode", Err: err}
	}
	return pl, nil
}

// routeURL 格式: {base}/route/v1/{profile}/{lon},{lat};{lon},{lat}?overview=full&geometries=geojson
func (p *OSRMProvider) routeURL(req RouteRequest) string {
	coords := formatCoord(req.Origin) + ";" + formatCoord(req.Destination)
	return fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson", p.baseURL, p.profile, coords)
}

// formatCoord OSRM 要求经度在前
func formatCoord(pt model.GeoPoint) string {
	return strconv.FormatFloat(pt.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(pt.Lat, 'f', -1, 64)
}

// --- OSRM 响应的 JSON 结构 ---

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"` // 米
	Duration float64      `json:"duration"` // 秒
	Geometry osrmGeometry `json:"geometry"`
}

type osrmGeometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"` // [经度, 纬度]
}

// polyline 取第一条路线, 将 [lon, lat] 转换为 GeoPoint
func (r osrmResponse) polyline() (*model.Polyline, error) {
	if r.Code != "" && r.Code != "Ok" {
		return nil, fmt.Errorf("OSRM 返回 %s: %s", r.Code, r.Message)
	}
	if len(r.Routes) == 0 {
		return nil, errors.New("响应中没有路线")
	}
	route := r.Routes[0]
	if len(route.Geometry.Coordinates) == 0 {
		return nil, errors.New("路线几何为空")
	}

	points := make([]model.GeoPoint, 0, len(route.Geometry.Coordinates))
	for i, c := range route.Geometry.Coordinates {
		if len(c) < 2 {
			return nil, fmt.Errorf("第 %d 个坐标格式错误: %v", i, c)
		}
		points = append(points, model.GeoPoint{Lat: c[1], Lng: c[0]})
	}
	return &model.Polyline{
		Points:    points,
		DistanceM: route.Distance,
		DurationS: route.Duration,
	}, nil
}
