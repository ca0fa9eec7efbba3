// Package export 把规划结果写成 GeoJSON, 交给外部地图渲染端使用
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"agropath/model"
)

// 路线要素的 kind 属性
const (
	KindCollection = "collection" // 农场 -> 收储中心
	KindPort       = "port"       // 收储中心 -> 港口
)

// Route 一条待输出的路线
type Route struct {
	Label      string
	Kind       string
	Path       []model.GeoPoint
	DistanceKm float64
	Cost       *model.CostBreakdown
}

// FeatureCollection 生成 GeoJSON 要素集合: 每个站点一个 Point, 每条路线一个 LineString
// 颜色等样式不在这里决定
func FeatureCollection(sites []model.Site, routes []Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, s := range sites {
		f := geojson.NewFeature(toOrb(s.Point()))
		f.ID = s.ID
		f.Properties["name"] = s.Name
		f.Properties["kind"] = string(s.Kind)
		f.Properties["info"] = s.Info
		fc.Append(f)
	}

	for _, r := range routes {
		if len(r.Path) < 2 {
			continue
		}
		ls := make(orb.LineString, len(r.Path))
		for i, p := range r.Path {
			ls[i] = toOrb(p)
		}
		f := geojson.NewFeature(ls)
		f.Properties["label"] = r.Label
		f.Properties["kind"] = r.Kind
		f.Properties["distance_km"] = r.DistanceKm
		if r.Cost != nil {
			f.Properties["total_cost_per_ton"] = r.Cost.TotalCostPerTon
		}
		fc.Append(f)
	}

	if sw, ne, _, ok := Bounds(collectPoints(sites, routes)); ok {
		fc.BBox = geojson.BBox{sw.Lng, sw.Lat, ne.Lng, ne.Lat}
	}
	return fc
}

// WriteFeatureCollection 把要素集合写到 dir/name, 返回文件路径
func WriteFeatureCollection(dir, name string, fc *geojson.FeatureCollection) (string, error) {
	if !strings.HasSuffix(name, ".geojson") {
		name += ".geojson"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("序列化 GeoJSON 失败: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return path, nil
}

// Bounds 计算所有点的西南角、东北角和平均中心, 供渲染端 fit_bounds 使用
func Bounds(points []model.GeoPoint) (sw, ne, center model.GeoPoint, ok bool) {
	if len(points) == 0 {
		return sw, ne, center, false
	}

	mp := make(orb.MultiPoint, len(points))
	var sumLat, sumLng float64
	for i, p := range points {
		mp[i] = toOrb(p)
		sumLat += p.Lat
		sumLng += p.Lng
	}
	b := mp.Bound()

	sw = model.GeoPoint{Lat: b.Min.Lat(), Lng: b.Min.Lon()}
	ne = model.GeoPoint{Lat: b.Max.Lat(), Lng: b.Max.Lon()}
	n := float64(len(points))
	center = model.GeoPoint{Lat: sumLat / n, Lng: sumLng / n}
	return sw, ne, center, true
}

// toOrb orb 的点是 [lon, lat]
func toOrb(p model.GeoPoint) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func collectPoints(sites []model.Site, routes []Route) []model.GeoPoint {
	var pts []model.GeoPoint
	for _, s := range sites {
		pts = append(pts, s.Point())
	}
	for _, r := range routes {
		pts = append(pts, r.Path...)
	}
	return pts
}
