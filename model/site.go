package model

import "github.com/lib/pq"

// GeoPoint 代表一个经纬度点 (WGS84, 十进制度)
// 作为图节点使用时按坐标精确匹配, 不做容差或吸附
type GeoPoint struct {
	Lat float64 `json:"lat"` // 纬度
	Lng float64 `json:"lng"` // 经度
}

// Polyline 路由服务为一对起终点返回的路线几何
type Polyline struct {
	Points    []GeoPoint // 按行驶顺序排列的点
	DistanceM float64    // 服务商报告的总距离 (米)
	DurationS float64    // 服务商报告的总时长 (秒)
}

// SiteKind 站点类型
type SiteKind string

const (
	SiteFarm             SiteKind = "farm"              // 生产农场
	SiteCollectionCenter SiteKind = "collection_center" // 收储中心
	SitePort             SiteKind = "port"              // 港口
)

// Valid 判断站点类型是否合法
func (k SiteKind) Valid() bool {
	switch k {
	case SiteFarm, SiteCollectionCenter, SitePort:
		return true
	}
	return false
}

// Site 对应地图上的一个物流站点 (农场、收储中心、港口)
type Site struct {
	ID   string         `json:"id" gorm:"primaryKey"`
	Name string         `json:"name" gorm:"index"`
	Lat  float64        `json:"lat"`
	Lng  float64        `json:"lng"`
	Kind SiteKind       `json:"kind" gorm:"index"`
	Info string         `json:"info"`
	Tags pq.StringArray `json:"tags" gorm:"type:text[]"` // 如: ["soy", "illinois"]
	Seq  int64          `json:"-" gorm:"autoIncrement;index"` // 插入顺序, 由存储层分配
}

// Point 返回站点坐标
func (s Site) Point() GeoPoint {
	return GeoPoint{Lat: s.Lat, Lng: s.Lng}
}
