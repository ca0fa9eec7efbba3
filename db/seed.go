package db

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lib/pq"

	"agropath/model"
)

// 内置站点 ID
const (
	CenterID = "mattoon"
	PortID   = "st-louis"
)

// LoadSites 读取并解析站点文件
func LoadSites(path string) ([]model.Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return ParseSites(data)
}

// ParseSites 解析 {"meta": ..., "sites": [...]} 格式的站点数据
func ParseSites(data []byte) ([]model.Site, error) {
	var doc struct {
		Meta  map[string]any `json:"meta"`
		Sites []struct {
			ID   string         `json:"id"`
			Name string         `json:"name"`
			Lat  float64        `json:"lat"`
			Lng  float64        `json:"lng"`
			Kind model.SiteKind `json:"kind"`
			Info string         `json:"info"`
			Tags []string       `json:"tags"`
		} `json:"sites"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	seen := make(map[string]bool, len(doc.Sites))
	sites := make([]model.Site, 0, len(doc.Sites))
	for i, s := range doc.Sites {
		site := model.Site{
			ID:   s.ID,
			Name: s.Name,
			Lat:  s.Lat,
			Lng:  s.Lng,
			Kind: s.Kind,
			Info: s.Info,
			Tags: pq.StringArray(s.Tags),
		}
		if err := ValidateSite(site); err != nil {
			return nil, fmt.Errorf("第 %d 个站点: %w", i+1, err)
		}
		if seen[site.ID] {
			return nil, fmt.Errorf("第 %d 个站点: %s: %w", i+1, site.ID, ErrDuplicate)
		}
		seen[site.ID] = true
		sites = append(sites, site)
	}
	return sites, nil
}

// ValidateSite 检查站点必填字段和坐标范围
func ValidateSite(s model.Site) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("站点缺少 id")
	case s.Name == "":
		return fmt.Errorf("站点 %s 缺少名称", s.ID)
	case !s.Kind.Valid():
		return fmt.Errorf("站点 %s 类型无效: %q", s.ID, s.Kind)
	case s.Lat < -90 || s.Lat > 90 || s.Lng < -180 || s.Lng > 180:
		return fmt.Errorf("站点 %s 坐标超出范围: %v, %v", s.ID, s.Lat, s.Lng)
	}
	return nil
}

// DefaultSites 内置的伊利诺伊州大豆物流站点: 7 个农场, 1 个收储中心, 1 个港口
func DefaultSites() []model.Site {
	farms := []struct{ lat, lng float64 }{
		{40.92, -89.53}, {40.92, -89.54}, {40.91, -89.53}, {40.91, -89.52},
		{40.91, -89.54}, {40.91, -89.55}, {40.91, -89.51},
	}
	sites := make([]model.Site, 0, len(farms)+2)
	for i, f := range farms {
		sites = append(sites, model.Site{
			ID:   fmt.Sprintf("finca-%d", i+1),
			Name: fmt.Sprintf("Finca %d", i+1),
			Lat:  f.lat,
			Lng:  f.lng,
			Kind: model.SiteFarm,
			Info: "Parcela de producción",
			Tags: pq.StringArray{"soy"},
		})
	}
	return append(sites,
		model.Site{
			ID: CenterID, Name: "Clarkson Grain Mattoon Plant",
			Lat: 39.481427, Lng: -88.303999, Kind: model.SiteCollectionCenter,
			Info: "Mattoon, Illinois. Centro de acopio de granos.", Tags: pq.StringArray{"grain"},
		},
		model.Site{
			ID: PortID, Name: "Port of Metropolitan St. Louis",
			Lat: 38.61, Lng: -90.20, Kind: model.SitePort,
			Info: "Puerto fluvial en el río Misisipi.", Tags: pq.StringArray{"river", "export"},
		},
	)
}
