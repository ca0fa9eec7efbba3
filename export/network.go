package export

import (
	"github.com/paulmach/orb/geojson"

	"agropath/model"
	"agropath/planner"
)

// RoutesFromNetwork 把网络规划结果转为待输出路线, 农场路线在前
func RoutesFromNetwork(res *planner.NetworkResult) []Route {
	routes := make([]Route, 0, len(res.Collection.Legs)+1)
	for _, leg := range res.Collection.Legs {
		routes = append(routes, routeFromLeg(leg, KindCollection))
	}
	if res.PortLeg != nil {
		routes = append(routes, routeFromLeg(res.PortLeg, KindPort))
	}
	return routes
}

// RoutesFromBatch 把批量规划结果转为待输出路线
func RoutesFromBatch(res *planner.BatchResult) []Route {
	routes := make([]Route, 0, len(res.Legs))
	for _, leg := range res.Legs {
		routes = append(routes, routeFromLeg(leg, KindCollection))
	}
	return routes
}

// NetworkSites 网络中出现的所有站点: 农场按输入顺序, 然后是收储中心和港口
func NetworkSites(farms []model.Site, center, port model.Site) []model.Site {
	sites := append([]model.Site(nil), farms...)
	return append(sites, center, port)
}

func routeFromLeg(leg *planner.Leg, kind string) Route {
	return Route{
		Label:      leg.Label,
		Kind:       kind,
		Path:       leg.Polyline.Points,
		DistanceKm: leg.ProviderDistanceKm,
		Cost:       leg.Cost,
	}
}

// WriteNetwork 把网络规划结果写成 dir/network-<run id>.geojson
func WriteNetwork(dir string, sites []model.Site, res *planner.NetworkResult) (string, error) {
	fc := FeatureCollection(sites, RoutesFromNetwork(res))
	fc.ExtraMembers = geojson.Properties{"run_id": res.Collection.RunID}
	return WriteFeatureCollection(dir, "network-"+res.Collection.RunID, fc)
}

// WriteBatch 把批量规划结果写成 dir/collection-<run id>.geojson
func WriteBatch(dir string, sites []model.Site, res *planner.BatchResult) (string, error) {
	fc := FeatureCollection(sites, RoutesFromBatch(res))
	fc.ExtraMembers = geojson.Properties{"run_id": res.RunID}
	return WriteFeatureCollection(dir, "collection-"+res.RunID, fc)
}
