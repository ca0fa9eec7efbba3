package model

// CostBreakdown 每吨大豆送达收储中心的成本明细 (货币/吨)
// 每次调用重新计算, 不做持久化
type CostBreakdown struct {
	OneWayDistanceKm    float64 `json:"one_way_distance_km"`
	FuelCostOneWay      float64 `json:"fuel_cost_one_way"`
	FuelCostReturn      float64 `json:"fuel_cost_return"`
	FuelCostRoundTrip   float64 `json:"fuel_cost_round_trip"`
	OperationalCost     float64 `json:"operational_cost"`
	LogisticsCostPerTon float64 `json:"logistics_cost_per_ton"`
	TotalCostPerTon     float64 `json:"total_cost_per_ton"`
}
