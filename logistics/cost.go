// Package logistics 计算大豆从农场运到收储中心的每吨成本
package logistics

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"agropath/model"
)

// 默认成本参数
const (
	DefaultProductionCostPerTon = 154.65  // 生产成本 (货币/吨)
	DefaultFuelCostPerTonKm     = 0.01648 // 燃油成本 (货币/吨/公里)
	DefaultOperationalFactor    = 2.5     // 固定运营开销系数 (乘在燃油成本上)
	DefaultReturnTripFactor     = 0.5     // 空车返程占单程燃油成本的比例
)

// ErrInvalidDistance 距离非法 (负数或非数字)
var ErrInvalidDistance = errors.New("距离非法")

// InvalidDistanceError 描述被拒绝的距离输入
type InvalidDistanceError struct {
	Input string
	Km    float64
}

func (e *InvalidDistanceError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("logistics: 距离 %q 非法, 必须是不小于 0 的数字", e.Input)
	}
	return fmt.Sprintf("logistics: 距离 %v 非法, 不能为负数", e.Km)
}

func (e *InvalidDistanceError) Is(target error) bool { return target == ErrInvalidDistance }

// Config 成本模型参数, 全部可覆盖
type Config struct {
	ProductionCostPerTon float64 `json:"production_cost_per_ton"`
	FuelCostPerTonKm     float64 `json:"fuel_cost_per_ton_km"`
	OperationalFactor    float64 `json:"operational_factor"`
	ReturnTripFactor     float64 `json:"return_trip_factor"`
}

// DefaultConfig 返回默认参数
func DefaultConfig() Config {
	return Config{
		ProductionCostPerTon: DefaultProductionCostPerTon,
		FuelCostPerTonKm:     DefaultFuelCostPerTonKm,
		OperationalFactor:    DefaultOperationalFactor,
		ReturnTripFactor:     DefaultReturnTripFactor,
	}
}

// Validate 所有参数必须是非负有限数
func (c Config) Validate() error {
	var errs []error
	check := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("logistics: 参数 %s = %v 非法", name, v))
		}
	}
	check("production_cost_per_ton", c.ProductionCostPerTon)
	check("fuel_cost_per_ton_km", c.FuelCostPerTonKm)
	check("operational_factor", c.OperationalFactor)
	check("return_trip_factor", c.ReturnTripFactor)
	return errors.Join(errs...)
}

// ConfigFromEnv 以默认参数为基础, 读取环境变量覆盖
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	overrides := []struct {
		key string
		dst *float64
	}{
		{"COST_PRODUCTION_PER_TON", &cfg.ProductionCostPerTon},
		{"COST_FUEL_PER_TON_KM", &cfg.FuelCostPerTonKm},
		{"COST_OPERATIONAL_FACTOR", &cfg.OperationalFactor},
		{"COST_RETURN_TRIP_FACTOR", &cfg.ReturnTripFactor},
	}
	for _, o := range overrides {
		raw := os.Getenv(o.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("logistics: 解析环境变量 %s 失败: %w", o.key, err)
		}
		*o.dst = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Cost 根据单程距离 (公里) 计算每吨成本明细
// 纯函数, 内部不做任何舍入, 舍入由展示层负责
func Cost(oneWayDistanceKm float64, cfg Config) (model.CostBreakdown, error) {
	if oneWayDistanceKm < 0 || math.IsNaN(oneWayDistanceKm) || math.IsInf(oneWayDistanceKm, 0) {
		return model.CostBreakdown{}, &InvalidDistanceError{Km: oneWayDistanceKm}
	}
	if err := cfg.Validate(); err != nil {
		return model.CostBreakdown{}, err
	}

	fuelOneWay := oneWayDistanceKm * cfg.FuelCostPerTonKm
	fuelReturn := fuelOneWay * cfg.ReturnTripFactor
	fuelTotal := fuelOneWay + fuelReturn
	operational := fuelTotal * cfg.OperationalFactor
	logistics := fuelTotal + operational

	return model.CostBreakdown{
		OneWayDistanceKm:    oneWayDistanceKm,
		FuelCostOneWay:      fuelOneWay,
		FuelCostReturn:      fuelReturn,
		FuelCostRoundTrip:   fuelTotal,
		OperationalCost:     operational,
		LogisticsCostPerTon: logistics,
		TotalCostPerTon:     cfg.ProductionCostPerTon + logistics,
	}, nil
}

// ParseDistance 解析用户输入的单程距离 (公里)
func ParseDistance(input string) (float64, error) {
	s := strings.TrimSpace(input)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidDistanceError{Input: s}
	}
	if v < 0 {
		return 0, &InvalidDistanceError{Input: s, Km: v}
	}
	return v, nil
}

// FormatBreakdown 格式化成本明细 (保留两位小数)
func FormatBreakdown(b model.CostBreakdown, cfg Config) string {
	line := strings.Repeat("=", 40)
	var sb strings.Builder
	sb.WriteString(line + "\n")
	fmt.Fprintf(&sb, "单程距离: %.2f km\n", b.OneWayDistanceKm)
	fmt.Fprintf(&sb, "生产成本 (固定): $%.2f/ton\n", cfg.ProductionCostPerTon)
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&sb, "单程燃油: $%.2f/ton\n", b.FuelCostOneWay)
	fmt.Fprintf(&sb, "往返燃油: $%.2f/ton\n", b.FuelCostRoundTrip)
	fmt.Fprintf(&sb, "运营成本: $%.2f/ton\n", b.OperationalCost)
	fmt.Fprintf(&sb, "物流成本 (总运费): $%.2f/ton\n", b.LogisticsCostPerTon)
	fmt.Fprintf(&sb, "大豆到站总成本: $%.2f/ton\n", b.TotalCostPerTon)
	sb.WriteString(line + "\n")
	return sb.String()
}
