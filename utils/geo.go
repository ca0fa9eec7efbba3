package utils

import (
	"math"

	"agropath/model"
)

// WGS84 参考椭球参数
const (
	EarthRadius     = 6378137.0         // 长半轴 (米)
	WGS84Flattening = 1 / 298.257223563 // 扁率
	WGS84MinorAxis  = EarthRadius * (1 - WGS84Flattening)

	// MeanEarthRadius 平均地球半径 (米), 仅用于球面近似
	MeanEarthRadius = 6371008.8
)

const (
	vincentyMaxIterations = 200
	vincentyTolerance     = 1e-12
)

// DegreesToRadians 角度转弧度
func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// Distance 两点间的大地线距离 (米), 用作路线图中所有边的权重
// 优先使用 Vincenty 椭球公式, 不收敛时 (近对跖点) 退回 Haversine
// 参数顺序被规范化, 保证 Distance(a, b) == Distance(b, a)
func Distance(a, b model.GeoPoint) float64 {
	if a == b {
		return 0
	}
	if pointLess(b, a) {
		a, b = b, a
	}
	if d, ok := VincentyDistance(a, b); ok {
		return d
	}
	return HaversineDistance(a, b)
}

// VincentyDistance Vincenty 反算公式 (WGS84 椭球)
// 第二个返回值为 false 表示迭代未收敛
func VincentyDistance(p1, p2 model.GeoPoint) (float64, bool) {
	const a, b, f = EarthRadius, WGS84MinorAxis, WGS84Flattening

	L := DegreesToRadians(p2.Lng - p1.Lng)
	U1 := math.Atan((1 - f) * math.Tan(DegreesToRadians(p1.Lat)))
	U2 := math.Atan((1 - f) * math.Tan(DegreesToRadians(p2.Lat)))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	for i := 0; i < vincentyMaxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		x := cosU2 * sinLambda
		y := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma := math.Sqrt(x*x + y*y)
		if sinSigma == 0 {
			return 0, true // 重合点
		}
		cosSigma := sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma := math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha := 1 - sinAlpha*sinAlpha

		// 赤道线上 cos2Alpha == 0
		cos2SigmaM := 0.0
		if cos2Alpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		}

		C := f / 16 * cos2Alpha * (4 + f*(4-3*cos2Alpha))
		prev := lambda
		lambda = L + (1-C)*f*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < vincentyTolerance {
			u2 := cos2Alpha * (a*a - b*b) / (b * b)
			A := 1 + u2/16384*(4096+u2*(-768+u2*(320-175*u2)))
			B := u2 / 1024 * (256 + u2*(-128+u2*(74-47*u2)))
			deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
				B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
			return b * A * (sigma - deltaSigma), true
		}
	}
	return 0, false
}

// HaversineDistance Haversine 公式 (球面距离, 平均地球半径)
func HaversineDistance(p1, p2 model.GeoPoint) float64 {
	lat1 := DegreesToRadians(p1.Lat)
	lon1 := DegreesToRadians(p1.Lng)
	lat2 := DegreesToRadians(p2.Lat)
	lon2 := DegreesToRadians(p2.Lng)

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	// a = sin²(Δlat/2) + cos(lat1) * cos(lat2) * sin²(Δlon/2)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// c = 2 * atan2(√a, √(1-a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return MeanEarthRadius * c
}

func pointLess(a, b model.GeoPoint) bool {
	if a.Lat != b.Lat {
		return a.Lat < b.Lat
	}
	return a.Lng < b.Lng
}
