package recommend

import "math"

const earthRadiusKm = 6371.0

// HaversineDistance は2点間の大圏距離をkmで返します。座標の範囲チェックは呼び出し側で行います
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceScore は距離に対する減衰スコアです。0kmで50点、2kmごとに1/eになります
func DistanceScore(distanceKm float64) float64 {
	return 50 * math.Exp(-distanceKm/2.0)
}
