package util

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points given in
// degrees, rounded to 10 m for display.
func DistanceKm(fromLat, fromLng, toLat, toLng float64) float64 {
	lat1, lat2 := radians(fromLat), radians(toLat)
	dLat := lat2 - lat1
	dLng := radians(toLng - fromLng)

	h := hav(dLat) + math.Cos(lat1)*math.Cos(lat2)*hav(dLng)
	km := 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
	return math.Round(km*100) / 100
}

func hav(theta float64) float64 {
	s := math.Sin(theta / 2)
	return s * s
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
