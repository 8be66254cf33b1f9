package storage

import "math"

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two
// coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// boundingBox returns the latitude/longitude deltas enclosing a
// radius around a point, used to prefilter candidates in SQL before
// the exact distance check.
func boundingBox(lat float64, radiusMeters float64) (dLat, dLng float64) {
	dLat = radiusMeters / earthRadiusMeters * 180 / math.Pi
	cos := math.Cos(radians(lat))
	if cos < 0.01 {
		cos = 0.01 // near the poles every longitude is close
	}
	dLng = dLat / cos
	return dLat, dLng
}
