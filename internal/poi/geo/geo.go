// Package geo holds the spherical math behind radius searches.
package geo

import (
	"math"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

// EarthRadiusKM is the mean Earth radius used by every distance computation.
const EarthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance between a and b using the
// haversine formula.
func DistanceKM(a, b domain.GeoPoint) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dlat := toRadians(b.Lat - a.Lat)
	dlon := toRadians(b.Lng - a.Lng)

	sinDlat := math.Sin(dlat / 2)
	sinDlon := math.Sin(dlon / 2)
	aa := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlon*sinDlon
	if aa > 1 {
		aa = 1
	}
	c := 2 * math.Atan2(math.Sqrt(aa), math.Sqrt(1-aa))
	return EarthRadiusKM * c
}

// Within reports whether p is at most radiusKM away from center.
func Within(center, p domain.GeoPoint, radiusKM float64) bool {
	return DistanceKM(center, p) <= radiusKM
}

// BoundingBoxAround returns a box that encloses every point within radiusKM of
// center. The latitude delta is the angular radius; the longitude delta is
// asin(sin(Δlat)/cos(lat)). When the circle reaches a pole every longitude is
// admitted.
func BoundingBoxAround(center domain.GeoPoint, radiusKM float64) domain.BoundingBox {
	latDeltaRad := radiusKM / EarthRadiusKM
	latDelta := toDegrees(latDeltaRad)

	box := domain.BoundingBox{
		North: math.Min(center.Lat+latDelta, 90),
		South: math.Max(center.Lat-latDelta, -90),
	}

	cosLat := math.Cos(toRadians(center.Lat))
	arg := 1.0
	if cosLat > 1e-12 {
		arg = math.Sin(latDeltaRad) / cosLat
	}
	if box.North >= 90 || box.South <= -90 || arg >= 1 {
		box.West, box.East = -180, 180
		return box
	}

	lonDelta := toDegrees(math.Asin(arg))
	box.West = NormalizeLongitude(center.Lng - lonDelta)
	box.East = NormalizeLongitude(center.Lng + lonDelta)
	return box
}

// NormalizeLongitude folds lng into [-180, 180].
func NormalizeLongitude(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
