package geo

import (
	"math"

	"github.com/cockroachdb/errors"
)

// EarthRadiusMeters is the mean radius used for the spherical approximation.
const EarthRadiusMeters = 6_371_000.0

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" koanf:"latitude"`
	Longitude float64 `json:"longitude" koanf:"longitude"`
}

func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || p.Latitude < -90 || p.Latitude > 90 {
		return errors.Newf("latitude %v out of range [-90, 90]", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < -180 || p.Longitude > 180 {
		return errors.Newf("longitude %v out of range [-180, 180]", p.Longitude)
	}
	return nil
}

// Distance returns the great-circle distance in meters between p1 and p2 using
// the Haversine formula. Inputs are not validated.
func Distance(p1, p2 GeoPoint) float64 {
	phi1 := toRadians(p1.Latitude)
	phi2 := toRadians(p2.Latitude)
	deltaPhi := toRadians(p2.Latitude - p1.Latitude)
	deltaLambda := toRadians(p2.Longitude - p1.Longitude)

	sinPhi := math.Sin(deltaPhi / 2)
	sinLambda := math.Sin(deltaLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
