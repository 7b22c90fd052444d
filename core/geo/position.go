// Package geo holds the WGS84 position type shared by routing and itineraries.
package geo

import (
	"fmt"
	"math"
	"strings"
)

const earthRadiusKM = 6371.0088

// Position is a WGS84 coordinate.
type Position struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// IsZero reports whether p was never set.
func (p Position) IsZero() bool { return p.Lon == 0 && p.Lat == 0 }

func (p Position) String() string { return fmt.Sprintf("(%.6f, %.6f)", p.Lon, p.Lat) }

// WKT renders p as a WKT point.
func (p Position) WKT() string { return fmt.Sprintf("POINT(%.6f %.6f)", p.Lon, p.Lat) }

// DistanceKM returns the great-circle distance between a and b.
func DistanceKM(a, b Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Interpolate returns the point at fraction f (clamped to [0,1]) of the
// straight segment a→b.
func Interpolate(a, b Position, f float64) Position {
	f = math.Max(0, math.Min(1, f))
	return Position{Lon: a.Lon + (b.Lon-a.Lon)*f, Lat: a.Lat + (b.Lat-a.Lat)*f}
}

// Offset moves p by the given kilometres east and north.
func Offset(p Position, eastKM, northKM float64) Position {
	dLat := northKM / earthRadiusKM * 180 / math.Pi
	dLon := eastKM / (earthRadiusKM * math.Cos(p.Lat*math.Pi/180)) * 180 / math.Pi
	return Position{Lon: p.Lon + dLon, Lat: p.Lat + dLat}
}

// LineWKT renders the positions as a WKT linestring. A single point yields a
// WKT point and no points yields an empty string.
func LineWKT(ps []Position) string {
	switch len(ps) {
	case 0:
		return ""
	case 1:
		return ps[0].WKT()
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%.6f %.6f", p.Lon, p.Lat)
	}
	return "LINESTRING(" + strings.Join(parts, ", ") + ")"
}
