package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// LatLong is a coordinate pair in decimal degrees.
type LatLong struct {
	Lat  float64 `json:"lat" msgpack:"lat"`
	Long float64 `json:"long" msgpack:"long"`
}

// Point converts to an orb.Point, which stores longitude first.
func (ll LatLong) Point() orb.Point {
	return orb.Point{ll.Long, ll.Lat}
}

// Valid reports whether both components parsed to finite values.
func (ll LatLong) Valid() bool {
	return !math.IsNaN(ll.Lat) && !math.IsNaN(ll.Long) &&
		!math.IsInf(ll.Lat, 0) && !math.IsInf(ll.Long, 0)
}

func (ll LatLong) String() string {
	return fmt.Sprintf("(%f, %f)", ll.Lat, ll.Long)
}

// ParseCoordinate parses a decimal-degree string. Malformed text yields NaN
// rather than an error.
func ParseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseLatLong parses a latitude/longitude text pair.
func ParseLatLong(lat, long string) LatLong {
	return LatLong{Lat: ParseCoordinate(lat), Long: ParseCoordinate(long)}
}

// Distance returns the great-circle distance in metres between a and b.
// NaN propagates when either point is invalid.
func Distance(a, b LatLong) float64 {
	if !a.Valid() || !b.Valid() {
		return math.NaN()
	}
	return geo.Distance(a.Point(), b.Point())
}

// Nearest returns the index of the location closest to hint. Ties, and
// candidates whose distance is NaN, keep the earliest index. It returns -1
// for an empty slice.
func Nearest(hint LatLong, locations []LatLong) int {
	best, bestDist := -1, math.Inf(1)
	for i, loc := range locations {
		d := Distance(hint, loc)
		if best == -1 {
			best = i
			if !math.IsNaN(d) {
				bestDist = d
			}
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
