package transit

import (
	"math"
	"sort"

	"campustransit.dev/transit/model"
)

// Great circle distance in kilometers.
func HaversineDistance(aLat, aLon, bLat, bLon float64) float64 {
	const earthRadiusKm = 6371

	aLatRad := aLat * math.Pi / 180
	bLatRad := bLat * math.Pi / 180
	deltaLat := (bLat - aLat) * math.Pi / 180
	deltaLon := (bLon - aLon) * math.Pi / 180

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(aLatRad)*math.Cos(bLatRad)*math.Pow(math.Sin(deltaLon/2), 2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Stops ordered by distance from a point, nearest first. A limit of 0
// or less returns all of them.
func (c *Catalog) NearbyStops(lat float64, lon float64, limit int) []*model.Stop {
	stops := make([]*model.Stop, len(c.stops))
	copy(stops, c.stops)

	sort.SliceStable(stops, func(i, j int) bool {
		di := HaversineDistance(lat, lon, stops[i].Lat, stops[i].Lon)
		dj := HaversineDistance(lat, lon, stops[j].Lat, stops[j].Lon)
		return di < dj
	})

	if limit > 0 && len(stops) > limit {
		stops = stops[:limit]
	}

	return stops
}
