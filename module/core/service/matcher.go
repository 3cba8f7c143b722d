package service

import (
	"math"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
)

const earthRadiusMeters = 6371000

// Match computes zone membership for a position against the active zone
// snapshot. A zone matches when the great-circle distance to its center is
// within its radius; with several matches the nearest center wins, and an
// exact distance tie falls back to the smallest zone code so the result is
// deterministic. Pure computation, no persistence.
func Match(lat, lng float64, zones []domain.Zone, defaultRadiusM float64) domain.Membership {
	matched := false
	best := domain.Membership{DistanceM: -1}
	nearest := -1.0

	for _, z := range zones {
		radius := z.RadiusM
		if radius <= 0 {
			radius = defaultRadiusM
		}

		d := haversine(lat, lng, z.Lat, z.Lng)
		if nearest < 0 || d < nearest {
			nearest = d
		}
		if d > radius {
			continue
		}

		if !matched || d < best.DistanceM || (d == best.DistanceM && z.Code < best.ZoneCode) {
			best = domain.Membership{ZoneCode: z.Code, DistanceM: d}
			matched = true
		}
	}

	if !matched {
		return domain.Membership{DistanceM: nearest}
	}
	return best
}

// distanceToZone returns the distance from a position to a named zone's
// center, or -1 when the zone is no longer in the snapshot.
func distanceToZone(lat, lng float64, zoneCode string, zones []domain.Zone) float64 {
	for _, z := range zones {
		if z.Code == zoneCode {
			return haversine(lat, lng, z.Lat, z.Lng)
		}
	}
	return -1
}

func findZone(zones []domain.Zone, code string) (domain.Zone, bool) {
	for _, z := range zones {
		if z.Code == code {
			return z, true
		}
	}
	return domain.Zone{}, false
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
