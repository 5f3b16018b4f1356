// Package models defines data structures and domain types.
package models

import (
	"math"
	"time"
)

// Coordinates is a bare latitude/longitude pair as sent to the server.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationSample is a single position fix. Samples are never mutated after
// creation; a newer fix replaces the whole value.
type LocationSample struct {
	Timestamp time.Time `json:"timestamp"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Coordinates
}

// Age returns how old the sample is relative to now.
func (s LocationSample) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// FreshAt reports whether the sample is younger than ttl at now.
func (s LocationSample) FreshAt(now time.Time, ttl time.Duration) bool {
	return !s.Timestamp.IsZero() && s.Age(now) < ttl
}

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
