package domain

import "time"

// LocationUpdate is a last-known-location write produced by send_location.
type LocationUpdate struct {
	UserID    Identity
	Latitude  float64
	Longitude float64
	At        time.Time
}
