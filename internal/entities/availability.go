package entities

import "time"

// OccupiedRange is one blocking interval on a hangar's calendar,
// half-open: a checkout at T does not collide with a check-in at T.
type OccupiedRange struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// AvailabilityResponse is advisory calendar data; the authoritative check
// happens inside booking creation.
type AvailabilityResponse struct {
	HangarID       int64           `json:"hangar_id"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OccupiedRanges []OccupiedRange `json:"occupied_ranges"`
}
