package entities

import "time"

// ConflictPair is two blocking reservations found occupying overlapping
// intervals on the same hangar. Structurally impossible unless something
// bypassed the booking path, so every pair is an integrity violation.
type ConflictPair struct {
	FirstCode   string    `json:"first_code"`
	SecondCode  string    `json:"second_code"`
	OverlapFrom time.Time `json:"overlap_from"`
	OverlapTo   time.Time `json:"overlap_to"`
}

type HangarConflicts struct {
	HangarID  int64          `json:"hangar_id"`
	Conflicts []ConflictPair `json:"conflicts"`
}

type ConflictReport struct {
	From    time.Time         `json:"from"`
	To      time.Time         `json:"to"`
	Hangars []HangarConflicts `json:"hangars"`
}
