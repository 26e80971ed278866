package entity

import "time"

// CheckReport summarises one automated check run.
type CheckReport struct {
	TrucksScanned  int       `json:"trucks_scanned"`
	Created        int       `json:"created"`
	Superseded     int       `json:"superseded"`
	Cleared        int       `json:"cleared"`
	Expired        int       `json:"expired"`
	Delivered      int       `json:"delivered"`
	DeliveryFailed bool      `json:"delivery_failed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
