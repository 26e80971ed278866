package entity

import "time"

// Truck is the read-only view of a monitored vehicle used by the condition rules.
type Truck struct {
	ID               string
	Registration     string
	OdometerKm       int
	AssignedDriverID string
	Documents        []ComplianceDocument
	Schedules        []MaintenanceSchedule
	FuelLogs         []FuelLog
}

type ComplianceDocument struct {
	Kind      string
	Reference string
	ExpiresAt time.Time
}

type MaintenanceSchedule struct {
	Description   string
	DueAt         *time.Time
	DueOdometerKm *int
	CompletedAt   *time.Time
}

type FuelLog struct {
	Litres     float64
	DistanceKm float64
	LoggedAt   time.Time
}

type Recipient struct {
	UserID string
	Name   string
	Email  string
	Phone  string
	Role   string
}
