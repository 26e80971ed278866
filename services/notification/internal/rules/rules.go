// Package rules derives notification conditions from a truck snapshot.
// Rules are pure: they read only their inputs and the supplied instant.
package rules

import (
	"fmt"
	"math"
	"time"

	"fleetwatch/services/notification/internal/entity"
)

const day = 24 * time.Hour

// Condition is a monitored condition that currently holds for a truck.
type Condition struct {
	Type      entity.Type
	Priority  entity.Priority
	Title     string
	Message   string
	ActionURL string
}

type Thresholds struct {
	ComplianceWindowDays  int
	MaintenanceWindowDays int
	MaintenanceWindowKm   int
	FuelAnomalyThreshold  float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ComplianceWindowDays:  30,
		MaintenanceWindowDays: 14,
		MaintenanceWindowKm:   2000,
		FuelAnomalyThreshold:  0.15,
	}
}

// Rule evaluates one notification type for a truck. ok is false when the
// condition does not hold.
type Rule struct {
	Type     entity.Type
	Evaluate func(truck entity.Truck, now time.Time) (cond Condition, ok bool)
}

// Standard returns the compliance, maintenance and fuel rules in that order.
func Standard(th Thresholds) []Rule {
	return []Rule{
		{Type: entity.TypeCompliance, Evaluate: func(t entity.Truck, now time.Time) (Condition, bool) {
			return Compliance(t, now, th.ComplianceWindowDays)
		}},
		{Type: entity.TypeMaintenance, Evaluate: func(t entity.Truck, now time.Time) (Condition, bool) {
			return Maintenance(t, now, th.MaintenanceWindowDays, th.MaintenanceWindowKm)
		}},
		{Type: entity.TypeFuel, Evaluate: func(t entity.Truck, now time.Time) (Condition, bool) {
			return FuelAnomaly(t, th.FuelAnomalyThreshold)
		}},
	}
}

// daysUntil rounds up, so anything due later today counts as one day away
// and anything already past counts as zero or less.
func daysUntil(deadline, now time.Time) int {
	return int(math.Ceil(float64(deadline.Sub(now)) / float64(day)))
}

func actionURL(truckID, section string) string {
	return fmt.Sprintf("/trucks/%s/%s", truckID, section)
}

func plural(n int, unit string) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
