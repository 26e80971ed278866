package rules

import (
	"fmt"
	"time"

	"fleetwatch/services/notification/internal/entity"
)

type maintenanceDue struct {
	schedule entity.MaintenanceSchedule
	priority entity.Priority
	days     *int
	km       *int
}

// Maintenance fires for the most urgent open schedule that is due within
// windowDays or windowKm, whichever comes first.
func Maintenance(truck entity.Truck, now time.Time, windowDays, windowKm int) (Condition, bool) {
	var worst *maintenanceDue

	for _, s := range truck.Schedules {
		if s.CompletedAt != nil {
			continue
		}
		due, ok := evaluateSchedule(s, truck.OdometerKm, now, windowDays, windowKm)
		if !ok {
			continue
		}
		if worst == nil || moreUrgent(due, *worst) {
			d := due
			worst = &d
		}
	}

	if worst == nil {
		return Condition{}, false
	}

	cond := Condition{
		Type:      entity.TypeMaintenance,
		Priority:  worst.priority,
		ActionURL: actionURL(truck.ID, "maintenance"),
	}

	if worst.priority == entity.PriorityCritical {
		cond.Title = fmt.Sprintf("Maintenance overdue for %s", truck.Registration)
	} else {
		cond.Title = fmt.Sprintf("Maintenance due for %s", truck.Registration)
	}
	cond.Message = fmt.Sprintf("%s on truck %s is %s.", worst.schedule.Description, truck.Registration, describeDue(*worst))
	return cond, true
}

func evaluateSchedule(s entity.MaintenanceSchedule, odometerKm int, now time.Time, windowDays, windowKm int) (maintenanceDue, bool) {
	due := maintenanceDue{schedule: s}
	inWindow := false

	if s.DueAt != nil {
		d := daysUntil(*s.DueAt, now)
		due.days = &d
		inWindow = inWindow || d <= windowDays
	}
	if s.DueOdometerKm != nil {
		k := *s.DueOdometerKm - odometerKm
		due.km = &k
		inWindow = inWindow || k <= windowKm
	}
	if !inWindow {
		return maintenanceDue{}, false
	}

	due.priority = maintenancePriority(due.days, due.km)
	return due, true
}

// maintenancePriority takes the more urgent reading of the two measures.
func maintenancePriority(days, km *int) entity.Priority {
	within := func(dayLimit, kmLimit int) bool {
		return (days != nil && *days <= dayLimit) || (km != nil && *km <= kmLimit)
	}

	switch {
	case within(0, 0):
		return entity.PriorityCritical
	case within(3, 250):
		return entity.PriorityHigh
	case within(7, 1000):
		return entity.PriorityMedium
	default:
		return entity.PriorityLow
	}
}

func moreUrgent(a, b maintenanceDue) bool {
	if a.priority.Rank() != b.priority.Rank() {
		return a.priority.Rank() > b.priority.Rank()
	}
	if a.days != nil && b.days != nil && *a.days != *b.days {
		return *a.days < *b.days
	}
	if a.km != nil && b.km != nil {
		return *a.km < *b.km
	}
	return false
}

func describeDue(due maintenanceDue) string {
	var parts []string
	if due.days != nil {
		switch d := *due.days; {
		case d < 0:
			parts = append(parts, fmt.Sprintf("%s overdue", plural(-d, "day")))
		case d == 0:
			parts = append(parts, "due today")
		default:
			parts = append(parts, fmt.Sprintf("due in %s", plural(d, "day")))
		}
	}
	if due.km != nil {
		if k := *due.km; k <= 0 {
			parts = append(parts, fmt.Sprintf("%d km past its service interval", -k))
		} else {
			parts = append(parts, fmt.Sprintf("due in %d km", k))
		}
	}
	if len(parts) == 2 {
		return parts[0] + " or " + parts[1]
	}
	return parts[0]
}
