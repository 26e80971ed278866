package rules

import (
	"fmt"
	"strings"
	"time"

	"fleetwatch/services/notification/internal/entity"
)

// Compliance fires for the nearest-expiring document once it is within
// windowDays of expiry.
func Compliance(truck entity.Truck, now time.Time, windowDays int) (Condition, bool) {
	if len(truck.Documents) == 0 {
		return Condition{}, false
	}

	nearest := truck.Documents[0]
	for _, doc := range truck.Documents[1:] {
		if doc.ExpiresAt.Before(nearest.ExpiresAt) {
			nearest = doc
		}
	}

	days := daysUntil(nearest.ExpiresAt, now)
	if days > windowDays {
		return Condition{}, false
	}

	kind := documentLabel(nearest.Kind)
	cond := Condition{
		Type:      entity.TypeCompliance,
		Priority:  compliancePriority(days),
		ActionURL: actionURL(truck.ID, "compliance"),
	}

	ref := ""
	if nearest.Reference != "" {
		ref = fmt.Sprintf(" (%s)", nearest.Reference)
	}
	expiry := nearest.ExpiresAt.UTC().Format("2006-01-02")

	if days <= 0 {
		cond.Title = fmt.Sprintf("%s expired for %s", kind, truck.Registration)
		cond.Message = fmt.Sprintf("The %s%s for truck %s expired on %s. The truck should not operate until it is renewed.",
			strings.ToLower(kind), ref, truck.Registration, expiry)
		return cond, true
	}

	cond.Title = fmt.Sprintf("%s expiring for %s", kind, truck.Registration)
	cond.Message = fmt.Sprintf("The %s%s for truck %s expires in %s, on %s.",
		strings.ToLower(kind), ref, truck.Registration, plural(days, "day"), expiry)
	return cond, true
}

func compliancePriority(days int) entity.Priority {
	switch {
	case days <= 0:
		return entity.PriorityCritical
	case days <= 7:
		return entity.PriorityHigh
	case days <= 14:
		return entity.PriorityMedium
	default:
		return entity.PriorityLow
	}
}

func documentLabel(kind string) string {
	if kind == "" {
		return "Document"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
