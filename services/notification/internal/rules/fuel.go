package rules

import (
	"fmt"
	"sort"

	"fleetwatch/services/notification/internal/entity"
)

const (
	fuelBaselineMax = 10
	fuelBaselineMin = 3
)

// FuelAnomaly compares the latest consumption in L/100km with the mean of up
// to ten earlier logs. It needs at least three earlier logs to say anything.
func FuelAnomaly(truck entity.Truck, threshold float64) (Condition, bool) {
	logs := make([]entity.FuelLog, 0, len(truck.FuelLogs))
	for _, l := range truck.FuelLogs {
		if l.DistanceKm > 0 {
			logs = append(logs, l)
		}
	}
	if len(logs) < fuelBaselineMin+1 {
		return Condition{}, false
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LoggedAt.Before(logs[j].LoggedAt)
	})

	latest := consumption(logs[len(logs)-1])
	prior := logs[:len(logs)-1]
	if len(prior) > fuelBaselineMax {
		prior = prior[len(prior)-fuelBaselineMax:]
	}

	var sum float64
	for _, l := range prior {
		sum += consumption(l)
	}
	baseline := sum / float64(len(prior))
	if baseline <= 0 {
		return Condition{}, false
	}

	deviation := (latest - baseline) / baseline
	if deviation < threshold {
		return Condition{}, false
	}

	return Condition{
		Type:     entity.TypeFuel,
		Priority: fuelPriority(deviation),
		Title:    fmt.Sprintf("Unusual fuel consumption on %s", truck.Registration),
		Message: fmt.Sprintf("Truck %s used %.1f L/100km on its latest fill, %.0f%% above its recent average of %.1f L/100km.",
			truck.Registration, latest, deviation*100, baseline),
		ActionURL: actionURL(truck.ID, "fuel"),
	}, true
}

func consumption(l entity.FuelLog) float64 {
	return l.Litres / l.DistanceKm * 100
}

func fuelPriority(deviation float64) entity.Priority {
	switch {
	case deviation >= 0.50:
		return entity.PriorityCritical
	case deviation >= 0.35:
		return entity.PriorityHigh
	case deviation >= 0.25:
		return entity.PriorityMedium
	default:
		return entity.PriorityLow
	}
}
