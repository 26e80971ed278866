package entity

import (
	"sort"
	"time"
)

type Type string

const (
	TypeCompliance  Type = "compliance"
	TypeMaintenance Type = "maintenance"
	TypeFuel        Type = "fuel"
	TypeSystem      Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCompliance, TypeMaintenance, TypeFuel, TypeSystem:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from low (1) to critical (4). Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

type RetireReason string

const (
	RetireExpired    RetireReason = "expired"
	RetireCleared    RetireReason = "cleared"
	RetireSuperseded RetireReason = "superseded"
)

type Notification struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	Type              Type         `json:"type"`
	Priority          Priority     `json:"priority"`
	Title             string       `json:"title"`
	Message           string       `json:"message"`
	TruckID           string       `json:"truck_id,omitempty"`
	TruckRegistration string       `json:"truck_registration,omitempty"`
	ActionURL         string       `json:"action_url,omitempty"`
	IsRead            bool         `json:"is_read"`
	CreatedAt         time.Time    `json:"created_at"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`
	RetiredAt         *time.Time   `json:"retired_at,omitempty"`
	RetiredReason     RetireReason `json:"retired_reason,omitempty"`
	ActiveKey         string       `json:"-"`
}

// IsActive reports whether n is neither retired nor past its expiry at now.
func (n *Notification) IsActive(now time.Time) bool {
	if n.RetiredAt != nil {
		return false
	}
	return n.ExpiresAt == nil || n.ExpiresAt.After(now)
}

// ActiveKey identifies the single active evaluator notification a user may
// hold for one truck condition.
func ActiveKey(userID, truckID string, t Type) string {
	return userID + ":" + truckID + ":" + string(t)
}

// SortForInbox orders by priority descending, then newest first.
func SortForInbox(notifications []Notification) {
	sort.SliceStable(notifications, func(i, j int) bool {
		ri, rj := notifications[i].Priority.Rank(), notifications[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
}
