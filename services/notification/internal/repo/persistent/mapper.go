package persistent

import (
	"fleetwatch/pkg/models"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/model"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ToNotificationEntity(m *model.NotificationModel) *entity.Notification {
	if m == nil {
		return nil
	}
	return &entity.Notification{
		ID:                m.ID,
		UserID:            m.UserID,
		Type:              entity.Type(m.Type),
		Priority:          entity.Priority(m.Priority),
		Title:             m.Title,
		Message:           m.Message,
		TruckID:           deref(m.TruckID),
		TruckRegistration: deref(m.TruckRegistration),
		ActionURL:         deref(m.ActionURL),
		IsRead:            m.IsRead,
		CreatedAt:         m.CreatedAt,
		ExpiresAt:         m.ExpiresAt,
		RetiredAt:         m.RetiredAt,
		RetiredReason:     entity.RetireReason(deref(m.RetiredReason)),
		ActiveKey:         deref(m.ActiveKey),
	}
}

func ToNotificationEntities(ms []model.NotificationModel) []entity.Notification {
	out := make([]entity.Notification, len(ms))
	for i := range ms {
		out[i] = *ToNotificationEntity(&ms[i])
	}
	return out
}

func ToNotificationModel(e *entity.Notification) *model.NotificationModel {
	if e == nil {
		return nil
	}
	return &model.NotificationModel{
		ID:                e.ID,
		UserID:            e.UserID,
		Type:              string(e.Type),
		Priority:          string(e.Priority),
		Title:             e.Title,
		Message:           e.Message,
		TruckID:           optional(e.TruckID),
		TruckRegistration: optional(e.TruckRegistration),
		ActionURL:         optional(e.ActionURL),
		IsRead:            e.IsRead,
		CreatedAt:         e.CreatedAt,
		ExpiresAt:         e.ExpiresAt,
		RetiredAt:         e.RetiredAt,
		RetiredReason:     optional(string(e.RetiredReason)),
		ActiveKey:         optional(e.ActiveKey),
	}
}

func ToPreferencesEntity(m *model.PreferencesModel) entity.Preferences {
	return entity.Preferences{
		UserID:      m.UserID,
		Email:       m.Email,
		SMS:         m.SMS,
		Push:        m.Push,
		Compliance:  m.Compliance,
		Maintenance: m.Maintenance,
		Fuel:        m.Fuel,
		System:      m.System,
		UpdatedAt:   m.UpdatedAt,
	}
}

func ToPreferencesModel(e entity.Preferences) *model.PreferencesModel {
	return &model.PreferencesModel{
		UserID:      e.UserID,
		Email:       e.Email,
		SMS:         e.SMS,
		Push:        e.Push,
		Compliance:  e.Compliance,
		Maintenance: e.Maintenance,
		Fuel:        e.Fuel,
		System:      e.System,
		UpdatedAt:   e.UpdatedAt,
	}
}

func ToTruckEntity(m *models.Truck) entity.Truck {
	t := entity.Truck{
		ID:               m.ID,
		Registration:     m.Registration,
		OdometerKm:       m.OdometerKm,
		AssignedDriverID: deref(m.AssignedDriverID),
		Documents:        make([]entity.ComplianceDocument, len(m.Documents)),
		Schedules:        make([]entity.MaintenanceSchedule, len(m.Schedules)),
		FuelLogs:         make([]entity.FuelLog, len(m.FuelLogs)),
	}
	for i, d := range m.Documents {
		t.Documents[i] = entity.ComplianceDocument{Kind: string(d.Kind), Reference: d.Reference, ExpiresAt: d.ExpiresAt}
	}
	for i, s := range m.Schedules {
		t.Schedules[i] = entity.MaintenanceSchedule{
			Description:   s.Description,
			DueAt:         s.DueAt,
			DueOdometerKm: s.DueOdometerKm,
			CompletedAt:   s.CompletedAt,
		}
	}
	for i, f := range m.FuelLogs {
		t.FuelLogs[i] = entity.FuelLog{Litres: f.Litres, DistanceKm: f.DistanceKm, LoggedAt: f.LoggedAt}
	}
	return t
}

func ToRecipientEntity(m *models.User) entity.Recipient {
	return entity.Recipient{
		UserID: m.ID,
		Name:   m.Name,
		Email:  m.Email,
		Phone:  m.Phone,
		Role:   string(m.Role),
	}
}
