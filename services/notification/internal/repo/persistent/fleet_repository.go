package persistent

import (
	"context"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/models"
	"fleetwatch/services/notification/internal/entity"

	"gorm.io/gorm"
)

// FleetRepository reads the fleet tables owned by the wider application.
type FleetRepository interface {
	ListMonitoredTrucks(ctx context.Context) ([]entity.Truck, error)
}

type fleetRepository struct {
	db *gorm.DB
}

func NewFleetRepository(db *gorm.DB) FleetRepository {
	return &fleetRepository{db: db}
}

func (r *fleetRepository) ListMonitoredTrucks(ctx context.Context) ([]entity.Truck, error) {
	var rows []models.Truck
	err := r.db.WithContext(ctx).
		Where("status <> ?", models.TruckStatusRetired).
		Preload("Documents").
		Preload("Schedules", "completed_at IS NULL").
		Preload("FuelLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("logged_at ASC")
		}).
		Order("registration ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.PersistenceFailure("scan trucks", err)
	}

	trucks := make([]entity.Truck, len(rows))
	for i := range rows {
		trucks[i] = ToTruckEntity(&rows[i])
	}
	return trucks, nil
}
