package persistent

import (
	"context"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/models"
	"fleetwatch/services/notification/internal/entity"

	"gorm.io/gorm"
)

type UserRepository interface {
	// ListRecipients returns active users that can receive fleet notifications:
	// admins, fleet managers and drivers.
	ListRecipients(ctx context.Context) ([]entity.Recipient, error)
	ListActive(ctx context.Context) ([]entity.Recipient, error)
	GetRecipients(ctx context.Context, ids []string) ([]entity.Recipient, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) ListRecipients(ctx context.Context) ([]entity.Recipient, error) {
	roles := []models.UserRole{models.RoleAdmin, models.RoleFleetManager, models.RoleDriver}
	return r.find(ctx, "load recipients", r.db.Where("is_active = ? AND role IN ?", true, roles))
}

func (r *userRepository) ListActive(ctx context.Context) ([]entity.Recipient, error) {
	return r.find(ctx, "load users", r.db.Where("is_active = ?", true))
}

func (r *userRepository) GetRecipients(ctx context.Context, ids []string) ([]entity.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, "load recipients", r.db.Where("id IN ?", ids))
}

func (r *userRepository) find(ctx context.Context, op string, query *gorm.DB) ([]entity.Recipient, error) {
	var rows []models.User
	if err := query.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, apperrors.PersistenceFailure(op, err)
	}
	out := make([]entity.Recipient, len(rows))
	for i := range rows {
		out[i] = ToRecipientEntity(&rows[i])
	}
	return out, nil
}
