package persistent

import (
	"context"
	"errors"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	activeClause = "retired_at IS NULL AND (expires_at IS NULL OR expires_at > ?)"
	priorityDesc = "CASE priority WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC"
)

type NotificationRepository interface {
	// ListActiveManaged returns active notifications that hold an evaluator key.
	ListActiveManaged(ctx context.Context, now time.Time) ([]entity.Notification, error)
	// CreateIfAbsent inserts n unless its active key is taken. It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, n *entity.Notification) (bool, error)
	Create(ctx context.Context, n *entity.Notification) error
	Retire(ctx context.Context, ids []string, reason entity.RetireReason, at time.Time) (int64, error)
	RetireExpired(ctx context.Context, now time.Time) (int64, error)
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	ListUnread(ctx context.Context, userID string, now time.Time) ([]entity.Notification, error)
	ListForUser(ctx context.Context, userID string, now time.Time, limit, offset int) ([]entity.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error)
	MarkRead(ctx context.Context, userID, id string, now time.Time) (bool, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ListActiveManaged(ctx context.Context, now time.Time) ([]entity.Notification, error) {
	var rows []model.NotificationModel
	err := r.db.WithContext(ctx).
		Where("active_key IS NOT NULL").
		Where(activeClause, now).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.PersistenceFailure("load active notifications", err)
	}
	return ToNotificationEntities(rows), nil
}

func (r *notificationRepository) CreateIfAbsent(ctx context.Context, n *entity.Notification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ToNotificationModel(n))
	if result.Error != nil {
		return false, apperrors.PersistenceFailure("insert notification", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if err := r.db.WithContext(ctx).Create(ToNotificationModel(n)).Error; err != nil {
		return apperrors.PersistenceFailure("insert notification", err)
	}
	return nil
}

func retirement(reason entity.RetireReason, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"retired_at":     at,
		"retired_reason": string(reason),
		"active_key":     gorm.Expr("NULL"),
	}
}

func (r *notificationRepository) Retire(ctx context.Context, ids []string, reason entity.RetireReason, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("id IN ? AND retired_at IS NULL", ids).
		Updates(retirement(reason, at))
	if result.Error != nil {
		return 0, apperrors.PersistenceFailure("retire notifications", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) RetireExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("retired_at IS NULL AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Updates(retirement(entity.RetireExpired, now))
	if result.Error != nil {
		return 0, apperrors.PersistenceFailure("retire expired notifications", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	var row model.NotificationModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Notification not found")
	}
	if err != nil {
		return nil, apperrors.PersistenceFailure("load notification", err)
	}
	return ToNotificationEntity(&row), nil
}

func (r *notificationRepository) ListUnread(ctx context.Context, userID string, now time.Time) ([]entity.Notification, error) {
	var rows []model.NotificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, false).
		Where(activeClause, now).
		Order(priorityDesc).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.PersistenceFailure("load unread notifications", err)
	}
	return ToNotificationEntities(rows), nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, now time.Time, limit, offset int) ([]entity.Notification, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("user_id = ?", userID).
		Where(activeClause, now)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.PersistenceFailure("count notifications", err)
	}

	var rows []model.NotificationModel
	err := base.Session(&gorm.Session{}).
		Order(priorityDesc).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, apperrors.PersistenceFailure("load notifications", err)
	}
	return ToNotificationEntities(rows), total, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Where(activeClause, now).
		Update("is_read", true)
	if result.Error != nil {
		return 0, apperrors.PersistenceFailure("mark notifications read", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Where(activeClause, now).
		Update("is_read", true)
	if result.Error != nil {
		return false, apperrors.PersistenceFailure("mark notification read", result.Error)
	}
	return result.RowsAffected > 0, nil
}
