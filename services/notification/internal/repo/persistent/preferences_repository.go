package persistent

import (
	"context"
	"errors"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferencesRepository interface {
	// Get returns the stored preferences, or the defaults when none are stored.
	Get(ctx context.Context, userID string) (entity.Preferences, error)
	// GetMany returns one entry per requested user, defaults filled in.
	GetMany(ctx context.Context, userIDs []string) (map[string]entity.Preferences, error)
	Upsert(ctx context.Context, prefs entity.Preferences) error
}

type preferencesRepository struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) PreferencesRepository {
	return &preferencesRepository{db: db}
}

func (r *preferencesRepository) Get(ctx context.Context, userID string) (entity.Preferences, error) {
	var row model.PreferencesModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.DefaultPreferences(userID), nil
	}
	if err != nil {
		return entity.Preferences{}, apperrors.PersistenceFailure("load notification preferences", err)
	}
	return ToPreferencesEntity(&row), nil
}

func (r *preferencesRepository) GetMany(ctx context.Context, userIDs []string) (map[string]entity.Preferences, error) {
	out := make(map[string]entity.Preferences, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []model.PreferencesModel
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, apperrors.PersistenceFailure("load notification preferences", err)
	}
	for i := range rows {
		out[rows[i].UserID] = ToPreferencesEntity(&rows[i])
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = entity.DefaultPreferences(id)
		}
	}
	return out, nil
}

func (r *preferencesRepository) Upsert(ctx context.Context, prefs entity.Preferences) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(ToPreferencesModel(prefs)).Error
	if err != nil {
		return apperrors.PersistenceFailure("save notification preferences", err)
	}
	return nil
}
