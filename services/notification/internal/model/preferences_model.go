package model

import "time"

type PreferencesModel struct {
	UserID      string    `gorm:"column:user_id;type:uuid;primaryKey"`
	Email       bool      `gorm:"column:email;not null"`
	SMS         bool      `gorm:"column:sms;not null"`
	Push        bool      `gorm:"column:push;not null"`
	Compliance  bool      `gorm:"column:compliance;not null"`
	Maintenance bool      `gorm:"column:maintenance;not null"`
	Fuel        bool      `gorm:"column:fuel;not null"`
	System      bool      `gorm:"column:system;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (PreferencesModel) TableName() string {
	return "notification_preferences"
}
