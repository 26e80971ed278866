package model

import "time"

type NotificationModel struct {
	ID                string     `gorm:"column:id;type:uuid;primaryKey"`
	UserID            string     `gorm:"column:user_id;type:uuid;not null"`
	Type              string     `gorm:"column:type;type:varchar(20);not null"`
	Priority          string     `gorm:"column:priority;type:varchar(10);not null"`
	Title             string     `gorm:"column:title;type:varchar(255);not null"`
	Message           string     `gorm:"column:message;type:text;not null"`
	TruckID           *string    `gorm:"column:truck_id;type:uuid"`
	TruckRegistration *string    `gorm:"column:truck_registration;type:varchar(32)"`
	ActionURL         *string    `gorm:"column:action_url;type:varchar(512)"`
	IsRead            bool       `gorm:"column:is_read;not null"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
	ExpiresAt         *time.Time `gorm:"column:expires_at"`
	RetiredAt         *time.Time `gorm:"column:retired_at"`
	RetiredReason     *string    `gorm:"column:retired_reason;type:varchar(20)"`
	ActiveKey         *string    `gorm:"column:active_key;type:varchar(160)"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}
