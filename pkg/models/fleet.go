package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TruckStatus string

const (
	TruckStatusActive      TruckStatus = "active"
	TruckStatusMaintenance TruckStatus = "maintenance"
	TruckStatusRetired     TruckStatus = "retired"
)

type Truck struct {
	ID               string      `gorm:"type:uuid;primary_key" json:"id"`
	Registration     string      `gorm:"uniqueIndex;not null" json:"registration"`
	Make             string      `json:"make"`
	Model            string      `json:"model"`
	Status           TruckStatus `gorm:"type:varchar(20);not null" json:"status"`
	OdometerKm       int         `gorm:"not null" json:"odometer_km"`
	AssignedDriverID *string     `gorm:"type:uuid" json:"assigned_driver_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	Documents []ComplianceDocument  `gorm:"foreignKey:TruckID" json:"documents,omitempty"`
	Schedules []MaintenanceSchedule `gorm:"foreignKey:TruckID" json:"schedules,omitempty"`
	FuelLogs  []FuelLog             `gorm:"foreignKey:TruckID" json:"fuel_logs,omitempty"`
}

func (t *Truck) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

type DocumentKind string

const (
	DocumentRegistration DocumentKind = "registration"
	DocumentInsurance    DocumentKind = "insurance"
	DocumentInspection   DocumentKind = "inspection"
	DocumentPermit       DocumentKind = "permit"
)

type ComplianceDocument struct {
	ID        string       `gorm:"type:uuid;primary_key" json:"id"`
	TruckID   string       `gorm:"type:uuid;not null;index" json:"truck_id"`
	Kind      DocumentKind `gorm:"type:varchar(20);not null" json:"kind"`
	Reference string       `json:"reference"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
}

func (d *ComplianceDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

type MaintenanceSchedule struct {
	ID            string     `gorm:"type:uuid;primary_key" json:"id"`
	TruckID       string     `gorm:"type:uuid;not null;index" json:"truck_id"`
	Description   string     `gorm:"not null" json:"description"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	DueOdometerKm *int       `json:"due_odometer_km,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (m *MaintenanceSchedule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

type FuelLog struct {
	ID         string    `gorm:"type:uuid;primary_key" json:"id"`
	TruckID    string    `gorm:"type:uuid;not null;index" json:"truck_id"`
	Litres     float64   `gorm:"not null" json:"litres"`
	DistanceKm float64   `gorm:"not null" json:"distance_km"`
	LoggedAt   time.Time `gorm:"not null" json:"logged_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f *FuelLog) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}
