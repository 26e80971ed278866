package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"fleetwatch/pkg/config"
	"fleetwatch/pkg/database"
	"fleetwatch/pkg/jwt"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	var (
		email    = flag.String("email", "admin@fleetwatch.local", "admin email")
		password = flag.String("password", "admin123", "admin password")
		name     = flag.String("name", "Fleet Admin", "admin display name")
		demo     = flag.Bool("demo", false, "also seed demo drivers, trucks, documents, schedules and fuel logs")
		token    = flag.Bool("token", false, "print a development JWT for the admin")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}
	defer database.Close(db)

	admin, err := seedUser(db, log, *email, *name, "", *password, models.RoleAdmin)
	if err != nil {
		log.Error("Failed to seed admin: %v", err)
		panic(err)
	}

	if *demo {
		if err := seedDemoFleet(db, log); err != nil {
			log.Error("Failed to seed demo fleet: %v", err)
			panic(err)
		}
	}

	if *token {
		t, err := jwt.NewService(cfg.JWTSecret).GenerateToken(admin.ID, string(admin.Role))
		if err != nil {
			panic(err)
		}
		fmt.Println(t)
	}

	log.Info("Database seeded successfully!")
}

// seedUser creates the user unless one with the same email exists, and makes
// sure default notification preferences are stored for it.
func seedUser(db *gorm.DB, log *logger.Logger, email, name, phone, password string, role models.UserRole) (*models.User, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Info("User %s already exists, skipping", email)
		return &existing, ensurePreferences(db, existing.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Name:     name,
		Phone:    phone,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	log.Info("Created %s: %s (%s)", role, name, email)

	return user, ensurePreferences(db, user.ID)
}

func ensurePreferences(db *gorm.DB, userID string) error {
	return db.Table("notification_preferences").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{
			"user_id":     userID,
			"email":       true,
			"sms":         false,
			"push":        true,
			"compliance":  true,
			"maintenance": true,
			"fuel":        true,
			"system":      true,
			"updated_at":  time.Now().UTC(),
		}).Error
}

type demoTruck struct {
	registration string
	make         string
	model        string
	odometerKm   int
	driverEmail  string
	insuranceIn  time.Duration
	serviceIn    time.Duration
	serviceAtKm  int
	litres       []float64
}

func seedDemoFleet(db *gorm.DB, log *logger.Logger) error {
	if _, err := seedUser(db, log, "manager@fleetwatch.local", "Morgan Reyes", "+15550100", "manager123", models.RoleFleetManager); err != nil {
		return err
	}

	drivers := map[string]*models.User{}
	for _, d := range []struct{ email, name, phone string }{
		{"driver.one@fleetwatch.local", "Sam Okafor", "+15550101"},
		{"driver.two@fleetwatch.local", "Jo Lindqvist", ""},
	} {
		u, err := seedUser(db, log, d.email, d.name, d.phone, "driver123", models.RoleDriver)
		if err != nil {
			return err
		}
		drivers[d.email] = u
	}

	day := 24 * time.Hour
	fleet := []demoTruck{
		// Insurance lapses in two days, fuel steady
		{"FW-101", "Volvo", "FH16", 182000, "driver.one@fleetwatch.local", 2 * day, 60 * day, 200000, []float64{31, 32, 30, 31, 32}},
		// Service is overdue by odometer and fuel spiked
		{"FW-102", "Scania", "R500", 240500, "driver.two@fleetwatch.local", 200 * day, 20 * day, 240000, []float64{30, 29, 31, 30, 44}},
		// Nothing to report
		{"FW-103", "MAN", "TGX", 95000, "", 300 * day, 90 * day, 120000, []float64{28, 29, 28}},
	}

	now := time.Now().UTC()
	for _, dt := range fleet {
		var existing models.Truck
		if err := db.Where("registration = ?", dt.registration).First(&existing).Error; err == nil {
			log.Info("Truck %s already exists, skipping", dt.registration)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		truck := &models.Truck{
			Registration: dt.registration,
			Make:         dt.make,
			Model:        dt.model,
			Status:       models.TruckStatusActive,
			OdometerKm:   dt.odometerKm,
		}
		if d, ok := drivers[dt.driverEmail]; ok {
			truck.AssignedDriverID = &d.ID
		}

		dueAt := now.Add(dt.serviceIn)
		dueKm := dt.serviceAtKm
		truck.Documents = []models.ComplianceDocument{
			{Kind: models.DocumentInsurance, Reference: "POL-" + dt.registration, ExpiresAt: now.Add(dt.insuranceIn)},
			{Kind: models.DocumentRegistration, Reference: "REG-" + dt.registration, ExpiresAt: now.Add(365 * day)},
		}
		truck.Schedules = []models.MaintenanceSchedule{
			{Description: "Full service", DueAt: &dueAt, DueOdometerKm: &dueKm},
		}
		for i, litres := range dt.litres {
			truck.FuelLogs = append(truck.FuelLogs, models.FuelLog{
				Litres:     litres * 4,
				DistanceKm: 400,
				LoggedAt:   now.Add(time.Duration(i-len(dt.litres)) * day),
			})
		}

		if err := db.Create(truck).Error; err != nil {
			return fmt.Errorf("failed to create truck %s: %w", dt.registration, err)
		}
		log.Info("Created truck %s with %d documents, %d schedules, %d fuel logs",
			dt.registration, len(truck.Documents), len(truck.Schedules), len(truck.FuelLogs))
	}

	return nil
}
