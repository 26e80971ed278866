package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	ServerPort string
	AppBaseURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMaxOpen  int
	DBMaxIdle  int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ
	RabbitMQEnabled  bool
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string

	// JWT
	JWTSecret string

	// Scheduler callers of POST /notifications/check
	SchedulerSecret     string
	CheckRateLimit      int
	CheckRateLimitEvery time.Duration

	// AWS (SES email, SNS sms)
	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	EmailEnabled       bool
	EmailFromAddress   string
	SMSEnabled         bool
	SMSSenderID        string
	PushEnabled        bool

	// Evaluation
	ComplianceWindowDays  int
	MaintenanceWindowDays int
	MaintenanceWindowKm   int
	FuelAnomalyThreshold  float64
	NotificationTTL       time.Duration
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		ServerPort: v.GetString("SERVER_PORT"),
		AppBaseURL: v.GetString("APP_BASE_URL"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		DBMaxOpen:  v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdle:  v.GetInt("DB_MAX_IDLE_CONNS"),

		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		RabbitMQEnabled:  v.GetBool("RABBITMQ_ENABLED"),
		RabbitMQHost:     v.GetString("RABBITMQ_HOST"),
		RabbitMQPort:     v.GetString("RABBITMQ_PORT"),
		RabbitMQUser:     v.GetString("RABBITMQ_USER"),
		RabbitMQPassword: v.GetString("RABBITMQ_PASSWORD"),

		JWTSecret: v.GetString("JWT_SECRET"),

		SchedulerSecret:     v.GetString("SCHEDULER_SECRET"),
		CheckRateLimit:      v.GetInt("CHECK_RATE_LIMIT"),
		CheckRateLimitEvery: v.GetDuration("CHECK_RATE_LIMIT_WINDOW"),

		AWSRegion:          v.GetString("AWS_REGION"),
		AWSEndpoint:        v.GetString("AWS_ENDPOINT"),
		AWSAccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		EmailEnabled:       v.GetBool("EMAIL_ENABLED"),
		EmailFromAddress:   v.GetString("EMAIL_FROM_ADDRESS"),
		SMSEnabled:         v.GetBool("SMS_ENABLED"),
		SMSSenderID:        v.GetString("SMS_SENDER_ID"),
		PushEnabled:        v.GetBool("PUSH_ENABLED"),

		ComplianceWindowDays:  v.GetInt("COMPLIANCE_WINDOW_DAYS"),
		MaintenanceWindowDays: v.GetInt("MAINTENANCE_WINDOW_DAYS"),
		MaintenanceWindowKm:   v.GetInt("MAINTENANCE_WINDOW_KM"),
		FuelAnomalyThreshold:  v.GetFloat64("FUEL_ANOMALY_THRESHOLD"),
		NotificationTTL:       v.GetDuration("NOTIFICATION_TTL"),
	}

	if config.NotificationTTL <= 0 {
		return nil, fmt.Errorf("NOTIFICATION_TTL must be positive, got %s", config.NotificationTTL)
	}
	if config.FuelAnomalyThreshold <= 0 {
		return nil, fmt.Errorf("FUEL_ANOMALY_THRESHOLD must be positive, got %v", config.FuelAnomalyThreshold)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fleetwatch")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RABBITMQ_ENABLED", false)
	v.SetDefault("RABBITMQ_HOST", "localhost")
	v.SetDefault("RABBITMQ_PORT", "5672")
	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASSWORD", "guest")

	v.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")

	v.SetDefault("SCHEDULER_SECRET", "")
	v.SetDefault("CHECK_RATE_LIMIT", 6)
	v.SetDefault("CHECK_RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("EMAIL_FROM_ADDRESS", "fleet-alerts@example.com")
	v.SetDefault("SMS_ENABLED", false)
	v.SetDefault("SMS_SENDER_ID", "FLEET")
	v.SetDefault("PUSH_ENABLED", true)

	v.SetDefault("COMPLIANCE_WINDOW_DAYS", 30)
	v.SetDefault("MAINTENANCE_WINDOW_DAYS", 14)
	v.SetDefault("MAINTENANCE_WINDOW_KM", 2000)
	v.SetDefault("FUEL_ANOMALY_THRESHOLD", 0.15)
	v.SetDefault("NOTIFICATION_TTL", 30*24*time.Hour)
}

// PostgresDSN builds the libpq connection string shared by gorm and goose.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RabbitMQUser,
		c.RabbitMQPassword,
		c.RabbitMQHost,
		c.RabbitMQPort,
	)
}
