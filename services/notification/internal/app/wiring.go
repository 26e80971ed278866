package app

import (
	"fleetwatch/pkg/awsclient"
	"fleetwatch/pkg/config"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/queue"
	"fleetwatch/services/notification/internal/delivery"
	"fleetwatch/services/notification/internal/repo/persistent"
	"fleetwatch/services/notification/internal/rules"
	"fleetwatch/services/notification/internal/usecase"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services holds the domain components shared by the HTTP service and the
// one-shot checker.
type Services struct {
	Notifications persistent.NotificationRepository
	Preferences   persistent.PreferencesRepository
	Users         persistent.UserRepository
	Fleet         persistent.FleetRepository
	Dispatcher    *delivery.Dispatcher
	Notifier      usecase.Notifier
	Rules         []rules.Rule
	Evaluator     *usecase.Evaluator
}

// NewServices wires repositories, delivery channels and the evaluator.
// Delivery goes through the queue when queueClient is set, inline otherwise.
func NewServices(cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, queueClient *queue.Client) (*Services, error) {
	s := &Services{
		Notifications: persistent.NewNotificationRepository(db),
		Preferences:   persistent.NewPreferencesRepository(db),
		Users:         persistent.NewUserRepository(db),
		Fleet:         persistent.NewFleetRepository(db),
		Rules:         rules.Standard(thresholds(cfg)),
	}

	channels, err := buildChannels(cfg, log, redisClient)
	if err != nil {
		return nil, err
	}
	s.Dispatcher = delivery.NewDispatcher(s.Users, s.Preferences, log, channels...)

	if queueClient != nil {
		s.Notifier = delivery.NewQueueNotifier(queueClient, log)
	} else {
		s.Notifier = s.Dispatcher
	}

	s.Evaluator = usecase.NewEvaluator(
		s.Notifications,
		s.Fleet,
		s.Users,
		s.Notifier,
		s.Rules,
		cfg.NotificationTTL,
		log,
	)
	return s, nil
}

func thresholds(cfg *config.Config) rules.Thresholds {
	return rules.Thresholds{
		ComplianceWindowDays:  cfg.ComplianceWindowDays,
		MaintenanceWindowDays: cfg.MaintenanceWindowDays,
		MaintenanceWindowKm:   cfg.MaintenanceWindowKm,
		FuelAnomalyThreshold:  cfg.FuelAnomalyThreshold,
	}
}

func buildChannels(cfg *config.Config, log *logger.Logger, redisClient *redis.Client) ([]delivery.Channel, error) {
	var channels []delivery.Channel

	if cfg.EmailEnabled || cfg.SMSEnabled {
		sess, err := awsclient.NewSession(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.EmailEnabled {
			channels = append(channels, delivery.NewEmailChannel(awsclient.NewSESClient(sess), cfg.EmailFromAddress, cfg.AppBaseURL))
			log.Info("Email delivery enabled via SES in %s", cfg.AWSRegion)
		}
		if cfg.SMSEnabled {
			channels = append(channels, delivery.NewSMSChannel(awsclient.NewSNSClient(sess), cfg.SMSSenderID))
			log.Info("SMS delivery enabled via SNS in %s", cfg.AWSRegion)
		}
	}

	if cfg.PushEnabled {
		if redisClient != nil {
			channels = append(channels, delivery.NewPushChannel(redisClient))
		} else {
			log.Warn("Push delivery enabled but Redis is unavailable, skipping push channel")
		}
	}

	return channels, nil
}
