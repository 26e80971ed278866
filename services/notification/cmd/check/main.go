// Command check runs the automated fleet checks once and exits. It is meant
// for cron and similar schedulers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fleetwatch/pkg/cache"
	"fleetwatch/pkg/config"
	"fleetwatch/pkg/database"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/queue"
	notificationApp "fleetwatch/services/notification/internal/app"
	"fleetwatch/services/notification/internal/usecase"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		timeout      time.Duration
		skipDelivery bool
	)

	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Run automated compliance, maintenance and fuel checks once",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return run(ctx, skipDelivery)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "abort the run after this long")
	cmd.Flags().BoolVar(&skipDelivery, "skip-delivery", false, "create notifications without sending them")
	return cmd
}

func run(ctx context.Context, skipDelivery bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithLevel(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return err
	}
	defer database.Close(db)

	var redisClient *redis.Client
	if !skipDelivery {
		redisClient, err = cache.NewRedisClient(cfg)
		if err != nil {
			log.Warn("Redis unavailable, push delivery disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var queueClient *queue.Client
	if cfg.RabbitMQEnabled && !skipDelivery {
		queueClient, err = queue.NewRabbitMQClient(cfg, log)
		if err != nil {
			log.Warn("RabbitMQ unavailable, delivering inline: %v", err)
			queueClient = nil
		} else {
			defer queueClient.Close()
		}
	}

	services, err := notificationApp.NewServices(cfg, log, db, redisClient, queueClient)
	if err != nil {
		return err
	}

	var notifier usecase.Notifier = services.Notifier
	if skipDelivery {
		notifier = nil
	}
	evaluator := usecase.NewEvaluator(
		services.Notifications,
		services.Fleet,
		services.Users,
		notifier,
		services.Rules,
		cfg.NotificationTTL,
		log,
	)

	report, err := evaluator.Run(ctx)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	return err
}
