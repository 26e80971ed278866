package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetwatch/pkg/cache"
	"fleetwatch/pkg/config"
	"fleetwatch/pkg/database"
	"fleetwatch/pkg/jwt"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/middleware"
	"fleetwatch/pkg/queue"
	notificationHTTP "fleetwatch/services/notification/internal/controller/http"
	"fleetwatch/services/notification/internal/delivery"
	"fleetwatch/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "fleetwatch/services/notification/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	queueDepth  func() (int, error)
	jwtService  *jwt.Service
	services    *Services
	httpServer  *http.Server
	cancel      context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewWithLevel(cfg.LogLevel, cfg.LogFormat)

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		return nil, err
	}

	var queueClient *queue.Client
	if cfg.RabbitMQEnabled {
		queueClient, err = queue.NewRabbitMQClient(cfg, log)
		if err != nil {
			log.Error("Failed to connect to RabbitMQ: %v (delivering inline)", err)
			queueClient = nil
		}
	}

	services, err := NewServices(cfg, log, db, redisClient, queueClient)
	if err != nil {
		log.Error("Failed to wire notification services: %v", err)
		return nil, err
	}

	a := &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		services:    services,
	}
	if queueClient != nil {
		a.queueDepth = queueClient.QueueLength
	}
	return a, nil
}

// health reports the pending delivery task count when the queue is in use.
func (a *App) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if a.queueDepth != nil {
		depth, err := a.queueDepth()
		if err != nil {
			a.log.Warn("Failed to inspect delivery queue: %v", err)
			body["delivery_queue"] = "unavailable"
		} else {
			body["delivery_queue_depth"] = depth
		}
	}
	c.JSON(http.StatusOK, body)
}

// Router builds the HTTP routes. It is separate from Run so tests can serve it.
func (a *App) Router() *gin.Engine {
	notificationUseCase := usecase.NewNotificationUseCase(
		a.services.Evaluator,
		a.services.Notifications,
		a.services.Preferences,
		a.services.Users,
		a.services.Notifier,
		a.cfg.NotificationTTL,
		a.log,
	)
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationUseCase, a.redisClient, a.log, a.jwtService)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{a.cfg.AppBaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", middleware.SchedulerTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// Scheduler route, guarded by a shared secret instead of a user token
	api.POST("/notifications/check",
		middleware.SchedulerTokenMiddleware(a.cfg.SchedulerSecret),
		middleware.RateLimitMiddleware(a.redisClient, a.cfg.CheckRateLimit, a.cfg.CheckRateLimitEvery),
		notificationHandler.RunChecks,
	)

	// WebSocket endpoint authenticates via query parameter
	api.GET("/notifications/ws", notificationHandler.HandleWebSocket)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(a.jwtService))
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread", notificationHandler.GetUnread)
		protected.POST("/notifications/mark-all-read", notificationHandler.MarkAllRead)
		protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
		protected.GET("/notifications/preferences", notificationHandler.GetPreferences)
		protected.PUT("/notifications/preferences", notificationHandler.UpdatePreferences)
		protected.POST("/notifications/system", notificationHandler.BroadcastSystem)
		protected.GET("/navigation", notificationHandler.GetNavigation)
	}

	return r
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.queueClient != nil {
		handler := delivery.NewTaskHandler(a.services.Notifications, a.services.Dispatcher, time.Now, a.log)
		if err := a.queueClient.ConsumeDeliveryTasks(ctx, handler); err != nil {
			a.log.Error("Error starting delivery queue consumer: %v", err)
			return err
		}
		a.log.Info("Consuming delivery tasks from %s", queue.DeliveryQueueName)
	}

	a.httpServer = &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.Info("Notification service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down notification service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.cancel != nil {
		a.cancel()
	}

	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			shutdownErr = err
		}
	}

	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.log.Error("Error closing RabbitMQ: %v", err)
		}
	}

	if err := a.redisClient.Close(); err != nil {
		a.log.Error("Error closing Redis: %v", err)
	}

	if err := database.Close(a.db); err != nil {
		a.log.Error("Error closing database: %v", err)
	}

	a.log.Info("Notification service exited")
	_ = a.log.Sync()
	return shutdownErr
}
