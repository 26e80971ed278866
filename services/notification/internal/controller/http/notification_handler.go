package http

import (
	"net/http"
	"strconv"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/jwt"
	"fleetwatch/pkg/logger"
	"fleetwatch/services/notification/internal/access"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	redisClient         *redis.Client
	logger              *logger.Logger
	jwtService          *jwt.Service
}

func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, redisClient *redis.Client, logger *logger.Logger, jwtService *jwt.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		redisClient:         redisClient,
		logger:              logger,
		jwtService:          jwtService,
	}
}

type PreferencesRequest struct {
	Email       *bool `json:"email"`
	SMS         *bool `json:"sms"`
	Push        *bool `json:"push"`
	Compliance  *bool `json:"compliance"`
	Maintenance *bool `json:"maintenance"`
	Fuel        *bool `json:"fuel"`
	System      *bool `json:"system"`
}

type SystemNotificationRequest struct {
	Title      string `json:"title" binding:"required"`
	Message    string `json:"message" binding:"required"`
	Priority   string `json:"priority"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func identity(c *gin.Context) *access.Identity {
	return access.NewIdentity(c.GetString("user_id"), c.GetString("role"))
}

func (h *NotificationHandler) respondError(c *gin.Context, op string, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Failed to %s: %v", op, err)
	}
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

// RunChecks godoc
// @Summary      Run automated checks
// @Description  Evaluate every monitored truck and create, escalate or retire notifications. Intended for a scheduler.
// @Tags         notifications
// @Produce      json
// @Param        X-Scheduler-Token header string false "Scheduler secret, when one is configured"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/check [post]
func (h *NotificationHandler) RunChecks(c *gin.Context) {
	report, err := h.notificationUseCase.RunAutomatedChecks(c.Request.Context())
	if err != nil {
		h.logger.Error("Automated checks failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.PublicMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Automated checks completed",
		"report":  report,
	})
}

// MarkAllRead godoc
// @Summary      Mark all notifications read
// @Description  Mark every active notification of the authenticated user as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /notifications/mark-all-read [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.notificationUseCase.MarkAllRead(c.Request.Context(), identity(c))
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if status < http.StatusInternalServerError {
			c.JSON(status, gin.H{"success": false, "error": apperrors.PublicMessage(err)})
			return
		}
		h.logger.Error("Failed to mark notifications read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to mark notifications as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All notifications marked as read",
		"updated": updated,
	})
}

// GetUnread godoc
// @Summary      Get unread notifications
// @Description  Unread active notifications, highest priority first, then newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/unread [get]
func (h *NotificationHandler) GetUnread(c *gin.Context) {
	notifications, err := h.notificationUseCase.ListUnread(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, "get unread notifications", err)
		return
	}
	if notifications == nil {
		notifications = []entity.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// GetNotifications godoc
// @Summary      Get user notifications
// @Description  Active notifications for the authenticated user, paged
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Number of notifications to return (max 100)"
// @Param        offset query int false "Offset for pagination"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	limit := usecase.DefaultPageSize
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= usecase.MaxPageSize {
			limit = parsedLimit
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	notifications, total, err := h.notificationUseCase.List(c.Request.Context(), identity(c), limit, offset)
	if err != nil {
		h.respondError(c, "get notifications", err)
		return
	}
	if notifications == nil {
		notifications = []entity.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"total":         total,
		"offset":        offset,
	})
}

// MarkRead godoc
// @Summary      Mark one notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationUseCase.MarkRead(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.respondError(c, "mark notification read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}

// GetPreferences godoc
// @Summary      Get notification preferences
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /notifications/preferences [get]
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.notificationUseCase.GetPreferences(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, "get preferences", err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences godoc
// @Summary      Update notification preferences
// @Description  Omitted fields keep their current value
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PreferencesRequest true "Channel and category switches"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /notifications/preferences [put]
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	current, err := h.notificationUseCase.GetPreferences(ctx, identity(c))
	if err != nil {
		h.respondError(c, "get preferences", err)
		return
	}

	updated := *current
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&updated.Email, req.Email)
	apply(&updated.SMS, req.SMS)
	apply(&updated.Push, req.Push)
	apply(&updated.Compliance, req.Compliance)
	apply(&updated.Maintenance, req.Maintenance)
	apply(&updated.Fuel, req.Fuel)
	apply(&updated.System, req.System)

	saved, err := h.notificationUseCase.UpdatePreferences(ctx, identity(c), updated)
	if err != nil {
		h.respondError(c, "update preferences", err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// BroadcastSystem godoc
// @Summary      Broadcast a system notification
// @Description  Admin only. Creates one system notification per active user and delivers it.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SystemNotificationRequest true "Announcement"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /notifications/system [post]
func (h *NotificationHandler) BroadcastSystem(c *gin.Context) {
	var req SystemNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and message are required"})
		return
	}

	sent, err := h.notificationUseCase.BroadcastSystem(c.Request.Context(), identity(c), usecase.SystemBroadcast{
		Title:    req.Title,
		Message:  req.Message,
		Priority: entity.Priority(req.Priority),
		TTL:      time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		h.respondError(c, "broadcast system notification", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "System notification sent",
		"sent_count": sent,
	})
}

// GetNavigation godoc
// @Summary      Sidebar navigation
// @Description  Navigation entries visible to the caller's role
// @Tags         navigation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /navigation [get]
func (h *NotificationHandler) GetNavigation(c *gin.Context) {
	decision := access.Authorize(identity(c), access.AllRoles...)
	if !decision.Authorized() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":  decision.Identity().Role,
		"items": access.Navigation(decision.Identity().Role),
	})
}
