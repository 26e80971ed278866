package usecase

import (
	"context"
	"strings"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/metrics"
	"fleetwatch/services/notification/internal/access"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/repo/persistent"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CheckRunner runs one automated check pass. *Evaluator implements it.
type CheckRunner interface {
	Run(ctx context.Context) (*entity.CheckReport, error)
}

// SystemBroadcast is an admin announcement sent to every active user.
type SystemBroadcast struct {
	Title    string
	Message  string
	Priority entity.Priority
	TTL      time.Duration
}

type NotificationUseCase interface {
	RunAutomatedChecks(ctx context.Context) (*entity.CheckReport, error)
	MarkAllRead(ctx context.Context, identity *access.Identity) (int64, error)
	ListUnread(ctx context.Context, identity *access.Identity) ([]entity.Notification, error)
	List(ctx context.Context, identity *access.Identity, limit, offset int) ([]entity.Notification, int64, error)
	MarkRead(ctx context.Context, identity *access.Identity, id string) error
	GetPreferences(ctx context.Context, identity *access.Identity) (*entity.Preferences, error)
	UpdatePreferences(ctx context.Context, identity *access.Identity, prefs entity.Preferences) (*entity.Preferences, error)
	BroadcastSystem(ctx context.Context, identity *access.Identity, req SystemBroadcast) (int, error)
}

type notificationUseCase struct {
	checks           CheckRunner
	notificationRepo persistent.NotificationRepository
	preferencesRepo  persistent.PreferencesRepository
	userRepo         persistent.UserRepository
	notifier         Notifier
	defaultTTL       time.Duration
	now              func() time.Time
	logger           *logger.Logger
}

func NewNotificationUseCase(
	checks CheckRunner,
	notificationRepo persistent.NotificationRepository,
	preferencesRepo persistent.PreferencesRepository,
	userRepo persistent.UserRepository,
	notifier Notifier,
	defaultTTL time.Duration,
	logger *logger.Logger,
) NotificationUseCase {
	return &notificationUseCase{
		checks:           checks,
		notificationRepo: notificationRepo,
		preferencesRepo:  preferencesRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		defaultTTL:       defaultTTL,
		now:              time.Now,
		logger:           logger,
	}
}

// authorize converts an access decision into a service error.
func authorize(identity *access.Identity, allowed ...access.Role) (*access.Identity, error) {
	decision := access.Authorize(identity, allowed...)
	if decision.Authorized() {
		return decision.Identity(), nil
	}
	if decision.Reason() == access.DenyRoleNotAllowed {
		return nil, apperrors.Forbidden("Forbidden")
	}
	return nil, apperrors.Unauthorized("Unauthorized")
}

func (uc *notificationUseCase) RunAutomatedChecks(ctx context.Context) (*entity.CheckReport, error) {
	return uc.checks.Run(ctx)
}

func (uc *notificationUseCase) MarkAllRead(ctx context.Context, identity *access.Identity) (int64, error) {
	caller, err := authorize(identity, access.AllRoles...)
	if err != nil {
		return 0, err
	}

	updated, err := uc.notificationRepo.MarkAllRead(ctx, caller.UserID, uc.now().UTC())
	if err != nil {
		return 0, err
	}
	uc.logger.Info("Marked %d notifications read for user %s", updated, caller.UserID)
	return updated, nil
}

func (uc *notificationUseCase) ListUnread(ctx context.Context, identity *access.Identity) ([]entity.Notification, error) {
	caller, err := authorize(identity, access.AllRoles...)
	if err != nil {
		return nil, err
	}

	notifications, err := uc.notificationRepo.ListUnread(ctx, caller.UserID, uc.now().UTC())
	if err != nil {
		return nil, err
	}
	entity.SortForInbox(notifications)
	return notifications, nil
}

func (uc *notificationUseCase) List(ctx context.Context, identity *access.Identity, limit, offset int) ([]entity.Notification, int64, error) {
	caller, err := authorize(identity, access.AllRoles...)
	if err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := uc.notificationRepo.ListForUser(ctx, caller.UserID, uc.now().UTC(), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	entity.SortForInbox(notifications)
	return notifications, total, nil
}

func (uc *notificationUseCase) MarkRead(ctx context.Context, identity *access.Identity, id string) error {
	caller, err := authorize(identity, access.AllRoles...)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFound("Notification not found")
	}

	ok, err := uc.notificationRepo.MarkRead(ctx, caller.UserID, id, uc.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (uc *notificationUseCase) GetPreferences(ctx context.Context, identity *access.Identity) (*entity.Preferences, error) {
	caller, err := authorize(identity, access.AllRoles...)
	if err != nil {
		return nil, err
	}

	prefs, err := uc.preferencesRepo.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (uc *notificationUseCase) UpdatePreferences(ctx context.Context, identity *access.Identity, prefs entity.Preferences) (*entity.Preferences, error) {
	caller, err := authorize(identity, access.AllRoles...)
	if err != nil {
		return nil, err
	}

	prefs.UserID = caller.UserID
	prefs.UpdatedAt = uc.now().UTC()
	if err := uc.preferencesRepo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}
	uc.logger.Info("Updated notification preferences for user %s", caller.UserID)
	return &prefs, nil
}

func (uc *notificationUseCase) BroadcastSystem(ctx context.Context, identity *access.Identity, req SystemBroadcast) (int, error) {
	caller, err := authorize(identity, access.RoleAdmin)
	if err != nil {
		return 0, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		return 0, apperrors.Validation("Title and message are required")
	}
	if req.Priority == "" {
		req.Priority = entity.PriorityMedium
	}
	if !req.Priority.Valid() {
		return 0, apperrors.Validation("Invalid priority")
	}
	if req.TTL <= 0 {
		req.TTL = uc.defaultTTL
	}

	users, err := uc.userRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	now := uc.now().UTC()
	expiresAt := now.Add(req.TTL)
	created := make([]entity.Notification, 0, len(users))
	for _, u := range users {
		n := entity.Notification{
			ID:        uuid.NewString(),
			UserID:    u.UserID,
			Type:      entity.TypeSystem,
			Priority:  req.Priority,
			Title:     req.Title,
			Message:   req.Message,
			CreatedAt: now,
			ExpiresAt: &expiresAt,
		}
		if err := uc.notificationRepo.Create(ctx, &n); err != nil {
			return len(created), err
		}
		metrics.NotificationCreated(string(n.Type), string(n.Priority))
		created = append(created, n)
	}

	uc.logger.Info("System broadcast by %s created %d notifications", caller.UserID, len(created))

	if uc.notifier != nil && len(created) > 0 {
		if _, err := uc.notifier.Notify(ctx, created); err != nil {
			uc.logger.Error("System broadcast delivery finished with errors: %v", err)
		}
	}
	return len(created), nil
}
