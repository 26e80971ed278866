package usecase

import (
	"context"
	"testing"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/logger"
	"fleetwatch/services/notification/internal/access"
	"fleetwatch/services/notification/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecks struct {
	report *entity.CheckReport
	err    error
	runs   int
}

func (s *stubChecks) Run(_ context.Context) (*entity.CheckReport, error) {
	s.runs++
	return s.report, s.err
}

type useCaseFixture struct {
	checks        *stubChecks
	notifications *memNotifications
	preferences   *memPreferences
	users         *memUsers
	notifier      *recordingNotifier
	uc            *notificationUseCase
}

func newUseCaseFixture() *useCaseFixture {
	f := &useCaseFixture{
		checks:        &stubChecks{report: &entity.CheckReport{TrucksScanned: 4}},
		notifications: &memNotifications{},
		preferences:   &memPreferences{},
		users:         &memUsers{},
		notifier:      &recordingNotifier{},
	}
	f.uc = NewNotificationUseCase(f.checks, f.notifications, f.preferences, f.users, f.notifier, ttl, logger.NewNop()).(*notificationUseCase)
	f.uc.now = func() time.Time { return checkTime }
	return f
}

func (f *useCaseFixture) seed(n entity.Notification) {
	c := n
	f.notifications.rows = append(f.notifications.rows, &c)
}

func inboxItem(userID string, p entity.Priority, age time.Duration) entity.Notification {
	return entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      entity.TypeCompliance,
		Priority:  p,
		Title:     string(p),
		CreatedAt: checkTime.Add(-age),
	}
}

var driver = &access.Identity{UserID: "user-driver", Role: access.RoleDriver}

func TestRunAutomatedChecks(t *testing.T) {
	f := newUseCaseFixture()

	report, err := f.uc.RunAutomatedChecks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, report.TrucksScanned)
	assert.Equal(t, 1, f.checks.runs)
}

func TestMarkAllRead_RequiresIdentity(t *testing.T) {
	f := newUseCaseFixture()
	f.seed(inboxItem("user-driver", entity.PriorityHigh, time.Hour))

	updated, err := f.uc.MarkAllRead(context.Background(), nil)

	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
	assert.Zero(t, updated)
	assert.Zero(t, f.notifications.calls)
	assert.False(t, f.notifications.rows[0].IsRead)
}

func TestMarkAllRead_UnknownRoleIsUnauthorized(t *testing.T) {
	for _, role := range []access.Role{"", "dispatcher"} {
		t.Run(string(role), func(t *testing.T) {
			f := newUseCaseFixture()
			f.seed(inboxItem("user-driver", entity.PriorityHigh, time.Hour))

			updated, err := f.uc.MarkAllRead(context.Background(), &access.Identity{UserID: "user-driver", Role: role})

			assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
			assert.Zero(t, updated)
			assert.Zero(t, f.notifications.calls)
		})
	}
}

func TestMarkAllRead_OnlyActiveRowsOfCaller(t *testing.T) {
	f := newUseCaseFixture()
	past := checkTime.Add(-time.Minute)
	expired := inboxItem("user-driver", entity.PriorityLow, 48*time.Hour)
	expired.ExpiresAt = &past

	f.seed(inboxItem("user-driver", entity.PriorityHigh, time.Hour))
	f.seed(inboxItem("user-driver", entity.PriorityMedium, 2*time.Hour))
	f.seed(expired)
	f.seed(inboxItem("someone-else", entity.PriorityHigh, time.Hour))

	updated, err := f.uc.MarkAllRead(context.Background(), driver)

	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	assert.False(t, f.notifications.rows[2].IsRead, "expired rows stay untouched")
	assert.False(t, f.notifications.rows[3].IsRead)
}

func TestListUnread_OrderAndExpiry(t *testing.T) {
	f := newUseCaseFixture()
	past := checkTime.Add(-time.Second)
	expired := inboxItem("user-driver", entity.PriorityCritical, time.Minute)
	expired.ExpiresAt = &past
	read := inboxItem("user-driver", entity.PriorityCritical, time.Minute)
	read.IsRead = true

	f.seed(inboxItem("user-driver", entity.PriorityLow, time.Minute))
	f.seed(inboxItem("user-driver", entity.PriorityHigh, 3*time.Hour))
	f.seed(expired)
	f.seed(read)
	f.seed(inboxItem("user-driver", entity.PriorityCritical, 5*time.Hour))
	f.seed(inboxItem("user-driver", entity.PriorityHigh, time.Hour))

	got, err := f.uc.ListUnread(context.Background(), driver)
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, entity.PriorityCritical, got[0].Priority)
	assert.Equal(t, entity.PriorityHigh, got[1].Priority)
	assert.Equal(t, checkTime.Add(-time.Hour), got[1].CreatedAt)
	assert.Equal(t, entity.PriorityHigh, got[2].Priority)
	assert.Equal(t, entity.PriorityLow, got[3].Priority)
}

func TestList_ClampsPaging(t *testing.T) {
	f := newUseCaseFixture()
	for i := 0; i < 3; i++ {
		f.seed(inboxItem("user-driver", entity.PriorityMedium, time.Duration(i)*time.Hour))
	}

	got, total, err := f.uc.List(context.Background(), driver, 0, -5)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(3), total)

	got, total, err = f.uc.List(context.Background(), driver, 2, 2)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(3), total)
}

func TestMarkRead(t *testing.T) {
	f := newUseCaseFixture()
	mine := inboxItem("user-driver", entity.PriorityHigh, time.Hour)
	theirs := inboxItem("someone-else", entity.PriorityHigh, time.Hour)
	f.seed(mine)
	f.seed(theirs)

	require.NoError(t, f.uc.MarkRead(context.Background(), driver, mine.ID))
	assert.True(t, f.notifications.rows[0].IsRead)

	err := f.uc.MarkRead(context.Background(), driver, theirs.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	err = f.uc.MarkRead(context.Background(), driver, "not-a-uuid")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestPreferences_RoundTrip(t *testing.T) {
	f := newUseCaseFixture()

	prefs, err := f.uc.GetPreferences(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultPreferences("user-driver").SMS, prefs.SMS)

	update := *prefs
	update.UserID = "spoofed"
	update.SMS = true
	saved, err := f.uc.UpdatePreferences(context.Background(), driver, update)
	require.NoError(t, err)
	assert.Equal(t, "user-driver", saved.UserID)
	assert.Equal(t, checkTime, saved.UpdatedAt)

	prefs, err = f.uc.GetPreferences(context.Background(), driver)
	require.NoError(t, err)
	assert.True(t, prefs.SMS)

	_, err = f.uc.UpdatePreferences(context.Background(), nil, update)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestBroadcastSystem(t *testing.T) {
	f := newUseCaseFixture()
	f.users.users = []entity.Recipient{{UserID: "u1", Role: "viewer"}, {UserID: "u2", Role: "driver"}}
	adminID := &access.Identity{UserID: "user-admin", Role: access.RoleAdmin}

	count, err := f.uc.BroadcastSystem(context.Background(), adminID, SystemBroadcast{
		Title:   "Depot closed",
		Message: "The north depot is closed on Friday.",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, f.notifier.batches, 1)
	assert.Len(t, f.notifier.batches[0], 2)

	n := f.notifications.rows[0]
	assert.Equal(t, entity.TypeSystem, n.Type)
	assert.Equal(t, entity.PriorityMedium, n.Priority)
	assert.Empty(t, n.ActiveKey)
	require.NotNil(t, n.ExpiresAt)
	assert.Equal(t, checkTime.Add(ttl), *n.ExpiresAt)
}

func TestBroadcastSystem_Denied(t *testing.T) {
	tests := []struct {
		name     string
		identity *access.Identity
		code     apperrors.Code
	}{
		{name: "anonymous", identity: nil, code: apperrors.CodeUnauthorized},
		{name: "fleet manager", identity: &access.Identity{UserID: "m", Role: access.RoleFleetManager}, code: apperrors.CodeForbidden},
		{name: "driver", identity: driver, code: apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUseCaseFixture()
			f.users.users = []entity.Recipient{{UserID: "u1"}}

			_, err := f.uc.BroadcastSystem(context.Background(), tt.identity, SystemBroadcast{Title: "x", Message: "y"})

			assert.True(t, apperrors.Is(err, tt.code))
			assert.Empty(t, f.notifications.rows)
		})
	}
}

func TestBroadcastSystem_Validation(t *testing.T) {
	f := newUseCaseFixture()
	adminID := &access.Identity{UserID: "user-admin", Role: access.RoleAdmin}

	_, err := f.uc.BroadcastSystem(context.Background(), adminID, SystemBroadcast{Title: "  ", Message: "y"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))

	_, err = f.uc.BroadcastSystem(context.Background(), adminID, SystemBroadcast{Title: "x", Message: "y", Priority: "urgent"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
}
