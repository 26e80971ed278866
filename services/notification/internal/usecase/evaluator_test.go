package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/logger"
	"fleetwatch/services/notification/internal/delivery"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const ttl = 30 * 24 * time.Hour

func truckWithDocument(expiresIn time.Duration) entity.Truck {
	return entity.Truck{
		ID:           "truck-1",
		Registration: "KA-01-1234",
		OdometerKm:   120000,
		Documents: []entity.ComplianceDocument{
			{Kind: "insurance", Reference: "POL-9", ExpiresAt: checkTime.Add(expiresIn)},
		},
	}
}

type evaluatorFixture struct {
	notifications *memNotifications
	fleet         *memFleet
	users         *memUsers
	notifier      *recordingNotifier
	clock         time.Time
	evaluator     *Evaluator
}

func newEvaluatorFixture(trucks []entity.Truck, users []entity.Recipient) *evaluatorFixture {
	f := &evaluatorFixture{
		notifications: &memNotifications{},
		fleet:         &memFleet{trucks: trucks},
		users:         &memUsers{users: users},
		notifier:      &recordingNotifier{},
		clock:         checkTime,
	}
	f.evaluator = NewEvaluator(
		f.notifications, f.fleet, f.users, f.notifier,
		rules.Standard(rules.DefaultThresholds()), ttl, logger.NewNop(),
	).WithClock(func() time.Time { return f.clock })
	return f
}

var admin = entity.Recipient{UserID: "user-admin", Name: "Ada", Email: "ada@example.com", Role: "admin"}

func TestEvaluator_DocumentExpiringInTwoDays(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})

	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.TrucksScanned)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Delivered)

	active := f.notifications.active(f.clock)
	require.Len(t, active, 1)
	n := active[0]
	assert.Equal(t, entity.TypeCompliance, n.Type)
	assert.Equal(t, entity.PriorityHigh, n.Priority)
	assert.False(t, n.IsRead)
	assert.Equal(t, "user-admin", n.UserID)
	assert.Equal(t, "truck-1", n.TruckID)
	assert.Equal(t, "KA-01-1234", n.TruckRegistration)
	assert.Equal(t, "/trucks/truck-1/compliance", n.ActionURL)
	require.NotNil(t, n.ExpiresAt)
	assert.Equal(t, checkTime.Add(ttl), *n.ExpiresAt)
	assert.Equal(t, entity.ActiveKey("user-admin", "truck-1", entity.TypeCompliance), n.ActiveKey)
}

func TestEvaluator_Idempotent(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})

	_, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)
	first := f.notifications.active(f.clock)

	f.clock = f.clock.Add(3 * time.Hour)
	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 0, report.Superseded)
	assert.Equal(t, 0, report.Cleared)
	assert.Equal(t, first, f.notifications.active(f.clock))
	assert.Len(t, f.notifier.batches, 1)
}

func TestEvaluator_EscalationSupersedes(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(10 * 24 * time.Hour)}, []entity.Recipient{admin})

	_, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)
	before := f.notifications.active(f.clock)
	require.Len(t, before, 1)
	assert.Equal(t, entity.PriorityMedium, before[0].Priority)

	f.clock = f.clock.Add(5 * 24 * time.Hour)
	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Superseded)
	assert.Equal(t, 1, report.Created)

	after := f.notifications.active(f.clock)
	require.Len(t, after, 1)
	assert.Equal(t, entity.PriorityHigh, after[0].Priority)
	assert.NotEqual(t, before[0].ID, after[0].ID)

	old, err := f.notifications.GetByID(context.Background(), before[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RetireSuperseded, old.RetiredReason)
}

func TestEvaluator_LowerPriorityDoesNotReplace(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})
	_, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	f.fleet.trucks = []entity.Truck{truckWithDocument(20 * 24 * time.Hour)}
	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	active := f.notifications.active(f.clock)
	require.Len(t, active, 1)
	assert.Equal(t, entity.PriorityHigh, active[0].Priority)
}

func TestEvaluator_ClearedConditionRetires(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})
	_, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)
	created := f.notifications.active(f.clock)
	require.Len(t, created, 1)

	f.fleet.trucks = []entity.Truck{truckWithDocument(365 * 24 * time.Hour)}
	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Cleared)
	assert.Empty(t, f.notifications.active(f.clock))

	old, err := f.notifications.GetByID(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RetireCleared, old.RetiredReason)
}

func TestEvaluator_ExpiredRowsAreSweptAndRecreated(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(-2 * 24 * time.Hour)}, []entity.Recipient{admin})
	_, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	f.clock = f.clock.Add(ttl)
	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 1, report.Created)
	active := f.notifications.active(f.clock)
	require.Len(t, active, 1)
	assert.Equal(t, entity.PriorityCritical, active[0].Priority)
}

func TestEvaluator_Recipients(t *testing.T) {
	truck := truckWithDocument(2 * 24 * time.Hour)
	truck.AssignedDriverID = "user-driver"
	users := []entity.Recipient{
		admin,
		{UserID: "user-manager", Role: "fleet_manager"},
		{UserID: "user-driver", Role: "driver"},
		{UserID: "user-other-driver", Role: "driver"},
		{UserID: "user-viewer", Role: "viewer"},
	}
	f := newEvaluatorFixture([]entity.Truck{truck}, users)

	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)

	got := map[string]bool{}
	for _, n := range f.notifications.active(f.clock) {
		got[n.UserID] = true
	}
	assert.Equal(t, map[string]bool{"user-admin": true, "user-manager": true, "user-driver": true}, got)
}

func TestEvaluator_ReassignedDriverIsCleared(t *testing.T) {
	truck := truckWithDocument(2 * 24 * time.Hour)
	truck.AssignedDriverID = "user-driver"
	users := []entity.Recipient{admin, {UserID: "user-driver", Role: "driver"}}
	f := newEvaluatorFixture([]entity.Truck{truck}, users)
	_, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	truck.AssignedDriverID = ""
	f.fleet.trucks = []entity.Truck{truck}
	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Cleared)
	active := f.notifications.active(f.clock)
	require.Len(t, active, 1)
	assert.Equal(t, "user-admin", active[0].UserID)
}

func TestEvaluator_ScanFailure(t *testing.T) {
	f := newEvaluatorFixture(nil, []entity.Recipient{admin})
	f.fleet.err = apperrors.PersistenceFailure("scan trucks", errors.New("connection reset"))

	_, err := f.evaluator.Run(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeEvaluationFailed))
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, f.notifier.batches)
}

func TestEvaluator_SweepFailure(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})
	f.notifications.retireExpiredErr = errors.New("deadlock detected")

	_, err := f.evaluator.Run(context.Background())

	assert.True(t, apperrors.Is(err, apperrors.CodeEvaluationFailed))
	assert.Empty(t, f.notifications.active(f.clock))
}

func TestEvaluator_PersistFailure(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})
	f.notifications.createErr = errors.New("disk full")

	_, err := f.evaluator.Run(context.Background())

	assert.True(t, apperrors.Is(err, apperrors.CodeEvaluationFailed))
}

func TestEvaluator_DeliveryFailureDoesNotFailRun(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})
	f.notifier.err = errors.New("ses throttled")

	report, err := f.evaluator.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.DeliveryFailed)
	assert.Equal(t, 1, report.Created)
}

func TestEvaluator_NilNotifierSkipsDelivery(t *testing.T) {
	f := newEvaluatorFixture([]entity.Truck{truckWithDocument(2 * 24 * time.Hour)}, []entity.Recipient{admin})
	f.evaluator.notifier = nil

	report, err := f.evaluator.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Delivered)
}

type recordingChannel struct {
	name entity.Channel
	sent []entity.Notification
}

func (c *recordingChannel) Name() entity.Channel { return c.name }

func (c *recordingChannel) Send(_ context.Context, _ entity.Recipient, n entity.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func TestEvaluator_EmailFollowsPreferences(t *testing.T) {
	due := checkTime.Add(24 * time.Hour)
	truck := truckWithDocument(2 * 24 * time.Hour)
	truck.Schedules = []entity.MaintenanceSchedule{{Description: "Brake inspection", DueAt: &due}}

	prefs := entity.DefaultPreferences(admin.UserID)
	prefs.Maintenance = false
	prefStore := &memPreferences{stored: map[string]entity.Preferences{admin.UserID: prefs}}

	f := newEvaluatorFixture([]entity.Truck{truck}, []entity.Recipient{admin})
	email := &recordingChannel{name: entity.ChannelEmail}
	f.evaluator.notifier = delivery.NewDispatcher(f.users, prefStore, logger.NewNop(), email)

	report, err := f.evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	require.Len(t, email.sent, 1)
	assert.Equal(t, entity.TypeCompliance, email.sent[0].Type)
}

func TestEvaluator_ConcurrentRunsKeepOneActivePerCondition(t *testing.T) {
	second := truckWithDocument(5 * 24 * time.Hour)
	second.ID = "truck-2"
	second.Registration = "KA-01-5678"
	manager := entity.Recipient{UserID: "user-manager", Name: "Mo", Role: "fleet_manager"}

	f := newEvaluatorFixture(
		[]entity.Truck{truckWithDocument(2 * 24 * time.Hour), second},
		[]entity.Recipient{admin, manager},
	)

	const runs = 8
	reports := make([]*entity.CheckReport, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		evaluator := NewEvaluator(
			f.notifications, f.fleet, f.users, f.notifier,
			rules.Standard(rules.DefaultThresholds()), ttl, logger.NewNop(),
		).WithClock(func() time.Time { return checkTime })

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = evaluator.Run(context.Background())
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		created += reports[i].Created
	}

	active := f.notifications.active(checkTime)
	perCondition := make(map[string]int)
	for _, n := range active {
		perCondition[n.UserID+"/"+n.TruckID+"/"+string(n.Type)]++
	}
	assert.Equal(t, map[string]int{
		"user-admin/truck-1/compliance":   1,
		"user-admin/truck-2/compliance":   1,
		"user-manager/truck-1/compliance": 1,
		"user-manager/truck-2/compliance": 1,
	}, perCondition)
	assert.Equal(t, len(active), created)
}
