package usecase

import (
	"context"
	"sort"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/metrics"
	"fleetwatch/services/notification/internal/access"
	"fleetwatch/services/notification/internal/entity"
	"fleetwatch/services/notification/internal/repo/persistent"
	"fleetwatch/services/notification/internal/rules"

	"github.com/google/uuid"
)

// Notifier hands freshly created notifications to delivery. It returns how
// many were delivered or enqueued.
type Notifier interface {
	Notify(ctx context.Context, notifications []entity.Notification) (int, error)
}

// Evaluator turns the current fleet state into notifications.
type Evaluator struct {
	notifications persistent.NotificationRepository
	fleet         persistent.FleetRepository
	users         persistent.UserRepository
	notifier      Notifier
	rules         []rules.Rule
	ttl           time.Duration
	now           func() time.Time
	logger        *logger.Logger
}

// NewEvaluator builds an evaluator. A nil notifier skips delivery.
func NewEvaluator(
	notifications persistent.NotificationRepository,
	fleet persistent.FleetRepository,
	users persistent.UserRepository,
	notifier Notifier,
	ruleSet []rules.Rule,
	ttl time.Duration,
	log *logger.Logger,
) *Evaluator {
	return &Evaluator{
		notifications: notifications,
		fleet:         fleet,
		users:         users,
		notifier:      notifier,
		rules:         ruleSet,
		ttl:           ttl,
		now:           time.Now,
		logger:        log,
	}
}

func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Run performs one full pass: sweep expired rows, scan the fleet, reconcile
// every truck condition with the active notifications, then deliver what was
// created. Rows written before a failure stay written.
func (e *Evaluator) Run(ctx context.Context) (*entity.CheckReport, error) {
	now := e.now().UTC()
	report := &entity.CheckReport{StartedAt: now}

	err := e.run(ctx, now, report)

	report.FinishedAt = e.now().UTC()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.ObserveCheck(outcome, report.FinishedAt.Sub(report.StartedAt))

	if err != nil {
		e.logger.Error("[CHECK] Automated checks failed: %v", err)
		return report, err
	}

	e.logger.Info("[CHECK] Scanned %d trucks: %d created, %d superseded, %d cleared, %d expired, %d delivered",
		report.TrucksScanned, report.Created, report.Superseded, report.Cleared, report.Expired, report.Delivered)
	return report, nil
}

func (e *Evaluator) run(ctx context.Context, now time.Time, report *entity.CheckReport) error {
	expired, err := e.notifications.RetireExpired(ctx, now)
	if err != nil {
		return apperrors.EvaluationFailure("sweep", err)
	}
	report.Expired = int(expired)
	metrics.NotificationsRetired(string(entity.RetireExpired), int(expired))

	trucks, err := e.fleet.ListMonitoredTrucks(ctx)
	if err != nil {
		return apperrors.EvaluationFailure("scan", err)
	}
	recipients, err := e.users.ListRecipients(ctx)
	if err != nil {
		return apperrors.EvaluationFailure("scan", err)
	}
	report.TrucksScanned = len(trucks)

	active, err := e.notifications.ListActiveManaged(ctx, now)
	if err != nil {
		return apperrors.EvaluationFailure("index", err)
	}
	index := newActiveIndex(active)

	var created []entity.Notification
	for _, truck := range trucks {
		targets := recipientsFor(truck, recipients)
		for _, rule := range e.rules {
			cond, holds := rule.Evaluate(truck, now)
			var err error
			if holds {
				err = e.apply(ctx, truck, cond, targets, index, now, report, &created)
			} else {
				err = e.clear(ctx, index.forCondition(truck.ID, rule.Type, nil), now, report)
			}
			if err != nil {
				return apperrors.EvaluationFailure("persist", err)
			}
		}
	}

	if e.notifier == nil || len(created) == 0 {
		return nil
	}
	delivered, err := e.notifier.Notify(ctx, created)
	report.Delivered = delivered
	if err != nil {
		report.DeliveryFailed = true
		e.logger.Error("[CHECK] Delivery of %d new notifications finished with errors: %v", len(created), err)
	}
	return nil
}

// apply makes the active set for one holding condition match its recipients.
func (e *Evaluator) apply(
	ctx context.Context,
	truck entity.Truck,
	cond rules.Condition,
	targets []entity.Recipient,
	index *activeIndex,
	now time.Time,
	report *entity.CheckReport,
	created *[]entity.Notification,
) error {
	keep := make(map[string]bool, len(targets))
	for _, r := range targets {
		keep[r.UserID] = true
	}
	if err := e.clear(ctx, index.forCondition(truck.ID, cond.Type, keep), now, report); err != nil {
		return err
	}

	for _, r := range targets {
		key := entity.ActiveKey(r.UserID, truck.ID, cond.Type)
		existing, ok := index.get(key)
		if ok && existing.Priority.Rank() >= cond.Priority.Rank() {
			continue
		}
		if ok {
			n, err := e.notifications.Retire(ctx, []string{existing.ID}, entity.RetireSuperseded, now)
			if err != nil {
				return err
			}
			report.Superseded += int(n)
			metrics.NotificationsRetired(string(entity.RetireSuperseded), int(n))
			index.remove(key)
		}

		expiresAt := now.Add(e.ttl)
		n := entity.Notification{
			ID:                uuid.NewString(),
			UserID:            r.UserID,
			Type:              cond.Type,
			Priority:          cond.Priority,
			Title:             cond.Title,
			Message:           cond.Message,
			TruckID:           truck.ID,
			TruckRegistration: truck.Registration,
			ActionURL:         cond.ActionURL,
			CreatedAt:         now,
			ExpiresAt:         &expiresAt,
			ActiveKey:         key,
		}
		inserted, err := e.notifications.CreateIfAbsent(ctx, &n)
		if err != nil {
			return err
		}
		if !inserted {
			// A concurrent run got there first.
			continue
		}
		report.Created++
		metrics.NotificationCreated(string(n.Type), string(n.Priority))
		index.put(n)
		*created = append(*created, n)
	}
	return nil
}

func (e *Evaluator) clear(ctx context.Context, stale []entity.Notification, now time.Time, report *entity.CheckReport) error {
	if len(stale) == 0 {
		return nil
	}
	ids := make([]string, len(stale))
	for i, n := range stale {
		ids[i] = n.ID
	}
	sort.Strings(ids)

	n, err := e.notifications.Retire(ctx, ids, entity.RetireCleared, now)
	if err != nil {
		return err
	}
	report.Cleared += int(n)
	metrics.NotificationsRetired(string(entity.RetireCleared), int(n))
	return nil
}

// recipientsFor returns the users notified about truck: every admin and fleet
// manager, plus the assigned driver. Output is ordered by user id.
func recipientsFor(truck entity.Truck, recipients []entity.Recipient) []entity.Recipient {
	var out []entity.Recipient
	for _, r := range recipients {
		switch access.Role(r.Role) {
		case access.RoleAdmin, access.RoleFleetManager:
			out = append(out, r)
		case access.RoleDriver:
			if truck.AssignedDriverID != "" && r.UserID == truck.AssignedDriverID {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// activeIndex tracks active evaluator notifications by active key and by
// (truck, type) condition.
type activeIndex struct {
	byKey       map[string]entity.Notification
	byCondition map[string]map[string]struct{}
}

func newActiveIndex(active []entity.Notification) *activeIndex {
	idx := &activeIndex{
		byKey:       make(map[string]entity.Notification, len(active)),
		byCondition: make(map[string]map[string]struct{}),
	}
	for _, n := range active {
		idx.put(n)
	}
	return idx
}

func conditionKey(truckID string, t entity.Type) string {
	return truckID + ":" + string(t)
}

func (idx *activeIndex) put(n entity.Notification) {
	key := entity.ActiveKey(n.UserID, n.TruckID, n.Type)
	idx.byKey[key] = n
	cond := conditionKey(n.TruckID, n.Type)
	if idx.byCondition[cond] == nil {
		idx.byCondition[cond] = make(map[string]struct{})
	}
	idx.byCondition[cond][key] = struct{}{}
}

func (idx *activeIndex) get(key string) (entity.Notification, bool) {
	n, ok := idx.byKey[key]
	return n, ok
}

func (idx *activeIndex) remove(key string) {
	n, ok := idx.byKey[key]
	if !ok {
		return
	}
	delete(idx.byKey, key)
	delete(idx.byCondition[conditionKey(n.TruckID, n.Type)], key)
}

// forCondition removes and returns the notifications for (truckID, t) whose
// user is not in keep.
func (idx *activeIndex) forCondition(truckID string, t entity.Type, keep map[string]bool) []entity.Notification {
	var out []entity.Notification
	for key := range idx.byCondition[conditionKey(truckID, t)] {
		n := idx.byKey[key]
		if keep[n.UserID] {
			continue
		}
		out = append(out, n)
		idx.remove(key)
	}
	return out
}
