package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/queue"
	"fleetwatch/services/notification/internal/entity"
)

type TaskPublisher interface {
	PublishDeliveryTask(ctx context.Context, task queue.DeliveryTask, priority uint8) error
}

// AMQPPriority maps notification priority onto the queue's 0..10 range.
func AMQPPriority(p entity.Priority) uint8 {
	switch p {
	case entity.PriorityCritical:
		return 9
	case entity.PriorityHigh:
		return 6
	case entity.PriorityMedium:
		return 3
	default:
		return 1
	}
}

// QueueNotifier defers delivery to queue consumers instead of sending inline.
type QueueNotifier struct {
	publisher TaskPublisher
	logger    *logger.Logger
}

func NewQueueNotifier(publisher TaskPublisher, log *logger.Logger) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, logger: log}
}

// Notify enqueues one task per notification and reports how many were accepted.
func (q *QueueNotifier) Notify(ctx context.Context, notifications []entity.Notification) (int, error) {
	enqueued := 0
	var errs []error
	for _, n := range notifications {
		task := queue.DeliveryTask{NotificationID: n.ID}
		if err := q.publisher.PublishDeliveryTask(ctx, task, AMQPPriority(n.Priority)); err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", n.ID, err))
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		q.logger.Info("[DELIVERY] Enqueued %d of %d notifications for delivery", enqueued, len(notifications))
	}
	return enqueued, errors.Join(errs...)
}

type NotificationLoader interface {
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
}

// NewTaskHandler builds the queue consumer callback. Tasks for notifications
// that no longer exist or are no longer active are acknowledged and dropped.
// A channel rejecting a send is logged and acknowledged, so channels that
// already succeeded are not sent to again; only load failures are returned.
func NewTaskHandler(loader NotificationLoader, dispatcher *Dispatcher, clock func() time.Time, log *logger.Logger) func(context.Context, queue.DeliveryTask) error {
	return func(ctx context.Context, task queue.DeliveryTask) error {
		taskLog := log.With("notification_id", task.NotificationID)

		n, err := loader.GetByID(ctx, task.NotificationID)
		if apperrors.Is(err, apperrors.CodeNotFound) {
			taskLog.Warn("[DELIVERY] Notification %s no longer exists, dropping task", task.NotificationID)
			return nil
		}
		if err != nil {
			return err
		}
		if !n.IsActive(clock()) {
			taskLog.Info("[DELIVERY] Notification %s is no longer active, dropping task", task.NotificationID)
			return nil
		}

		result, err := dispatcher.Dispatch(ctx, []entity.Notification{*n})
		if errors.Is(err, ErrSendFailed) {
			taskLog.Warn("[DELIVERY] Notification %s partly undelivered (%d sent, %d failed), not retrying: %v",
				n.ID, result.Sent(), result.Failed(), err)
			return nil
		}
		return err
	}
}
