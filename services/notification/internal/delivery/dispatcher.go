// Package delivery sends stored notifications out through email, SMS and
// push, honouring each recipient's preferences.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"fleetwatch/pkg/logger"
	"fleetwatch/pkg/metrics"
	"fleetwatch/services/notification/internal/entity"
)

// ErrNoAddress means the recipient has nowhere to receive on a channel.
// It counts as a skip, not a failure.
var ErrNoAddress = errors.New("recipient has no address for channel")

// ErrSendFailed marks errors from a channel rejecting a send, as opposed to
// failures loading recipients or preferences.
var ErrSendFailed = errors.New("channel send failed")

type Channel interface {
	Name() entity.Channel
	Send(ctx context.Context, recipient entity.Recipient, n entity.Notification) error
}

type RecipientSource interface {
	GetRecipients(ctx context.Context, ids []string) ([]entity.Recipient, error)
}

type PreferenceSource interface {
	GetMany(ctx context.Context, userIDs []string) (map[string]entity.Preferences, error)
}

type ChannelStats struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Result struct {
	Channels map[entity.Channel]*ChannelStats `json:"channels"`
	// Delivered counts notifications that went out on at least one channel.
	Delivered int `json:"delivered"`
}

func newResult(channels []Channel) Result {
	r := Result{Channels: make(map[entity.Channel]*ChannelStats, len(channels))}
	for _, ch := range channels {
		r.Channels[ch.Name()] = &ChannelStats{}
	}
	return r
}

func (r Result) Sent() int {
	total := 0
	for _, s := range r.Channels {
		total += s.Sent
	}
	return total
}

func (r Result) Failed() int {
	total := 0
	for _, s := range r.Channels {
		total += s.Failed
	}
	return total
}

type Dispatcher struct {
	recipients  RecipientSource
	preferences PreferenceSource
	channels    []Channel
	logger      *logger.Logger
}

func NewDispatcher(recipients RecipientSource, preferences PreferenceSource, log *logger.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		recipients:  recipients,
		preferences: preferences,
		channels:    channels,
		logger:      log,
	}
}

// Dispatch sends every notification on each enabled channel its recipient
// allows. Channel errors are collected; the rest of the batch still goes out.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []entity.Notification) (Result, error) {
	result := newResult(d.channels)
	if len(notifications) == 0 || len(d.channels) == 0 {
		return result, nil
	}

	userIDs := uniqueUserIDs(notifications)

	recipients, err := d.recipients.GetRecipients(ctx, userIDs)
	if err != nil {
		return result, fmt.Errorf("load recipients: %w", err)
	}
	prefs, err := d.preferences.GetMany(ctx, userIDs)
	if err != nil {
		return result, fmt.Errorf("load preferences: %w", err)
	}

	byID := make(map[string]entity.Recipient, len(recipients))
	for _, r := range recipients {
		byID[r.UserID] = r
	}

	var errs []error
	for _, n := range notifications {
		recipient, ok := byID[n.UserID]
		if !ok {
			d.logger.Warn("[DELIVERY] No recipient record for user %s, skipping notification %s", n.UserID, n.ID)
			for _, ch := range d.channels {
				d.record(result, ch.Name(), "skipped")
			}
			continue
		}

		p, ok := prefs[n.UserID]
		if !ok {
			p = entity.DefaultPreferences(n.UserID)
		}

		delivered := false
		for _, ch := range d.channels {
			if !p.Allows(ch.Name(), n.Type) {
				d.record(result, ch.Name(), "skipped")
				continue
			}

			err := ch.Send(ctx, recipient, n)
			switch {
			case errors.Is(err, ErrNoAddress):
				d.record(result, ch.Name(), "skipped")
			case err != nil:
				d.record(result, ch.Name(), "failed")
				d.logger.Error("[DELIVERY] %s delivery of %s to user %s failed: %v", ch.Name(), n.ID, n.UserID, err)
				errs = append(errs, fmt.Errorf("%w: %s to %s: %w", ErrSendFailed, ch.Name(), n.UserID, err))
			default:
				d.record(result, ch.Name(), "sent")
				delivered = true
			}
		}
		if delivered {
			result.Delivered++
		}
	}

	return result, errors.Join(errs...)
}

// Notify dispatches and reports how many notifications reached at least one
// channel.
func (d *Dispatcher) Notify(ctx context.Context, notifications []entity.Notification) (int, error) {
	result, err := d.Dispatch(ctx, notifications)
	d.logger.Info("[DELIVERY] Dispatched %d notifications: %d delivered, %d sends, %d failed",
		len(notifications), result.Delivered, result.Sent(), result.Failed())
	return result.Delivered, err
}

func (d *Dispatcher) record(result Result, channel entity.Channel, outcome string) {
	stats := result.Channels[channel]
	switch outcome {
	case "sent":
		stats.Sent++
	case "skipped":
		stats.Skipped++
	case "failed":
		stats.Failed++
	}
	metrics.Delivery(string(channel), outcome)
}

func uniqueUserIDs(notifications []entity.Notification) []string {
	seen := make(map[string]struct{}, len(notifications))
	ids := make([]string, 0, len(notifications))
	for _, n := range notifications {
		if _, ok := seen[n.UserID]; ok {
			continue
		}
		seen[n.UserID] = struct{}{}
		ids = append(ids, n.UserID)
	}
	sort.Strings(ids)
	return ids
}
