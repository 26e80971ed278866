package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetwatch/pkg/apperrors"
	"fleetwatch/services/notification/internal/entity"
)

// memNotifications mimics the notifications table, including the unique
// active_key index.
type memNotifications struct {
	mu    sync.Mutex
	rows  []*entity.Notification
	calls int

	retireExpiredErr error
	createErr        error
}

func (m *memNotifications) touch() {
	m.calls++
}

func (m *memNotifications) ListActiveManaged(_ context.Context, now time.Time) ([]entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	var out []entity.Notification
	for _, r := range m.rows {
		if r.ActiveKey != "" && r.IsActive(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memNotifications) CreateIfAbsent(_ context.Context, n *entity.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.createErr != nil {
		return false, m.createErr
	}
	for _, r := range m.rows {
		if n.ActiveKey != "" && r.ActiveKey == n.ActiveKey {
			return false, nil
		}
	}
	c := *n
	m.rows = append(m.rows, &c)
	return true, nil
}

func (m *memNotifications) Create(_ context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.createErr != nil {
		return m.createErr
	}
	c := *n
	m.rows = append(m.rows, &c)
	return nil
}

func (m *memNotifications) retire(r *entity.Notification, reason entity.RetireReason, at time.Time) {
	r.RetiredAt = &at
	r.RetiredReason = reason
	r.ActiveKey = ""
}

func (m *memNotifications) Retire(_ context.Context, ids []string, reason entity.RetireReason, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for _, r := range m.rows {
		if want[r.ID] && r.RetiredAt == nil {
			m.retire(r, reason, at)
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) RetireExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.retireExpiredErr != nil {
		return 0, m.retireExpiredErr
	}
	var n int64
	for _, r := range m.rows {
		if r.RetiredAt == nil && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			m.retire(r, entity.RetireExpired, now)
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) GetByID(_ context.Context, id string) (*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	for _, r := range m.rows {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Notification not found")
}

func (m *memNotifications) ListUnread(_ context.Context, userID string, now time.Time) ([]entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	var out []entity.Notification
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsRead && r.IsActive(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memNotifications) ListForUser(_ context.Context, userID string, now time.Time, limit, offset int) ([]entity.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	var all []entity.Notification
	for _, r := range m.rows {
		if r.UserID == userID && r.IsActive(now) {
			all = append(all, *r)
		}
	}
	entity.SortForInbox(all)
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	var n int64
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsRead && r.IsActive(now) {
			r.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	for _, r := range m.rows {
		if r.ID == id && r.UserID == userID && r.IsActive(now) {
			r.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

// active returns a stable snapshot of active rows for comparisons.
func (m *memNotifications) active(now time.Time) []entity.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Notification
	for _, r := range m.rows {
		if r.IsActive(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memFleet struct {
	trucks []entity.Truck
	err    error
}

func (f *memFleet) ListMonitoredTrucks(_ context.Context) ([]entity.Truck, error) {
	return f.trucks, f.err
}

type memUsers struct {
	users []entity.Recipient
	err   error
}

func (u *memUsers) ListRecipients(_ context.Context) ([]entity.Recipient, error) {
	if u.err != nil {
		return nil, u.err
	}
	var out []entity.Recipient
	for _, r := range u.users {
		if r.Role == "admin" || r.Role == "fleet_manager" || r.Role == "driver" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (u *memUsers) ListActive(_ context.Context) ([]entity.Recipient, error) {
	return u.users, u.err
}

func (u *memUsers) GetRecipients(_ context.Context, ids []string) ([]entity.Recipient, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []entity.Recipient
	for _, r := range u.users {
		if want[r.UserID] {
			out = append(out, r)
		}
	}
	return out, u.err
}

type memPreferences struct {
	stored map[string]entity.Preferences
}

func (p *memPreferences) Get(_ context.Context, userID string) (entity.Preferences, error) {
	if prefs, ok := p.stored[userID]; ok {
		return prefs, nil
	}
	return entity.DefaultPreferences(userID), nil
}

func (p *memPreferences) GetMany(ctx context.Context, userIDs []string) (map[string]entity.Preferences, error) {
	out := make(map[string]entity.Preferences, len(userIDs))
	for _, id := range userIDs {
		out[id], _ = p.Get(ctx, id)
	}
	return out, nil
}

func (p *memPreferences) Upsert(_ context.Context, prefs entity.Preferences) error {
	if p.stored == nil {
		p.stored = make(map[string]entity.Preferences)
	}
	p.stored[prefs.UserID] = prefs
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]entity.Notification
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, notifications []entity.Notification) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, notifications)
	if r.err != nil {
		return 0, r.err
	}
	return len(notifications), nil
}
