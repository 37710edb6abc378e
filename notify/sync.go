// Package notify keeps the local notification feed consistent with the
// server: push events and fetched snapshots are reconciled by id, seen-state
// mutations are optimistic, and snapshot-load failure degrades to cached or
// fallback data instead of an empty feed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"campuschat/models"
	"campuschat/push"
)

// FilterAll selects every notification type in Filter.
const FilterAll = "all"

// ErrNotFound indicates a seen-mutation on an unknown notification id.
var ErrNotFound = errors.New("notify: notification not found")

// API is the subset of the REST client the synchronizer needs.
type API interface {
	Notifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationSeen(ctx context.Context, notificationID string) error
	MarkAllNotificationsSeen(ctx context.Context, userID string) error
}

// Cache persists the last good snapshot and the locally-seen ledger for one
// session. storage.Store satisfies it. Optional.
type Cache interface {
	ReplaceSnapshot([]models.Notification) error
	CachedNotifications() ([]models.Notification, error)
	MarkSeenID(notificationID string) error
	SeenIDs() (map[string]struct{}, error)
}

// Config configures a Sync.
type Config struct {
	API    API
	Cache  Cache
	UserID string
	Logger *slog.Logger
}

// Sync owns the authoritative local view of one user's notification feed.
type Sync struct {
	api    API
	cache  Cache
	userID string
	logger *slog.Logger

	mu   sync.RWMutex
	byID map[string]models.Notification
}

// NewSync validates config and returns an empty synchronizer.
func NewSync(cfg Config) (*Sync, error) {
	if cfg.API == nil {
		return nil, errors.New("notify: API is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("notify: user id is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sync{
		api:    cfg.API,
		cache:  cfg.Cache,
		userID: cfg.UserID,
		logger: logger,
		byID:   make(map[string]models.Notification),
	}, nil
}

// LoadSnapshot fetches the full feed and merges it into the local set. Local
// seen=true is sticky: a stale unseen value from a delayed fetch never
// reverts it. On fetch failure the synchronizer degrades to the cached
// snapshot, then to a fixed fallback dataset, and reports success so the UI
// stays populated.
func (s *Sync) LoadSnapshot(ctx context.Context) error {
	fetched, err := s.api.Notifications(ctx, s.userID)
	if err != nil {
		s.logger.Warn("notification snapshot fetch failed, entering degraded mode",
			"user_id", s.userID, "error", err)
		s.merge(s.degradedDataset())
		return nil
	}

	s.merge(fetched)

	if s.cache != nil {
		if err := s.cache.ReplaceSnapshot(s.Filter(FilterAll)); err != nil {
			s.logger.Warn("notification snapshot cache write failed", "error", err)
		}
	}
	return nil
}

// degradedDataset prefers the session cache and falls back to fixed entries.
func (s *Sync) degradedDataset() []models.Notification {
	if s.cache != nil {
		cached, err := s.cache.CachedNotifications()
		if err != nil {
			s.logger.Warn("notification cache read failed", "error", err)
		} else if len(cached) > 0 {
			return cached
		}
	}
	return fallbackNotifications()
}

// merge reconciles an incoming batch into the local set, deduplicating by id.
func (s *Sync) merge(incoming []models.Notification) {
	ledger := s.seenLedger()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range incoming {
		if n.ID == "" {
			continue
		}
		if _, ok := ledger[n.ID]; ok {
			n.Seen = true
		}
		if existing, ok := s.byID[n.ID]; ok && existing.Seen {
			// Local seen=true wins over a stale unseen fetch.
			n.Seen = true
		}
		s.byID[n.ID] = n
	}
}

func (s *Sync) seenLedger() map[string]struct{} {
	if s.cache == nil {
		return nil
	}
	ledger, err := s.cache.SeenIDs()
	if err != nil {
		s.logger.Warn("seen ledger read failed", "error", err)
		return nil
	}
	return ledger
}

// OnPush inserts a pushed notification unless its id is already known.
// An existing id means double delivery from a flaky channel; the push is
// ignored entirely so it cannot revert a local mutation.
func (s *Sync) OnPush(notification models.Notification) {
	if notification.ID == "" {
		s.logger.Warn("dropping pushed notification without id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[notification.ID]; exists {
		return
	}
	s.byID[notification.ID] = notification
}

// Run consumes push channel events until the stream closes or the context
// ends. Reconnecting the channel is the caller's concern.
func (s *Sync) Run(ctx context.Context, events <-chan push.Event) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Type {
			case push.EventConnected:
				s.logger.Info("notification stream connected", "user_id", s.userID)
			case push.EventNotification:
				if event.Notification != nil {
					s.OnPush(*event.Notification)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// MarkSeen optimistically flips one notification to seen, then confirms
// remotely. A failed confirmation is surfaced but the local flip is kept;
// the next successful snapshot settles the difference.
func (s *Sync) MarkSeen(ctx context.Context, notificationID string) error {
	s.mu.Lock()
	n, ok := s.byID[notificationID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	n.Seen = true
	s.byID[notificationID] = n
	s.mu.Unlock()

	s.recordSeen(notificationID)

	if err := s.api.MarkNotificationSeen(ctx, notificationID); err != nil {
		s.logger.Warn("seen confirmation failed, keeping local state",
			"notification_id", notificationID, "error", err)
		return fmt.Errorf("confirm seen for notification %q: %w", notificationID, err)
	}
	return nil
}

// MarkAllSeen is the batched MarkSeen with the same no-rollback policy.
func (s *Sync) MarkAllSeen(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.byID))
	for id, n := range s.byID {
		if !n.Seen {
			n.Seen = true
			s.byID[id] = n
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.recordSeen(id)
	}

	if err := s.api.MarkAllNotificationsSeen(ctx, s.userID); err != nil {
		s.logger.Warn("seen-all confirmation failed, keeping local state",
			"user_id", s.userID, "error", err)
		return fmt.Errorf("confirm seen-all for user %q: %w", s.userID, err)
	}
	return nil
}

func (s *Sync) recordSeen(notificationID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkSeenID(notificationID); err != nil {
		s.logger.Warn("seen ledger write failed", "notification_id", notificationID, "error", err)
	}
}

// Filter returns a non-destructive view restricted to one notification
// type, or everything for FilterAll / empty. Newest first.
func (s *Sync) Filter(notificationType string) []models.Notification {
	s.mu.RLock()
	out := make([]models.Notification, 0, len(s.byID))
	for _, n := range s.byID {
		if notificationType == "" || notificationType == FilterAll || n.Type == notificationType {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out
}

// UnreadCount returns the number of unseen notifications.
func (s *Sync) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byID {
		if !n.Seen {
			count++
		}
	}
	return count
}

// Get returns one notification by id.
func (s *Sync) Get(notificationID string) (models.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[notificationID]
	return n, ok
}
