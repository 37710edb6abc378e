package storage

import (
	"errors"
	"fmt"
	"time"

	"campuschat/models"
)

// ReplaceSnapshot overwrites the cached notification snapshot.
func (s *Store) ReplaceSnapshot(notifications []models.Notification) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`DELETE FROM notification_cache`); err != nil {
		return fmt.Errorf("clear notification cache: %w", err)
	}

	for _, n := range notifications {
		if n.ID == "" {
			return errors.New("notification id is required")
		}
		seen := 0
		if n.Seen {
			seen = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO notification_cache (notification_id, type, text, created_at_utc, seen)
			VALUES (?, ?, ?, ?, ?)`,
			n.ID,
			n.Type,
			n.Text,
			n.CreatedAtUTC,
			seen,
		); err != nil {
			return fmt.Errorf("cache notification %q: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}

	return nil
}

// CachedNotifications returns the cached snapshot newest-first.
func (s *Store) CachedNotifications() ([]models.Notification, error) {
	rows, err := s.db.Query(
		`SELECT notification_id, type, text, created_at_utc, seen
		FROM notification_cache
		ORDER BY created_at_utc DESC, notification_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("read notification cache: %w", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var (
			n    models.Notification
			seen int
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Text, &n.CreatedAtUTC, &seen); err != nil {
			return nil, fmt.Errorf("scan cached notification: %w", err)
		}
		n.Seen = seen == 1
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached notifications: %w", err)
	}

	return notifications, nil
}

// MarkSeenID records a locally seen notification id so seen-state survives
// snapshot reloads within the session.
func (s *Store) MarkSeenID(notificationID string) error {
	if notificationID == "" {
		return errors.New("notification_id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO seen_notification_ids (notification_id, marked_at)
		VALUES (?, ?)
		ON CONFLICT(notification_id) DO UPDATE SET marked_at = excluded.marked_at`,
		notificationID,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record seen notification ID %q: %w", notificationID, err)
	}

	return nil
}

// SeenIDs returns every locally seen notification id.
func (s *Store) SeenIDs() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT notification_id FROM seen_notification_ids`)
	if err != nil {
		return nil, fmt.Errorf("read seen notification IDs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen notification ID: %w", err)
		}
		out[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen notification IDs: %w", err)
	}

	return out, nil
}

// PruneSeenIDs removes ledger entries older than the cutoff timestamp.
func (s *Store) PruneSeenIDs(cutoffTimestamp int64) (int64, error) {
	if cutoffTimestamp <= 0 {
		return 0, errors.New("cutoff timestamp must be > 0")
	}

	res, err := s.db.Exec(`DELETE FROM seen_notification_ids WHERE marked_at < ?`, cutoffTimestamp)
	if err != nil {
		return 0, fmt.Errorf("prune seen notification IDs: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected for seen ID prune: %w", err)
	}

	return rowsAffected, nil
}
