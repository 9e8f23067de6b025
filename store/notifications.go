package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/novahq/nova/model"
)

// ListUnreadNotifications returns unread notifications, newest first.
func (s *Store) ListUnreadNotifications() ([]model.NotificationRecord, error) {
	return s.queryNotifications(
		`SELECT id, type, severity, title, message, related_tool, read, created_at
		 FROM notifications WHERE read = 0 ORDER BY created_at DESC, rowid DESC`)
}

// ListNotifications returns up to limit notifications, newest first.
func (s *Store) ListNotifications(limit int) ([]model.NotificationRecord, error) {
	return s.queryNotifications(
		`SELECT id, type, severity, title, message, related_tool, read, created_at
		 FROM notifications ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// CreateNotification inserts a notification; id, read flag and timestamp are
// assigned here.
func (s *Store) CreateNotification(n model.NotificationRecord) (model.NotificationRecord, error) {
	n.ID = newID()
	n.Read = false
	n.CreatedAt = time.Now()

	_, err := s.db.Exec(
		`INSERT INTO notifications (id, type, severity, title, message, related_tool, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.Type, n.Severity, n.Title, n.Message,
		nullable(n.RelatedTool), formatTime(n.CreatedAt))
	if err != nil {
		return model.NotificationRecord{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one notification as read.
func (s *Store) MarkNotificationRead(id string) error {
	_, err := s.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every notification as read.
func (s *Store) MarkAllNotificationsRead() error {
	_, err := s.db.Exec(`UPDATE notifications SET read = 1`)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *Store) queryNotifications(query string, args ...any) ([]model.NotificationRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.NotificationRecord
	for rows.Next() {
		var n model.NotificationRecord
		var related sql.NullString
		var read int
		var created string
		if err := rows.Scan(&n.ID, &n.Type, &n.Severity, &n.Title, &n.Message, &related, &read, &created); err != nil {
			return nil, err
		}
		n.RelatedTool = related.String
		n.Read = read != 0
		n.CreatedAt = parseTime(created)
		out = append(out, n)
	}
	return out, rows.Err()
}
