package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/novahq/nova/model"
)

// ListMessages returns all messages of a chat in creation order.
func (s *Store) ListMessages(chatID string) ([]model.MessageRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, chat_id, role, content, attachments, created_at
		 FROM messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.MessageRecord
	for rows.Next() {
		var m model.MessageRecord
		var attachments sql.NullString
		var created string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &attachments, &created); err != nil {
			return nil, err
		}
		if attachments.Valid && attachments.String != "" {
			// Attachments are stored as a JSON array; a malformed blob just
			// yields no attachments.
			_ = json.Unmarshal([]byte(attachments.String), &m.Attachments)
		}
		m.CreatedAt = parseTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateMessage appends a message to a chat and bumps the chat's updated_at,
// so the most recently active chat sorts first in ListChats.
func (s *Store) CreateMessage(chatID, role, content string, attachments []string) (model.MessageRecord, error) {
	m := model.MessageRecord{
		ID:          newID(),
		ChatID:      chatID,
		Role:        role,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}

	var attachBlob any
	if len(attachments) > 0 {
		data, err := json.Marshal(attachments)
		if err != nil {
			return model.MessageRecord{}, fmt.Errorf("encode attachments: %w", err)
		}
		attachBlob = string(data)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("create message: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO messages (id, chat_id, role, content, attachments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.Role, m.Content, attachBlob, formatTime(m.CreatedAt)); err != nil {
		return model.MessageRecord{}, fmt.Errorf("create message: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE chats SET updated_at = ? WHERE id = ?`,
		formatTime(m.CreatedAt), m.ChatID); err != nil {
		return model.MessageRecord{}, fmt.Errorf("touch chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.MessageRecord{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}
