package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/novahq/nova/model"
)

// ListChats returns all chats, most recently updated first.
func (s *Store) ListChats() ([]model.ChatRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, COALESCE(project_id, ''), title, model, created_at, updated_at
		 FROM chats ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []model.ChatRecord
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns the chat with the given id, or nil when it does not exist.
func (s *Store) GetChat(id string) (*model.ChatRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, COALESCE(project_id, ''), title, model, created_at, updated_at
		 FROM chats WHERE id = ?`, id)
	c, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChat inserts a new chat thread.
func (s *Store) CreateChat(title, modelName, projectID string) (model.ChatRecord, error) {
	c := model.ChatRecord{
		ID:        newID(),
		ProjectID: projectID,
		Title:     title,
		Model:     modelName,
		CreatedAt: time.Now(),
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.Exec(
		`INSERT INTO chats (id, project_id, title, model, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, nullable(c.ProjectID), c.Title, c.Model,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return model.ChatRecord{}, fmt.Errorf("create chat: %w", err)
	}
	return c, nil
}

// UpdateChatModel sets the preferred model for a chat.
func (s *Store) UpdateChatModel(id, modelName string) error {
	_, err := s.db.Exec(
		`UPDATE chats SET model = ?, updated_at = ? WHERE id = ?`,
		modelName, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update chat model: %w", err)
	}
	return nil
}

// DeleteChat removes a chat and, via cascade, its messages.
func (s *Store) DeleteChat(id string) error {
	_, err := s.db.Exec(`DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(r rowScanner) (model.ChatRecord, error) {
	var c model.ChatRecord
	var created, updated string
	if err := r.Scan(&c.ID, &c.ProjectID, &c.Title, &c.Model, &created, &updated); err != nil {
		return model.ChatRecord{}, err
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
