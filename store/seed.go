package store

import (
	"fmt"

	"github.com/novahq/nova/model"
)

// Seed populates an empty database with a demo chat and a welcome
// notification. It does nothing when chats already exist.
func (s *Store) Seed(defaultModel string) error {
	chats, err := s.ListChats()
	if err != nil {
		return err
	}
	if len(chats) > 0 {
		return nil
	}

	chat, err := s.CreateChat("Getting started", defaultModel, "")
	if err != nil {
		return fmt.Errorf("seed chat: %w", err)
	}
	if _, err := s.CreateMessage(chat.ID, model.RoleAssistant,
		"Hi, I'm Nova. I can see your system telemetry and run diagnostics. "+
			"Ask me about CPU, memory, processes, logs, or network health.", nil); err != nil {
		return fmt.Errorf("seed message: %w", err)
	}

	if _, err := s.CreateNotification(model.NotificationRecord{
		Type:     "info",
		Severity: "info",
		Title:    "Welcome to Nova",
		Message:  "Monitoring is active. You will be notified when system health degrades.",
	}); err != nil {
		return fmt.Errorf("seed notification: %w", err)
	}
	return nil
}
