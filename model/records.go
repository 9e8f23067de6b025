package model

import "time"

// Message roles. Only user and assistant turns feed the language model.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatRecord is one conversation thread.
type ChatRecord struct {
	ID        string
	ProjectID string
	Title     string
	Model     string // preferred model for this thread, may be empty
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is one turn within a chat.
type MessageRecord struct {
	ID          string
	ChatID      string
	Role        string
	Content     string
	Attachments []string
	CreatedAt   time.Time
}

// NotificationRecord is a user-facing notification.
type NotificationRecord struct {
	ID          string
	Type        string
	Severity    string
	Title       string
	Message     string
	RelatedTool string
	Read        bool
	CreatedAt   time.Time
}

// ToolReportRecord is the persisted outcome of one toolbox run.
type ToolReportRecord struct {
	ID        string
	ToolName  string
	Status    string // "success", "warning", "error"
	Summary   string
	Details   string // JSON blob, opaque to the core
	CreatedAt time.Time
}
