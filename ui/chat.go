// Package ui is the fullscreen bubbletea chat console: a message log, an
// input line, and a live telemetry status bar.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/novahq/nova/chat"
	"github.com/novahq/nova/model"
)

// statusInterval is how often the status bar re-reads the telemetry snapshot.
const statusInterval = 2 * time.Second

type tickMsg time.Time

// replyMsg is sent when a round-trip through the orchestrator completes.
type replyMsg struct {
	correlationID string
	reply         model.MessageRecord
	err           error
}

// ConversationStore is the persistence the UI reads directly.
type ConversationStore interface {
	ListChats() ([]model.ChatRecord, error)
	ListMessages(chatID string) ([]model.MessageRecord, error)
	ListUnreadNotifications() ([]model.NotificationRecord, error)
}

// SnapshotSource provides the current telemetry snapshot (nil when none).
type SnapshotSource interface {
	Snapshot() *model.TelemetrySnapshot
}

// EventRecorder receives the renderer-side pipeline stages.
type EventRecorder interface {
	RecordEvent(stage, correlationID string, metadata map[string]any)
}

// Sender runs the message pipeline.
type Sender interface {
	SendMessage(ctx context.Context, p chat.SendMessageParams) (model.MessageRecord, error)
}

// Model is the bubbletea model.
type Model struct {
	store     ConversationStore
	sender    Sender
	telemetry SnapshotSource
	recorder  EventRecorder

	width  int
	height int

	chatID   string
	chatName string
	messages []model.MessageRecord

	input   string
	waiting bool
	errMsg  string

	snap   *model.TelemetrySnapshot
	unread int
}

// NewModel creates the chat TUI. The active conversation is the most
// recently updated one; SendMessage creates nothing, so a seeded store is
// expected.
func NewModel(store ConversationStore, sender Sender, telemetry SnapshotSource, recorder EventRecorder) Model {
	m := Model{
		store:     store,
		sender:    sender,
		telemetry: telemetry,
		recorder:  recorder,
	}
	if chats, err := store.ListChats(); err == nil && len(chats) > 0 {
		m.chatID = chats[0].ID
		m.chatName = chats[0].Title
	}
	m.reloadMessages()
	m.refreshStatus()
	return m
}

func (m *Model) reloadMessages() {
	if m.chatID == "" {
		return
	}
	if msgs, err := m.store.ListMessages(m.chatID); err == nil {
		m.messages = msgs
	}
}

func (m *Model) refreshStatus() {
	m.snap = m.telemetry.Snapshot()
	if notes, err := m.store.ListUnreadNotifications(); err == nil {
		m.unread = len(notes)
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// send records the renderer-side stage and dispatches the pipeline. The same
// correlation id groups the renderer stages with the orchestrator's.
func (m *Model) send(content string) tea.Cmd {
	correlationID := uuid.NewString()
	m.recorder.RecordEvent(model.StageRendererSend, correlationID, map[string]any{
		"conversationId": m.chatID,
		"contentLength":  len(content),
	})

	sender, chatID := m.sender, m.chatID
	return func() tea.Msg {
		reply, err := sender.SendMessage(context.Background(), chat.SendMessageParams{
			ConversationID: chatID,
			Content:        content,
			CorrelationID:  correlationID,
		})
		return replyMsg{correlationID: correlationID, reply: reply, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.refreshStatus()
		return m, tick()

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.errMsg = ""
		}
		m.reloadMessages()
		m.recorder.RecordEvent(model.StageRendererStateUpdated, msg.correlationID, map[string]any{
			"conversationId": m.chatID,
		})
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			content := strings.TrimSpace(m.input)
			if content == "" || m.waiting {
				return m, nil
			}
			m.input = ""
			m.waiting = true
			m.errMsg = ""
			// Show the user turn immediately; the store copy replaces it
			// on reload.
			m.messages = append(m.messages, model.MessageRecord{
				Role: model.RoleUser, Content: content, CreatedAt: time.Now(),
			})
			return m, m.send(content)
		case "backspace":
			if len(m.input) > 0 {
				runes := []rune(m.input)
				m.input = string(runes[:len(runes)-1])
			}
		default:
			switch msg.Type {
			case tea.KeyRunes:
				m.input += string(msg.Runes)
			case tea.KeySpace:
				m.input += " "
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	height := m.height
	if height <= 0 {
		height = 24
	}

	status := m.renderStatusBar(width)
	input := inputStyle.Width(width - 4).Render("> " + m.input + cursor(m.waiting))
	help := helpStyle.Render("  enter send · esc quit")

	logHeight := height - lipgloss.Height(status) - lipgloss.Height(input) - lipgloss.Height(help)
	log := m.renderMessages(width, logHeight)

	return lipgloss.JoinVertical(lipgloss.Left, status, log, input, help)
}

func cursor(waiting bool) string {
	if waiting {
		return " …"
	}
	return "█"
}

func (m Model) renderStatusBar(width int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("nova"))
	if m.chatName != "" {
		parts = append(parts, valueStyle.Render(m.chatName))
	}

	if m.snap == nil {
		parts = append(parts, labelStyle.Render("telemetry: warming up"))
	} else {
		st := m.snap.Status.String()
		parts = append(parts, statusColor(st).Render(st))
		parts = append(parts, fmt.Sprintf("CPU %.0f%%", m.snap.CPULoad))
		parts = append(parts, fmt.Sprintf("MEM %.0f%%", m.snap.MemoryLoad))
		if m.snap.GPULoad != nil {
			parts = append(parts, fmt.Sprintf("GPU %.0f%%", *m.snap.GPULoad))
		}
		if n := len(m.snap.ActiveAlerts); n > 0 {
			parts = append(parts, warnStyle.Render(fmt.Sprintf("%d alert(s)", n)))
		}
	}
	if m.unread > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d unread", m.unread)))
	}

	return statusBarStyle.Width(width).Render(strings.Join(parts, "  |  "))
}

func (m Model) renderMessages(width, height int) string {
	var lines []string
	for _, msg := range m.messages {
		prefix := userStyle.Render("you")
		if msg.Role == model.RoleAssistant {
			prefix = novaStyle.Render("nova")
		}
		body := lipgloss.NewStyle().Width(width - 8).Render(msg.Content)
		lines = append(lines, prefix+"  "+body, "")
	}
	if m.waiting {
		lines = append(lines, labelStyle.Render("nova is thinking…"), "")
	}
	if m.errMsg != "" {
		lines = append(lines, critStyle.Render("error: "+m.errMsg), "")
	}
	if len(lines) == 0 {
		lines = append(lines, labelStyle.Render("No messages yet. Say hello."))
	}

	// Keep the tail visible.
	all := strings.Split(strings.Join(lines, "\n"), "\n")
	if height > 0 && len(all) > height {
		all = all[len(all)-height:]
	}
	return strings.Join(all, "\n")
}
