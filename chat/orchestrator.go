// Package chat implements the per-message pipeline: resolve the conversation,
// inject live telemetry into the assistant's instructions, call the language
// model, and record stage timing throughout.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/novahq/nova/ai"
	"github.com/novahq/nova/model"
)

// DefaultConversation is the sentinel id resolving to the most recently
// updated conversation.
const DefaultConversation = "default"

// completionTemperature keeps replies deterministic-leaning.
const completionTemperature = 0.2

// ErrNoChats is returned when the default sentinel cannot resolve because no
// conversation exists.
var ErrNoChats = errors.New("no chat threads available")

// ConversationStore is the chat/message persistence consumed by the
// orchestrator. ListChats orders by last update descending; ListMessages by
// creation time ascending.
type ConversationStore interface {
	ListChats() ([]model.ChatRecord, error)
	GetChat(id string) (*model.ChatRecord, error)
	ListMessages(chatID string) ([]model.MessageRecord, error)
	CreateMessage(chatID, role, content string, attachments []string) (model.MessageRecord, error)
}

// Completer is the language-model collaborator.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.Turn, error)
}

// SnapshotSource provides the current telemetry snapshot (nil when none).
type SnapshotSource interface {
	Snapshot() *model.TelemetrySnapshot
}

// ActiveAlertSource provides the current primary alert (nil when none open).
type ActiveAlertSource interface {
	ActiveAlert() *model.Alert
}

// EventRecorder receives pipeline stage events.
type EventRecorder interface {
	RecordEvent(stage, correlationID string, metadata map[string]any)
}

// Orchestrator runs the send-message pipeline. All collaborators are
// injected once at construction.
type Orchestrator struct {
	store        ConversationStore
	llm          Completer
	telemetry    SnapshotSource
	alerts       ActiveAlertSource
	recorder     EventRecorder
	defaultModel string
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(
	store ConversationStore,
	llm Completer,
	telemetry SnapshotSource,
	alerts ActiveAlertSource,
	recorder EventRecorder,
	defaultModel string,
) *Orchestrator {
	return &Orchestrator{
		store:        store,
		llm:          llm,
		telemetry:    telemetry,
		alerts:       alerts,
		recorder:     recorder,
		defaultModel: defaultModel,
	}
}

// SendMessageParams carries one user message into the pipeline.
type SendMessageParams struct {
	// ConversationID may be DefaultConversation (or empty) to target the
	// most recently updated chat.
	ConversationID string
	Content        string
	Attachments    []string
	// Model overrides the conversation's stored model when set.
	Model string
	// CorrelationID groups this round-trip's telemetry events. The caller
	// may supply the id it already used for its own stages (rendererSend);
	// when empty a new one is generated.
	CorrelationID string
}

// SendMessage runs the full pipeline and returns the persisted assistant
// reply. Failures are recorded as error-stage telemetry events and returned
// unchanged; the already-persisted user turn is never rolled back.
func (o *Orchestrator) SendMessage(ctx context.Context, p SendMessageParams) (model.MessageRecord, error) {
	correlationID := p.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if strings.TrimSpace(p.Content) == "" {
		return model.MessageRecord{}, o.fail(correlationID, "orchestrator",
			errors.New("message content is empty"))
	}

	o.recorder.RecordEvent(model.StageIPCRequestSent, correlationID, map[string]any{
		"conversationId": p.ConversationID,
		"contentLength":  len(p.Content),
	})

	chat, err := o.resolveConversation(p.ConversationID)
	if err != nil {
		return model.MessageRecord{}, o.fail(correlationID, "orchestrator", err)
	}

	modelName := o.resolveModel(p.Model, chat.Model)

	history, err := o.loadHistory(chat.ID)
	if err != nil {
		return model.MessageRecord{}, o.fail(correlationID, "store", err)
	}

	if _, err := o.store.CreateMessage(chat.ID, model.RoleUser, p.Content, p.Attachments); err != nil {
		return model.MessageRecord{}, o.fail(correlationID, "store", err)
	}

	system := BuildPreamble(o.telemetry.Snapshot(), o.alerts.ActiveAlert())

	o.recorder.RecordEvent(model.StageAIServiceStarted, correlationID, map[string]any{
		"conversationId": chat.ID,
		"model":          modelName,
	})

	reply, err := o.llm.Complete(ctx, ai.CompletionRequest{
		Model:       modelName,
		System:      system,
		History:     history,
		User:        p.Content,
		Temperature: completionTemperature,
	})
	if err != nil {
		// The user turn stays persisted; only the reply is missing.
		return model.MessageRecord{}, o.fail(correlationID, "ai", err)
	}

	o.recorder.RecordEvent(model.StageOpenAIResponseReceived, correlationID, map[string]any{
		"conversationId": chat.ID,
		"replyLength":    len(reply.Content),
	})

	saved, err := o.store.CreateMessage(chat.ID, model.RoleAssistant, reply.Content, nil)
	if err != nil {
		return model.MessageRecord{}, o.fail(correlationID, "store", err)
	}

	o.recorder.RecordEvent(model.StageAIServiceFinished, correlationID, map[string]any{
		"conversationId": chat.ID,
	})
	o.recorder.RecordEvent(model.StageIPCReplyDelivered, correlationID, map[string]any{
		"conversationId": chat.ID,
		"messageId":      saved.ID,
	})

	return saved, nil
}

// resolveConversation maps the sentinel to the most recently updated chat and
// verifies explicit ids exist.
func (o *Orchestrator) resolveConversation(id string) (*model.ChatRecord, error) {
	if id == "" || id == DefaultConversation {
		chats, err := o.store.ListChats()
		if err != nil {
			return nil, err
		}
		if len(chats) == 0 {
			return nil, ErrNoChats
		}
		return &chats[0], nil
	}

	chat, err := o.store.GetChat(id)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return chat, nil
}

// resolveModel applies the precedence: explicit override, then the
// conversation's stored model, then the system default.
func (o *Orchestrator) resolveModel(override, stored string) string {
	if override != "" {
		return override
	}
	if stored != "" {
		return stored
	}
	return o.defaultModel
}

// loadHistory returns the prior turns, keeping only user/assistant roles.
func (o *Orchestrator) loadHistory(chatID string) ([]ai.Turn, error) {
	msgs, err := o.store.ListMessages(chatID)
	if err != nil {
		return nil, err
	}
	var turns []ai.Turn
	for _, m := range msgs {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		turns = append(turns, ai.Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

// fail records an error-stage event and returns the error unchanged.
func (o *Orchestrator) fail(correlationID, service string, err error) error {
	o.recorder.RecordEvent(model.StageError, correlationID, map[string]any{
		"service": service,
		"message": err.Error(),
	})
	return err
}
