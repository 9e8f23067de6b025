package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/nova/ai"
	"github.com/novahq/nova/model"
)

type fakeStore struct {
	chats    []model.ChatRecord
	messages map[string][]model.MessageRecord

	listChatsErr error
	createErr    error
	nextID       int
}

func newFakeStore(chats ...model.ChatRecord) *fakeStore {
	return &fakeStore{chats: chats, messages: make(map[string][]model.MessageRecord)}
}

func (f *fakeStore) ListChats() ([]model.ChatRecord, error) {
	if f.listChatsErr != nil {
		return nil, f.listChatsErr
	}
	return f.chats, nil
}

func (f *fakeStore) GetChat(id string) (*model.ChatRecord, error) {
	for _, c := range f.chats {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListMessages(chatID string) ([]model.MessageRecord, error) {
	return f.messages[chatID], nil
}

func (f *fakeStore) CreateMessage(chatID, role, content string, attachments []string) (model.MessageRecord, error) {
	if f.createErr != nil {
		return model.MessageRecord{}, f.createErr
	}
	f.nextID++
	m := model.MessageRecord{
		ID:          fmt.Sprintf("m-%d", f.nextID),
		ChatID:      chatID,
		Role:        role,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	f.messages[chatID] = append(f.messages[chatID], m)
	return m, nil
}

type fakeLLM struct {
	lastReq ai.CompletionRequest
	reply   string
	err     error
}

func (f *fakeLLM) Complete(_ context.Context, req ai.CompletionRequest) (ai.Turn, error) {
	f.lastReq = req
	if f.err != nil {
		return ai.Turn{}, f.err
	}
	return ai.Turn{Role: model.RoleAssistant, Content: f.reply}, nil
}

type fakeTelemetry struct {
	snap *model.TelemetrySnapshot
}

func (f *fakeTelemetry) Snapshot() *model.TelemetrySnapshot { return f.snap }

type fakeAlerts struct {
	alert *model.Alert
}

func (f *fakeAlerts) ActiveAlert() *model.Alert { return f.alert }

type recordedEvent struct {
	stage         string
	correlationID string
	metadata      map[string]any
}

type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) RecordEvent(stage, correlationID string, metadata map[string]any) {
	f.events = append(f.events, recordedEvent{stage, correlationID, metadata})
}

func (f *fakeRecorder) stages() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.stage
	}
	return out
}

func testOrchestrator(store *fakeStore, llm *fakeLLM) (*Orchestrator, *fakeRecorder) {
	rec := &fakeRecorder{}
	o := NewOrchestrator(store, llm, &fakeTelemetry{}, &fakeAlerts{}, rec, "gpt-4o-mini")
	return o, rec
}

func TestSendMessageHappyPath(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1", Title: "Ops"})
	llm := &fakeLLM{reply: "All quiet."}
	o, rec := testOrchestrator(store, llm)

	saved, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "c1",
		Content:        "How is the box?",
		CorrelationID:  "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, saved.Role)
	assert.Equal(t, "All quiet.", saved.Content)

	msgs := store.messages["c1"]
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)

	assert.Equal(t, []string{
		model.StageIPCRequestSent,
		model.StageAIServiceStarted,
		model.StageOpenAIResponseReceived,
		model.StageAIServiceFinished,
		model.StageIPCReplyDelivered,
	}, rec.stages())
	for _, e := range rec.events {
		assert.Equal(t, "corr-1", e.correlationID)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1"})
	o, rec := testOrchestrator(store, &fakeLLM{})

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "c1",
		Content:        "   \n ",
	})
	require.Error(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, model.StageError, rec.events[0].stage)
	assert.Equal(t, "orchestrator", rec.events[0].metadata["service"])
	assert.Empty(t, store.messages["c1"], "nothing is persisted for an empty message")
}

func TestSendMessageDefaultSentinel(t *testing.T) {
	store := newFakeStore(
		model.ChatRecord{ID: "recent", Title: "Most recent"},
		model.ChatRecord{ID: "older"},
	)
	llm := &fakeLLM{reply: "ok"}
	o, _ := testOrchestrator(store, llm)

	for _, id := range []string{DefaultConversation, ""} {
		_, err := o.SendMessage(context.Background(), SendMessageParams{
			ConversationID: id,
			Content:        "hello",
		})
		require.NoError(t, err)
	}
	assert.Len(t, store.messages["recent"], 4)
	assert.Empty(t, store.messages["older"])
}

func TestSendMessageDefaultSentinelNoChats(t *testing.T) {
	store := newFakeStore()
	o, rec := testOrchestrator(store, &fakeLLM{})

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: DefaultConversation,
		Content:        "hello",
	})
	require.ErrorIs(t, err, ErrNoChats)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, model.StageError, last.stage)
	assert.Equal(t, "no chat threads available", last.metadata["message"])
}

func TestSendMessageUnknownConversation(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1"})
	o, _ := testOrchestrator(store, &fakeLLM{})

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "ghost",
		Content:        "hello",
	})
	require.EqualError(t, err, "conversation ghost not found")
}

func TestModelPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		override  string
		chatModel string
		wantModel string
	}{
		{"override wins", "gpt-4o", "gpt-4.1-mini", "gpt-4o"},
		{"stored model next", "", "gpt-4.1-mini", "gpt-4.1-mini"},
		{"default last", "", "", "gpt-4o-mini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(model.ChatRecord{ID: "c1", Model: tt.chatModel})
			llm := &fakeLLM{reply: "ok"}
			o, _ := testOrchestrator(store, llm)

			_, err := o.SendMessage(context.Background(), SendMessageParams{
				ConversationID: "c1",
				Content:        "hello",
				Model:          tt.override,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, llm.lastReq.Model)
		})
	}
}

func TestHistoryFiltersNonChatRoles(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1"})
	store.messages["c1"] = []model.MessageRecord{
		{Role: model.RoleUser, Content: "earlier question"},
		{Role: model.RoleSystem, Content: "internal note"},
		{Role: model.RoleAssistant, Content: "earlier answer"},
		{Role: "tool", Content: "raw tool output"},
	}
	llm := &fakeLLM{reply: "ok"}
	o, _ := testOrchestrator(store, llm)

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "c1",
		Content:        "next question",
	})
	require.NoError(t, err)

	require.Len(t, llm.lastReq.History, 2)
	assert.Equal(t, model.RoleUser, llm.lastReq.History[0].Role)
	assert.Equal(t, model.RoleAssistant, llm.lastReq.History[1].Role)
	assert.Equal(t, "next question", llm.lastReq.User)
	assert.InDelta(t, 0.2, llm.lastReq.Temperature, 0.0001)
}

func TestCompletionFailureKeepsUserTurn(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1"})
	llmErr := errors.New("rate limited")
	o, rec := testOrchestrator(store, &fakeLLM{err: llmErr})

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "c1",
		Content:        "hello",
	})
	require.ErrorIs(t, err, llmErr, "the upstream error is surfaced unchanged")

	msgs := store.messages["c1"]
	require.Len(t, msgs, 1, "the user turn is never rolled back")
	assert.Equal(t, model.RoleUser, msgs[0].Role)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, model.StageError, last.stage)
	assert.Equal(t, "ai", last.metadata["service"])
	assert.Equal(t, "rate limited", last.metadata["message"])
}

func TestSendMessageGeneratesCorrelationID(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1"})
	llm := &fakeLLM{reply: "ok"}
	o, rec := testOrchestrator(store, llm)

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "c1",
		Content:        "hello",
	})
	require.NoError(t, err)

	require.NotEmpty(t, rec.events)
	id := rec.events[0].correlationID
	assert.NotEmpty(t, id)
	for _, e := range rec.events {
		assert.Equal(t, id, e.correlationID)
	}
}

func TestPreambleReachesModel(t *testing.T) {
	store := newFakeStore(model.ChatRecord{ID: "c1"})
	llm := &fakeLLM{reply: "ok"}
	rec := &fakeRecorder{}
	gpu := 42.0
	telemetry := &fakeTelemetry{snap: &model.TelemetrySnapshot{
		Status:       model.StatusWarning,
		CPULoad:      91,
		MemoryLoad:   40,
		GPULoad:      &gpu,
		ActiveAlerts: []string{"CPU usage is high at 91 percent"},
	}}
	alerts := &fakeAlerts{alert: &model.Alert{Message: "CPU usage is high at 91 percent"}}
	o := NewOrchestrator(store, llm, telemetry, alerts, rec, "gpt-4o-mini")

	_, err := o.SendMessage(context.Background(), SendMessageParams{
		ConversationID: "c1",
		Content:        "what is wrong?",
	})
	require.NoError(t, err)

	sys := llm.lastReq.System
	assert.True(t, strings.Contains(sys, "CPU load: 91%"), sys)
	assert.True(t, strings.Contains(sys, "Primary alert: CPU usage is high at 91 percent"), sys)
}
