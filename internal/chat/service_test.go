// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/mia-tui/internal/bot"
	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/openai"
	"github.com/jeranaias/mia-tui/internal/store"
	"github.com/jeranaias/mia-tui/internal/stream"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

// fakeProvider scripts provider behavior per test.
type fakeProvider struct {
	chunks    []string
	chatErr   error
	block     bool // hold the stream open until aborted
	imagesRes *openai.ImagesResponse
	imagesErr error
	lastReq   openai.ChatRequest
}

func (f *fakeProvider) ChatStream(ctx context.Context, req openai.ChatRequest) *stream.Stream[openai.ChatCompletionChunk] {
	f.lastReq = req
	chunks := f.chunks
	return stream.New(ctx, func(ctx context.Context, emit func(openai.ChatCompletionChunk)) error {
		if f.chatErr != nil {
			return f.chatErr
		}
		for _, text := range chunks {
			var chunk openai.ChatCompletionChunk
			raw := `{"choices":[{"delta":{"content":` + strconv.Quote(text) + `}}]}`
			if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
				return err
			}
			emit(chunk)
		}
		if f.block {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
}

func (f *fakeProvider) GenerateImages(ctx context.Context, req openai.ImagesRequest) (*openai.ImagesResponse, error) {
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	if f.imagesRes != nil {
		return f.imagesRes, nil
	}
	return &openai.ImagesResponse{Data: []openai.ImageData{{URL: "https://img.example/gen.png"}}}, nil
}

type fixture struct {
	store    *store.Store
	provider *fakeProvider
	svc      *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "mia.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	provider := &fakeProvider{}
	svc := NewService(st, bot.NewRegistry(st), provider, opts)
	return &fixture{store: st, provider: provider, svc: svc}
}

func (f *fixture) newChat(t *testing.T) *model.Chat {
	t.Helper()
	c, err := f.svc.CreateChat(context.Background(), "test chat")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	return c
}

func (f *fixture) messages(t *testing.T, chatID string) []model.Message {
	t.Helper()
	msgs, err := f.store.ListChatMessages(context.Background(), chatID)
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	return msgs
}

// =============================================================================
// SEND
// =============================================================================

func TestSendNewMessage(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"Hi ", "there"}
	chat := f.newChat(t)
	ctx := context.Background()

	if err := f.svc.SendNewMessage(ctx, chat.ID, "hello"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}

	msgs := f.messages(t, chat.ID)
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}

	user, reply := msgs[0], msgs[1]
	if user.SenderType != model.SenderUser || user.Content != "hello" || user.LoadingStatus != model.StatusOK {
		t.Errorf("user message = %+v", user)
	}
	if reply.SenderType != model.SenderBot || reply.SenderID != model.BotIDChatGPT {
		t.Errorf("reply sender = %s/%s, want bot/%s", reply.SenderType, reply.SenderID, model.BotIDChatGPT)
	}
	if reply.Content != "Hi there" {
		t.Errorf("reply content = %q, want Hi there", reply.Content)
	}
	if reply.LoadingStatus != model.StatusOK {
		t.Errorf("reply status = %s, want ok", reply.LoadingStatus)
	}

	updated, err := f.store.GetChat(ctx, chat.ID)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if updated.TokenUsage.TotalTokens == 0 {
		t.Error("token usage not recomputed")
	}
}

func TestSendNewMessageMentionRoutesToImageBot(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.imagesRes = &openai.ImagesResponse{
		Data: []openai.ImageData{{URL: "https://img.example/cat.png"}},
	}
	chat := f.newChat(t)

	if err := f.svc.SendNewMessage(context.Background(), chat.ID, "@dalle draw a cat"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}

	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]
	if reply.SenderID != model.BotIDDalle {
		t.Errorf("reply sender = %s, want %s", reply.SenderID, model.BotIDDalle)
	}
	if reply.Content != "![image](https://img.example/cat.png)" {
		t.Errorf("reply content = %q", reply.Content)
	}
	if reply.LoadingStatus != model.StatusOK {
		t.Errorf("reply status = %s, want ok", reply.LoadingStatus)
	}
}

func TestSendNewMessageUnknownMention(t *testing.T) {
	f := newFixture(t, Options{})
	chat := f.newChat(t)

	err := f.svc.SendNewMessage(context.Background(), chat.ID, "@bot1 hello")
	if !errors.Is(err, ErrBotNotFound) {
		t.Fatalf("SendNewMessage: %v, want ErrBotNotFound", err)
	}

	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]
	if reply.LoadingStatus != model.StatusError {
		t.Errorf("placeholder status = %s, want error", reply.LoadingStatus)
	}
}

func TestSendNewMessageChatNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.svc.SendNewMessage(context.Background(), "chat_missing", "hi")
	if !errors.Is(err, ErrChatNotFound) {
		t.Errorf("SendNewMessage: %v, want ErrChatNotFound", err)
	}
}

func TestSendNewMessageProviderFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chatErr = errors.New("upstream exploded")
	chat := f.newChat(t)

	err := f.svc.SendNewMessage(context.Background(), chat.ID, "hello")
	if err == nil || !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("SendNewMessage: %v, want wrapped provider failure", err)
	}

	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]
	if reply.LoadingStatus != model.StatusError {
		t.Errorf("reply status = %s, want error", reply.LoadingStatus)
	}
}

func TestSendNewMessageNotifies(t *testing.T) {
	var chatUpdates, messageUpdates int
	f := newFixture(t, Options{Callbacks: Callbacks{
		OnChatUpdated:    func(string) { chatUpdates++ },
		OnMessageUpdated: func(string, string) { messageUpdates++ },
	}})
	f.provider.chunks = []string{"a", "b"}
	chat := f.newChat(t)

	if err := f.svc.SendNewMessage(context.Background(), chat.ID, "hello"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}
	if chatUpdates < 2 {
		t.Errorf("chat updates = %d, want at least 2", chatUpdates)
	}
	// Sender fix, two chunks, terminal status.
	if messageUpdates < 4 {
		t.Errorf("message updates = %d, want at least 4", messageUpdates)
	}
}

func TestHistoryTokenLimitTrimsOldest(t *testing.T) {
	// Each filler message is 17 chars, ~5 estimated tokens; "tail" is ~1.
	// With a limit of 12 only the newest three messages fit.
	f := newFixture(t, Options{HistoryTokenLimit: 12})
	f.provider.chunks = []string{"ok"}
	chat := f.newChat(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		m := &model.Message{
			ChatID:        chat.ID,
			Content:       strings.Repeat("a", 17),
			SenderType:    model.SenderUser,
			SenderID:      model.DefaultUserID,
			LoadingStatus: model.StatusOK,
		}
		if err := f.store.CreateMessage(ctx, m); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	if err := f.svc.SendNewMessage(ctx, chat.ID, "tail"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}

	var sent []string
	for _, m := range f.provider.lastReq.Messages {
		if m.Role != "system" {
			sent = append(sent, m.Content)
		}
	}
	if len(sent) != 3 {
		t.Fatalf("outbound history = %d messages, want 3 after trimming", len(sent))
	}
	if sent[len(sent)-1] != "tail" {
		t.Errorf("newest message = %q, want tail", sent[len(sent)-1])
	}
}

// =============================================================================
// REGENERATE / AUTO-REPLY / STOP
// =============================================================================

func TestRegenerateBotMessagePreservesID(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"first answer"}
	chat := f.newChat(t)
	ctx := context.Background()

	if err := f.svc.SendNewMessage(ctx, chat.ID, "question"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}
	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]

	f.provider.chunks = []string{"second ", "answer"}
	if err := f.svc.RegenerateMessage(ctx, chat.ID, reply.ID); err != nil {
		t.Fatalf("RegenerateMessage: %v", err)
	}

	msgs = f.messages(t, chat.ID)
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2 (no new message)", len(msgs))
	}
	regen := msgs[1]
	if regen.ID != reply.ID {
		t.Errorf("regenerated id = %s, want %s", regen.ID, reply.ID)
	}
	if regen.Content != "second answer" {
		t.Errorf("content = %q, want second answer", regen.Content)
	}
	if regen.LoadingStatus != model.StatusOK {
		t.Errorf("status = %s, want ok", regen.LoadingStatus)
	}
	if !regen.CreatedAt.Equal(reply.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", reply.CreatedAt, regen.CreatedAt)
	}
}

func TestRegenerateUserMessageCreatesPlaceholder(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"reply"}
	chat := f.newChat(t)
	ctx := context.Background()

	userMsg := &model.Message{
		ChatID:        chat.ID,
		Content:       "lonely question",
		SenderType:    model.SenderUser,
		SenderID:      model.DefaultUserID,
		LoadingStatus: model.StatusOK,
	}
	if err := f.store.CreateMessage(ctx, userMsg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if err := f.svc.RegenerateMessage(ctx, chat.ID, userMsg.ID); err != nil {
		t.Fatalf("RegenerateMessage: %v", err)
	}

	msgs := f.messages(t, chat.ID)
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	reply := msgs[1]
	if reply.SenderType != model.SenderBot || reply.Content != "reply" || reply.LoadingStatus != model.StatusOK {
		t.Errorf("reply = %+v", reply)
	}
}

func TestRegenerateUserFollowUpRefused(t *testing.T) {
	f := newFixture(t, Options{})
	chat := f.newChat(t)
	ctx := context.Background()

	first := &model.Message{
		ChatID:        chat.ID,
		Content:       "question",
		SenderType:    model.SenderUser,
		SenderID:      model.DefaultUserID,
		LoadingStatus: model.StatusOK,
	}
	second := &model.Message{
		ChatID:        chat.ID,
		Content:       "precious follow-up",
		SenderType:    model.SenderUser,
		SenderID:      model.DefaultUserID,
		LoadingStatus: model.StatusOK,
	}
	if err := f.store.CreateMessage(ctx, first); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if err := f.store.CreateMessage(ctx, second); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	// Regenerating the first user message advances to the next message,
	// which is also user-sent. That must be refused, never reset.
	if err := f.svc.RegenerateMessage(ctx, chat.ID, first.ID); !errors.Is(err, ErrNotBotMessage) {
		t.Fatalf("RegenerateMessage: %v, want ErrNotBotMessage", err)
	}

	m, err := f.store.GetMessage(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if m.Content != "precious follow-up" {
		t.Errorf("content = %q, user message must survive", m.Content)
	}
	if m.LoadingStatus != model.StatusOK {
		t.Errorf("status = %s, want ok", m.LoadingStatus)
	}
}

func TestRegenerateDeletedMessage(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"x"}
	chat := f.newChat(t)
	ctx := context.Background()

	if err := f.svc.SendNewMessage(ctx, chat.ID, "q"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}
	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]

	if err := f.svc.DeleteMessage(ctx, reply.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := f.svc.RegenerateMessage(ctx, chat.ID, reply.ID); !errors.Is(err, ErrMessageDeleted) {
		t.Errorf("RegenerateMessage: %v, want ErrMessageDeleted", err)
	}
}

func TestAutoReplyIgnoresMention(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"auto"}
	chat := f.newChat(t)
	ctx := context.Background()

	userMsg := &model.Message{
		ChatID:        chat.ID,
		Content:       "@dalle draw something",
		SenderType:    model.SenderUser,
		SenderID:      model.DefaultUserID,
		LoadingStatus: model.StatusOK,
	}
	if err := f.store.CreateMessage(ctx, userMsg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if err := f.svc.AutoReplyMessage(ctx, chat.ID); err != nil {
		t.Fatalf("AutoReplyMessage: %v", err)
	}

	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]
	if reply.SenderID != model.BotIDChatGPT {
		t.Errorf("reply sender = %s, want default bot despite mention", reply.SenderID)
	}
	if reply.Content != "auto" {
		t.Errorf("content = %q, want auto", reply.Content)
	}
}

func TestStopGenerateMessageAbortsStream(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"partial"}
	f.provider.block = true
	chat := f.newChat(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- f.svc.SendNewMessage(ctx, chat.ID, "never finishes")
	}()

	// Wait for the placeholder to start loading.
	var replyID string
	deadline := time.Now().Add(5 * time.Second)
	for replyID == "" {
		if time.Now().After(deadline) {
			t.Fatal("placeholder never reached loading state")
		}
		for _, m := range f.messages(t, chat.ID) {
			if m.SenderType == model.SenderBot && m.LoadingStatus == model.StatusLoading {
				replyID = m.ID
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := f.svc.StopGenerateMessage(ctx, replyID); err != nil {
		t.Fatalf("StopGenerateMessage: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendNewMessage after stop: %v", err)
	}

	m, err := f.store.GetMessage(ctx, replyID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if m.LoadingStatus != model.StatusOK {
		t.Errorf("status after stop = %s, want ok", m.LoadingStatus)
	}
	if m.Content != "partial" {
		t.Errorf("content = %q, want partial", m.Content)
	}
}

func TestStopGenerateMessageKeepsError(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chatErr = errors.New("boom")
	chat := f.newChat(t)
	ctx := context.Background()

	f.svc.SendNewMessage(ctx, chat.ID, "hi")
	msgs := f.messages(t, chat.ID)
	reply := msgs[len(msgs)-1]
	if reply.LoadingStatus != model.StatusError {
		t.Fatalf("setup: reply status = %s", reply.LoadingStatus)
	}

	if err := f.svc.StopGenerateMessage(ctx, reply.ID); err != nil {
		t.Fatalf("StopGenerateMessage: %v", err)
	}
	m, _ := f.store.GetMessage(ctx, reply.ID)
	if m.LoadingStatus != model.StatusError {
		t.Errorf("status = %s, error must stick", m.LoadingStatus)
	}
}

// =============================================================================
// MESSAGE EDITS
// =============================================================================

func TestUpdateMessage(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"answer"}
	chat := f.newChat(t)
	ctx := context.Background()

	if err := f.svc.SendNewMessage(ctx, chat.ID, "question"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}
	msgs := f.messages(t, chat.ID)
	userMsg := msgs[0]

	usageBefore := func() int {
		c, err := f.store.GetChat(ctx, chat.ID)
		if err != nil {
			t.Fatalf("GetChat: %v", err)
		}
		return c.TokenUsage.TotalTokens
	}()

	// Ignoring a message shrinks the counted history.
	if err := f.svc.UpdateMessage(ctx, userMsg.ID, MessageUpdate{ToggleIgnore: true}); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	m, _ := f.store.GetMessage(ctx, userMsg.ID)
	if m.IgnoreAt == nil {
		t.Error("ignore toggle did not set IgnoreAt")
	}
	c, _ := f.store.GetChat(ctx, chat.ID)
	if c.TokenUsage.TotalTokens >= usageBefore {
		t.Errorf("usage = %d, want less than %d after ignore", c.TokenUsage.TotalTokens, usageBefore)
	}

	// Toggling back restores it.
	if err := f.svc.UpdateMessage(ctx, userMsg.ID, MessageUpdate{ToggleIgnore: true}); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	m, _ = f.store.GetMessage(ctx, userMsg.ID)
	if m.IgnoreAt != nil {
		t.Error("second toggle did not clear IgnoreAt")
	}

	newContent := "edited question"
	if err := f.svc.UpdateMessage(ctx, userMsg.ID, MessageUpdate{Content: &newContent}); err != nil {
		t.Fatalf("UpdateMessage content: %v", err)
	}
	m, _ = f.store.GetMessage(ctx, userMsg.ID)
	if m.Content != newContent {
		t.Errorf("content = %q, want %q", m.Content, newContent)
	}

	if err := f.svc.UpdateMessage(ctx, userMsg.ID, MessageUpdate{ToggleCollapse: true}); err != nil {
		t.Fatalf("UpdateMessage collapse: %v", err)
	}
	m, _ = f.store.GetMessage(ctx, userMsg.ID)
	if !m.UI.Collapsed {
		t.Error("collapse toggle did not set Collapsed")
	}
}

func TestUpdateDeletedMessage(t *testing.T) {
	f := newFixture(t, Options{})
	chat := f.newChat(t)
	ctx := context.Background()

	m := &model.Message{ChatID: chat.ID, SenderType: model.SenderUser, SenderID: model.DefaultUserID}
	f.store.CreateMessage(ctx, m)
	f.svc.DeleteMessage(ctx, m.ID)

	if err := f.svc.UpdateMessage(ctx, m.ID, MessageUpdate{ToggleCollapse: true}); !errors.Is(err, ErrMessageDeleted) {
		t.Errorf("UpdateMessage: %v, want ErrMessageDeleted", err)
	}
	if err := f.svc.DeleteMessage(ctx, m.ID); !errors.Is(err, ErrMessageDeleted) {
		t.Errorf("second DeleteMessage: %v, want ErrMessageDeleted", err)
	}
}

// =============================================================================
// CHAT CRUD
// =============================================================================

func TestCreateChatAutoNaming(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	want := []string{"New Chat", "New Chat 2", "New Chat 3"}
	for _, name := range want {
		c, err := f.svc.CreateChat(ctx, "")
		if err != nil {
			t.Fatalf("CreateChat: %v", err)
		}
		if c.Name != name {
			t.Errorf("chat name = %q, want %q", c.Name, name)
		}
	}
}

func TestGetChatByIDJoinsSenders(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"joined"}
	chat := f.newChat(t)
	ctx := context.Background()

	if err := f.svc.SendNewMessage(ctx, chat.ID, "hi"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}

	detail, err := f.svc.GetChatByID(ctx, chat.ID)
	if err != nil {
		t.Fatalf("GetChatByID: %v", err)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(detail.Messages))
	}
	if detail.Messages[0].Sender == nil || detail.Messages[0].Sender.Type != model.SenderUser {
		t.Errorf("user sender = %+v", detail.Messages[0].Sender)
	}
	if detail.Messages[1].Sender == nil || detail.Messages[1].Sender.ID != model.BotIDChatGPT {
		t.Errorf("bot sender = %+v", detail.Messages[1].Sender)
	}
}

// =============================================================================
// BOT MANAGEMENT
// =============================================================================

func TestCreateBotValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	dup := &model.Bot{Name: "chatgpt", BotTemplateID: model.BotTemplateOpenAIChat}
	if err := f.svc.CreateBot(ctx, dup); !errors.Is(err, ErrDuplicateBotName) {
		t.Errorf("duplicate name: %v, want ErrDuplicateBotName", err)
	}

	unknown := &model.Bot{Name: "fresh", BotTemplateID: "no-such-template"}
	if err := f.svc.CreateBot(ctx, unknown); !errors.Is(err, bot.ErrUnsupportedTemplate) {
		t.Errorf("unknown template: %v, want ErrUnsupportedTemplate", err)
	}

	good := &model.Bot{Name: "fresh", BotTemplateID: model.BotTemplateOpenAIChat}
	if err := f.svc.CreateBot(ctx, good); err != nil {
		t.Fatalf("CreateBot: %v", err)
	}
}

func TestUpdateBotGuardsAndInvalidatesCache(t *testing.T) {
	f := newFixture(t, Options{})
	f.provider.chunks = []string{"ok"}
	ctx := context.Background()

	if err := f.svc.UpdateBot(ctx, &model.Bot{ID: model.BotIDChatGPT, Name: "x"}); !errors.Is(err, ErrPredefinedBot) {
		t.Errorf("predefined update: %v, want ErrPredefinedBot", err)
	}
	if err := f.svc.DeleteBot(ctx, model.BotIDDalle); !errors.Is(err, ErrPredefinedBot) {
		t.Errorf("predefined delete: %v, want ErrPredefinedBot", err)
	}

	b := &model.Bot{Name: "helper", BotTemplateID: model.BotTemplateOpenAIChat}
	if err := f.svc.CreateBot(ctx, b); err != nil {
		t.Fatalf("CreateBot: %v", err)
	}

	// Prime the registry cache via a mention, then rename.
	chat := f.newChat(t)
	if err := f.svc.SendNewMessage(ctx, chat.ID, "@helper hi"); err != nil {
		t.Fatalf("SendNewMessage: %v", err)
	}

	b.Name = "assistant"
	if err := f.svc.UpdateBot(ctx, b); err != nil {
		t.Fatalf("UpdateBot: %v", err)
	}

	// The new name resolves, the old one no longer does.
	if err := f.svc.SendNewMessage(ctx, chat.ID, "@assistant hi again"); err != nil {
		t.Fatalf("mention after rename: %v", err)
	}
	if err := f.svc.SendNewMessage(ctx, chat.ID, "@helper hi again"); !errors.Is(err, ErrBotNotFound) {
		t.Errorf("stale mention: %v, want ErrBotNotFound", err)
	}
}

func TestNextChatName(t *testing.T) {
	cases := []struct {
		existing []string
		want     string
	}{
		{nil, "New Chat"},
		{[]string{"Other"}, "New Chat"},
		{[]string{"New Chat"}, "New Chat 2"},
		{[]string{"New Chat", "New Chat 7"}, "New Chat 8"},
		{[]string{"New Chat 3", "Project"}, "New Chat 4"},
	}
	for _, tc := range cases {
		if got := nextChatName(tc.existing); got != tc.want {
			t.Errorf("nextChatName(%v) = %q, want %q", tc.existing, got, tc.want)
		}
	}
}
