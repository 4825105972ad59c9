// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/jeranaias/mia-tui/internal/bot"
	"github.com/jeranaias/mia-tui/internal/chat"
	"github.com/jeranaias/mia-tui/internal/config"
	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/store"
	"github.com/jeranaias/mia-tui/internal/util"
	"github.com/jeranaias/mia-tui/internal/view"
)

// errQuit signals a clean exit from the command loop.
var errQuit = errors.New("quit")

// =============================================================================
// SESSION
// =============================================================================

// Session is one interactive run of the REPL.
type Session struct {
	cfg   *config.Config
	store *store.Store
	svc   *chat.Service
	cache *view.Cache
	input *Input

	currentChat string
	lastChats   []model.Chat // last listing shown, for /open by index

	// Streaming output state, written from orchestrator callbacks.
	printMu     sync.Mutex
	streamMsgID string
	printed     int
	lastReplyID string
}

// NewSession wires the orchestrator, view cache and input handling into a
// REPL session.
func NewSession(cfg *config.Config, st *store.Store, provider bot.ProviderClient) *Session {
	s := &Session{
		cfg:   cfg,
		store: st,
		input: NewInput(),
	}
	s.svc = chat.NewService(st, bot.NewRegistry(st), provider, chat.Options{
		DefaultBotName:    cfg.Chat.DefaultBotName,
		HistoryTokenLimit: cfg.Chat.HistoryTokenLimit,
		Callbacks: chat.Callbacks{
			OnMessageUpdated: s.handleMessageUpdated,
			OnChatUpdated:    s.handleChatUpdated,
		},
	})
	s.cache = view.NewCache(s.svc)
	return s
}

func (s *Session) handleChatUpdated(chatID string) {
	s.cache.HandleChatUpdated(context.Background(), chatID)
}

// handleMessageUpdated keeps the view cache fresh and prints streamed
// content for the chat on screen. Only the delta since the last callback
// is written, so chunk updates render incrementally.
func (s *Session) handleMessageUpdated(chatID, messageID string) {
	ctx := context.Background()
	s.cache.HandleMessageUpdated(ctx, chatID)

	if chatID != s.currentChat {
		return
	}
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil || m.SenderType != model.SenderBot {
		return
	}

	s.printMu.Lock()
	defer s.printMu.Unlock()

	if s.streamMsgID != messageID {
		if m.LoadingStatus.IsTerminal() {
			return // settled elsewhere, nothing to render
		}
		s.streamMsgID = messageID
		s.lastReplyID = messageID
		s.printed = 0
		fmt.Printf("\n%s ", botStyle.Render(s.senderName(ctx, m)+":"))
	}

	if len(m.Content) > s.printed {
		fmt.Print(m.Content[s.printed:])
		s.printed = len(m.Content)
	}
	if m.LoadingStatus.IsTerminal() {
		fmt.Println()
		s.streamMsgID = ""
		s.printed = 0
	}
}

func (s *Session) senderName(ctx context.Context, m *model.Message) string {
	if b, err := s.store.GetBot(ctx, m.SenderID); err == nil {
		if b.DisplayName != "" {
			return b.DisplayName
		}
		return b.Name
	}
	return m.SenderID
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run drives the REPL until /quit or EOF.
func (s *Session) Run(ctx context.Context) error {
	defer s.input.Close()

	fmt.Println(welcomeStyle.Render("mia - chat with pluggable bots"))
	fmt.Println(infoStyle.Render("Type /help for commands. @botname routes a message; Ctrl+C stops generation."))

	if err := s.ensureChat(ctx); err != nil {
		return err
	}

	for {
		line, err := s.input.ReadLine(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if err := s.handleCommand(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Println(errorStyle.Render("error: " + err.Error()))
			}
			continue
		}

		s.send(ctx, line)
	}
}

// ensureChat opens the most recently updated chat, creating one when the
// store is empty.
func (s *Session) ensureChat(ctx context.Context) error {
	page, err := s.cache.ChatList(ctx, store.ListFilters{OrderBy: "updated_at"})
	if err != nil {
		return err
	}
	if len(page.Data) == 0 {
		c, err := s.svc.CreateChat(ctx, "")
		if err != nil {
			return err
		}
		s.currentChat = c.ID
		fmt.Println(infoStyle.Render("Started " + c.Name))
		return nil
	}
	s.currentChat = page.Data[0].ID
	fmt.Println(infoStyle.Render("Resumed " + page.Data[0].Name))
	return nil
}

// send dispatches a message and blocks until the reply settles. Ctrl+C
// while waiting stops the in-flight generation instead of killing the
// process.
func (s *Session) send(ctx context.Context, content string) {
	done := make(chan error, 1)
	go func() {
		done <- s.svc.SendNewMessage(ctx, s.currentChat, content)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	for {
		select {
		case err := <-done:
			if err != nil {
				fmt.Println(errorStyle.Render("error: " + err.Error()))
			}
			return
		case <-sig:
			if id := s.currentReply(); id != "" {
				s.svc.StopGenerateMessage(ctx, id)
			}
		}
	}
}

func (s *Session) currentReply() string {
	s.printMu.Lock()
	defer s.printMu.Unlock()
	return s.lastReplyID
}

// =============================================================================
// COMMANDS
// =============================================================================

func (s *Session) handleCommand(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help", "/h":
		s.printHelp()
		return nil
	case "/quit", "/q", "/exit":
		return errQuit
	case "/chats":
		return s.listChats(ctx)
	case "/new":
		c, err := s.svc.CreateChat(ctx, arg)
		if err != nil {
			return err
		}
		s.currentChat = c.ID
		fmt.Println(infoStyle.Render("Started " + c.Name))
		return nil
	case "/open":
		return s.openChat(ctx, arg)
	case "/rename":
		if arg == "" {
			return errors.New("usage: /rename <name>")
		}
		return s.svc.RenameChat(ctx, s.currentChat, arg)
	case "/delete":
		if err := s.svc.DeleteChat(ctx, s.currentChat); err != nil {
			return err
		}
		fmt.Println(warningStyle.Render("Chat deleted"))
		return s.ensureChat(ctx)
	case "/bots":
		return s.listBots(ctx)
	case "/regen":
		return s.regenerate(ctx)
	case "/reply":
		if err := s.svc.AutoReplyMessage(ctx, s.currentChat); err != nil {
			return err
		}
		return nil
	case "/stop":
		if id := s.currentReply(); id != "" {
			return s.svc.StopGenerateMessage(ctx, id)
		}
		return nil
	case "/user":
		return s.userProfile(ctx, arg)
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (s *Session) printHelp() {
	help := [][2]string{
		{"/chats", "List chats"},
		{"/new [name]", "Create (and switch to) a chat"},
		{"/open <n>", "Switch to the n-th listed chat"},
		{"/rename <name>", "Rename the current chat"},
		{"/delete", "Delete the current chat"},
		{"/bots", "List bots"},
		{"/regen", "Regenerate the last bot reply"},
		{"/reply", "Ask the default bot to reply"},
		{"/stop", "Stop the in-flight generation"},
		{"/user [name]", "Show or set your profile name"},
		{"/quit", "Exit"},
	}
	for _, h := range help {
		fmt.Printf("  %-16s %s\n", h[0], infoStyle.Render(h[1]))
	}
}

func (s *Session) listChats(ctx context.Context) error {
	page, err := s.cache.ChatList(ctx, store.ListFilters{OrderBy: "updated_at"})
	if err != nil {
		return err
	}
	s.lastChats = page.Data
	for i, c := range page.Data {
		marker := " "
		if c.ID == s.currentChat {
			marker = "*"
		}
		usage := ""
		if c.TokenUsage.TotalTokens > 0 {
			usage = infoStyle.Render(fmt.Sprintf(" (~%d tokens)", c.TokenUsage.TotalTokens))
		}
		fmt.Printf("%s %2d. %s%s\n", marker, i+1, util.TruncateRunes(c.Name, 40), usage)
	}
	if page.Total > len(page.Data) {
		fmt.Println(infoStyle.Render(fmt.Sprintf("showing %d of %d", len(page.Data), page.Total)))
	}
	return nil
}

func (s *Session) openChat(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(s.lastChats) {
		return errors.New("usage: /open <n> (run /chats first)")
	}
	c := s.lastChats[n-1]
	s.currentChat = c.ID

	detail, err := s.cache.Chat(ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("Opened " + detail.Name))
	for _, m := range detail.Messages {
		name := "you"
		if m.Sender != nil && m.SenderType == model.SenderBot {
			name = m.Sender.DisplayName
			if name == "" {
				name = m.Sender.Name
			}
		}
		preview := util.TruncateRunes(util.CollapseNewlines(m.Content), 200)
		fmt.Printf("%s %s\n", botStyle.Render(name+":"), preview)
	}
	return nil
}

func (s *Session) listBots(ctx context.Context) error {
	page, err := s.svc.ListBots(ctx, store.ListFilters{OrderBy: "name", Order: store.OrderAsc})
	if err != nil {
		return err
	}
	for _, b := range page.Data {
		if b.ID == model.NopBotID {
			continue
		}
		fmt.Printf("  @%-12s %s\n", b.Name, infoStyle.Render(b.Description))
	}
	return nil
}

func (s *Session) regenerate(ctx context.Context) error {
	detail, err := s.cache.Chat(ctx, s.currentChat)
	if err != nil {
		return err
	}
	for i := len(detail.Messages) - 1; i >= 0; i-- {
		if detail.Messages[i].SenderType == model.SenderBot {
			return s.svc.RegenerateMessage(ctx, s.currentChat, detail.Messages[i].ID)
		}
	}
	return errors.New("nothing to regenerate")
}

func (s *Session) userProfile(ctx context.Context, arg string) error {
	if arg == "" {
		u, err := s.svc.GetCurrentUser(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  %s (%s)\n", u.Name, infoStyle.Render(u.DisplayName))
		return nil
	}
	_, err := s.svc.UpdateCurrentUser(ctx, arg, "", "")
	return err
}
