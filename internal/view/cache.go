// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"context"
	"sync"

	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/store"
)

// Reader is the slice of the orchestrator the cache reads through.
// Satisfied by *chat.Service.
type Reader interface {
	GetChatByID(ctx context.Context, chatID string) (*model.ChatDetail, error)
	ListChats(ctx context.Context, filters store.ListFilters) (*store.ListPage[model.Chat], error)
}

// Cache mirrors read results for the UI. Entries are replaced wholesale on
// refresh; readers always see the last completed refresh.
type Cache struct {
	reader Reader

	mu     sync.RWMutex
	chats  map[string]*model.ChatDetail            // chat id -> last fetched detail
	lists  map[string]*store.ListPage[model.Chat]  // filters key -> last page
	keys   map[string]store.ListFilters            // filters key -> filters, for re-running
	tokens map[string]int                          // chat id -> estimated history tokens
}

// NewCache creates a cache reading through the given reader.
func NewCache(r Reader) *Cache {
	return &Cache{
		reader: r,
		chats:  make(map[string]*model.ChatDetail),
		lists:  make(map[string]*store.ListPage[model.Chat]),
		keys:   make(map[string]store.ListFilters),
		tokens: make(map[string]int),
	}
}

// =============================================================================
// CHAT DETAIL VIEW
// =============================================================================

// Chat returns the cached detail for a chat, fetching on first access.
func (c *Cache) Chat(ctx context.Context, chatID string) (*model.ChatDetail, error) {
	c.mu.RLock()
	detail, ok := c.chats[chatID]
	c.mu.RUnlock()
	if ok {
		return detail, nil
	}
	return c.RefreshChat(ctx, chatID)
}

// RefreshChat re-fetches a chat's detail view and its token count. A chat
// that no longer exists is dropped from the cache; the error propagates so
// the caller can react.
func (c *Cache) RefreshChat(ctx context.Context, chatID string) (*model.ChatDetail, error) {
	detail, err := c.reader.GetChatByID(ctx, chatID)
	if err != nil {
		c.mu.Lock()
		delete(c.chats, chatID)
		delete(c.tokens, chatID)
		c.mu.Unlock()
		return nil, err
	}

	messages := make([]model.Message, len(detail.Messages))
	for i := range detail.Messages {
		messages[i] = detail.Messages[i].Message
	}

	c.mu.Lock()
	c.chats[chatID] = detail
	c.tokens[chatID] = model.EstimateHistoryTokens(messages)
	c.mu.Unlock()
	return detail, nil
}

// TokenCount returns the cached estimated history token count for a chat.
// Zero when the chat has never been fetched.
func (c *Cache) TokenCount(chatID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[chatID]
}

// =============================================================================
// CHAT LIST VIEWS
// =============================================================================

// ChatList returns the cached page for the given filters, fetching on
// first access. The filters' stable key identifies the view.
func (c *Cache) ChatList(ctx context.Context, filters store.ListFilters) (*store.ListPage[model.Chat], error) {
	key := filters.Key()
	c.mu.RLock()
	page, ok := c.lists[key]
	c.mu.RUnlock()
	if ok {
		return page, nil
	}
	return c.refreshList(ctx, key, filters)
}

func (c *Cache) refreshList(ctx context.Context, key string, filters store.ListFilters) (*store.ListPage[model.Chat], error) {
	page, err := c.reader.ListChats(ctx, filters)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lists[key] = page
	c.keys[key] = filters
	c.mu.Unlock()
	return page, nil
}

// RefreshLists re-runs every known list view. Called after any write that
// could affect chat listings.
func (c *Cache) RefreshLists(ctx context.Context) error {
	c.mu.RLock()
	pending := make(map[string]store.ListFilters, len(c.keys))
	for key, filters := range c.keys {
		pending[key] = filters
	}
	c.mu.RUnlock()

	for key, filters := range pending {
		if _, err := c.refreshList(ctx, key, filters); err != nil {
			return err
		}
	}
	return nil
}

// HandleChatUpdated is the orchestrator callback hook: refreshes the
// changed chat and all list views. Errors are swallowed; a failed refresh
// leaves the previous view in place (or drops a deleted chat).
func (c *Cache) HandleChatUpdated(ctx context.Context, chatID string) {
	c.RefreshChat(ctx, chatID)
	c.RefreshLists(ctx)
}

// HandleMessageUpdated is the orchestrator callback hook for message-level
// changes: refreshes the owning chat's detail view.
func (c *Cache) HandleMessageUpdated(ctx context.Context, chatID string) {
	c.RefreshChat(ctx, chatID)
}
