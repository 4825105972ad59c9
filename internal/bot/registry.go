// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bot

import (
	"context"
	"sync"

	"github.com/jeranaias/mia-tui/internal/model"
)

// Store is the slice of the record store the registry reads from.
// Satisfied by *store.Store.
type Store interface {
	GetBot(ctx context.Context, id string) (*model.Bot, error)
	GetBotByName(ctx context.Context, name string) (*model.Bot, error)
}

// Registry resolves bots by id or name, caching hits until invalidated.
// Message rendering resolves the same few bots over and over; the cache
// keeps that off the database. Negative results are not cached.
type Registry struct {
	store Store

	mu     sync.RWMutex
	byID   map[string]*model.Bot
	byName map[string]*model.Bot
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(st Store) *Registry {
	return &Registry{
		store:  st,
		byID:   make(map[string]*model.Bot),
		byName: make(map[string]*model.Bot),
	}
}

// ResolveByID returns the bot with the given id, from cache when possible.
func (r *Registry) ResolveByID(ctx context.Context, id string) (*model.Bot, error) {
	r.mu.RLock()
	b, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err := r.store.GetBot(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byID[b.ID] = b
	r.byName[b.Name] = b
	r.mu.Unlock()
	return b, nil
}

// ResolveByName returns the bot with the given name, from cache when
// possible.
func (r *Registry) ResolveByName(ctx context.Context, name string) (*model.Bot, error) {
	r.mu.RLock()
	b, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err := r.store.GetBotByName(ctx, name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byID[b.ID] = b
	r.byName[b.Name] = b
	r.mu.Unlock()
	return b, nil
}

// Invalidate drops cache entries for a bot after it changes. Both the id
// and the name it was previously cached under must be passed, since a
// rename leaves the old name keyed in the cache.
func (r *Registry) Invalidate(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		delete(r.byName, b.Name)
	}
	delete(r.byID, id)
	delete(r.byName, name)
}

// InvalidateAll clears the whole cache.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*model.Bot)
	r.byName = make(map[string]*model.Bot)
}
