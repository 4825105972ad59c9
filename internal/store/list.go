// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// LIST FILTERS AND PAGES
// =============================================================================

const (
	DefaultPageSize = 20

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListFilters selects the ordering and page of a listing query.
type ListFilters struct {
	OrderBy     string `json:"order_by"`
	Order       string `json:"order"`
	PageSize    int    `json:"page_size"`
	CurrentPage int    `json:"current_page"` // 1-based
}

// Normalize fills in defaults for zero-valued fields.
func (f ListFilters) Normalize() ListFilters {
	if f.OrderBy == "" {
		f.OrderBy = "created_at"
	}
	if f.Order == "" {
		f.Order = OrderDesc
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.CurrentPage <= 0 {
		f.CurrentPage = 1
	}
	return f
}

// Key returns a stable string form of the filters, usable as a cache key.
func (f ListFilters) Key() string {
	b, _ := json.Marshal(f.Normalize())
	return string(b)
}

// ListPage is one page of a listing query.
type ListPage[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// orderColumns whitelists the columns listing queries may sort by.
var orderColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// orderClause builds an ORDER BY / LIMIT / OFFSET suffix from normalized
// filters. OrderBy is validated against a whitelist since column names
// cannot be bound as query parameters.
func orderClause(f ListFilters) (string, error) {
	if !orderColumns[f.OrderBy] {
		return "", fmt.Errorf("invalid order column: %q", f.OrderBy)
	}
	dir := "DESC"
	if f.Order == OrderAsc {
		dir = "ASC"
	}
	offset := (f.CurrentPage - 1) * f.PageSize
	return fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d", f.OrderBy, dir, f.PageSize, offset), nil
}
