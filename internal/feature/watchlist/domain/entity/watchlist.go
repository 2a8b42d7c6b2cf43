// Package entity defines the domain models for the watchlist feature.
package entity

import (
	"time"

	"stock_watchlist/internal/shared/symbol"
)

// Watchlist is a named list of symbols owned by one user.
// Names are unique per user.
type Watchlist struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_watchlists_user_name"`
	Name      string          `gorm:"size:100;not null;uniqueIndex:idx_watchlists_user_name"`
	Items     []WatchlistItem `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WatchlistItem is one symbol on a watchlist, unique within the list.
type WatchlistItem struct {
	ID          uint     `gorm:"primaryKey"`
	WatchlistID uint     `gorm:"not null;uniqueIndex:idx_watchlist_items_list_symbol"`
	Symbol      string   `gorm:"size:20;not null;uniqueIndex:idx_watchlist_items_list_symbol"`
	Note        string   `gorm:"size:500"`
	TargetPrice *float64 // nil means no alert price
	SortKey     int      `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Symbols returns the item symbols in display order.
func (w *Watchlist) Symbols() []string {
	out := make([]string, 0, len(w.Items))
	for _, it := range w.Items {
		out = append(out, it.Symbol)
	}
	return out
}

// Item returns the item for symbol, if present.
func (w *Watchlist) Item(symbol string) (*WatchlistItem, bool) {
	for i := range w.Items {
		if w.Items[i].Symbol == symbol {
			return &w.Items[i], true
		}
	}
	return nil, false
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return symbol.Normalize(s)
}

// ValidSymbol reports whether a normalized symbol has an acceptable shape.
func ValidSymbol(s string) bool {
	return symbol.Valid(s)
}
