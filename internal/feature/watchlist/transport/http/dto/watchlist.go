// Package dto defines data transfer objects for the watchlist HTTP API.
package dto

import (
	"time"

	"stock_watchlist/internal/feature/watchlist/domain/entity"
)

// CreateWatchlistReq は POST /watchlists のリクエストボディです。
type CreateWatchlistReq struct {
	Name string `json:"name" binding:"required"`
}

// AddItemReq は POST /watchlists/:id/items のリクエストボディです。
type AddItemReq struct {
	Symbol      string   `json:"symbol" binding:"required"`
	Note        string   `json:"note"`
	TargetPrice *float64 `json:"target_price"`
}

// UpdateItemReq は PATCH /watchlists/:id/items/:symbol のリクエストボディです。
// clear_target_price がtrueなら目標株価を削除します。
type UpdateItemReq struct {
	Note             *string  `json:"note"`
	TargetPrice      *float64 `json:"target_price"`
	ClearTargetPrice bool     `json:"clear_target_price"`
}

// ItemRes は銘柄のレスポンスです。
type ItemRes struct {
	Symbol      string    `json:"symbol"`
	Note        string    `json:"note"`
	TargetPrice *float64  `json:"target_price"`
	AddedAt     time.Time `json:"added_at"`
}

// WatchlistRes はウォッチリストのレスポンスです。
type WatchlistRes struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Items     []ItemRes `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshRes はリフレッシュのレスポンスです。
type RefreshRes struct {
	Symbols []string `json:"symbols"`
	Queued  int      `json:"queued"`
}

// ToItemRes はエンティティをレスポンスに変換します。
func ToItemRes(it entity.WatchlistItem) ItemRes {
	return ItemRes{Symbol: it.Symbol, Note: it.Note, TargetPrice: it.TargetPrice, AddedAt: it.CreatedAt}
}

// ToWatchlistRes はエンティティをレスポンスに変換します。
func ToWatchlistRes(w entity.Watchlist) WatchlistRes {
	items := make([]ItemRes, 0, len(w.Items))
	for _, it := range w.Items {
		items = append(items, ToItemRes(it))
	}
	return WatchlistRes{ID: w.ID, Name: w.Name, Items: items, CreatedAt: w.CreatedAt}
}
