// Package usecase はwatchlistフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	quoteentity "stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/feature/watchlist/domain/entity"
)

const maxNameLength = 100

// WatchlistRepository はウォッチリストの永続化層を抽象化します。
// 全ての取得・削除はユーザーIDで絞り込みます。
type WatchlistRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]entity.Watchlist, error)
	// FindByID は他ユーザーのウォッチリストに対してもErrWatchlistNotFoundを返します。
	FindByID(ctx context.Context, userID, id uint) (*entity.Watchlist, error)
	Create(ctx context.Context, w *entity.Watchlist) error
	Delete(ctx context.Context, userID, id uint) error
	AddItem(ctx context.Context, item *entity.WatchlistItem) error
	UpdateItem(ctx context.Context, item *entity.WatchlistItem) error
	RemoveItem(ctx context.Context, watchlistID uint, symbol string) error
}

// QuoteQueue は株価取得キューへの投入を抽象化します。
type QuoteQueue interface {
	Enqueue(req quoteentity.Request) (bool, error)
}

// ItemPatch は銘柄メモ・目標株価の部分更新です。nilのフィールドは変更しません。
type ItemPatch struct {
	Note        *string
	TargetPrice *float64
	// ClearTargetPrice がtrueなら目標株価を削除します。
	ClearTargetPrice bool
}

// RefreshResult はリフレッシュで積まれたリクエストの集計です。
type RefreshResult struct {
	Symbols []string
	Queued  int
}

// WatchlistUsecase はウォッチリストの操作を提供します。
type WatchlistUsecase struct {
	repo  WatchlistRepository
	queue QuoteQueue
}

// NewWatchlistUsecase はWatchlistUsecaseを生成します。
func NewWatchlistUsecase(repo WatchlistRepository, queue QuoteQueue) *WatchlistUsecase {
	return &WatchlistUsecase{repo: repo, queue: queue}
}

// List はユーザーの全ウォッチリストを返します。
func (u *WatchlistUsecase) List(ctx context.Context, userID uint) ([]entity.Watchlist, error) {
	return u.repo.ListByUser(ctx, userID)
}

// Get はユーザーが所有するウォッチリストを返します。
func (u *WatchlistUsecase) Get(ctx context.Context, userID, id uint) (*entity.Watchlist, error) {
	return u.repo.FindByID(ctx, userID, id)
}

// Create は新しいウォッチリストを作成します。
func (u *WatchlistUsecase) Create(ctx context.Context, userID uint, name string) (*entity.Watchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrInvalidName
	}
	w := &entity.Watchlist{UserID: userID, Name: name, Items: []entity.WatchlistItem{}}
	if err := u.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	slog.Info("watchlist created", "user_id", userID, "watchlist_id", w.ID)
	return w, nil
}

// Delete はウォッチリストと銘柄を削除します。
func (u *WatchlistUsecase) Delete(ctx context.Context, userID, id uint) error {
	return u.repo.Delete(ctx, userID, id)
}

// AddItem は銘柄をウォッチリストの末尾に追加します。
func (u *WatchlistUsecase) AddItem(ctx context.Context, userID, id uint, symbol, note string, targetPrice *float64) (*entity.WatchlistItem, error) {
	symbol = entity.NormalizeSymbol(symbol)
	if !entity.ValidSymbol(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	if targetPrice != nil && *targetPrice < 0 {
		return nil, ErrInvalidTargetPrice
	}

	w, err := u.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, ok := w.Item(symbol); ok {
		return nil, ErrDuplicateSymbol
	}

	item := &entity.WatchlistItem{
		WatchlistID: w.ID,
		Symbol:      symbol,
		Note:        strings.TrimSpace(note),
		TargetPrice: targetPrice,
		SortKey:     nextSortKey(w.Items),
	}
	if err := u.repo.AddItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem は銘柄のメモや目標株価を更新します。
func (u *WatchlistUsecase) UpdateItem(ctx context.Context, userID, id uint, symbol string, patch ItemPatch) (*entity.WatchlistItem, error) {
	if patch.TargetPrice != nil && *patch.TargetPrice < 0 {
		return nil, ErrInvalidTargetPrice
	}
	w, err := u.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	item, ok := w.Item(entity.NormalizeSymbol(symbol))
	if !ok {
		return nil, ErrItemNotFound
	}

	if patch.Note != nil {
		item.Note = strings.TrimSpace(*patch.Note)
	}
	switch {
	case patch.ClearTargetPrice:
		item.TargetPrice = nil
	case patch.TargetPrice != nil:
		item.TargetPrice = patch.TargetPrice
	}
	if err := u.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem は銘柄をウォッチリストから外します。
func (u *WatchlistUsecase) RemoveItem(ctx context.Context, userID, id uint, symbol string) error {
	w, err := u.repo.FindByID(ctx, userID, id)
	if err != nil {
		return err
	}
	return u.repo.RemoveItem(ctx, w.ID, entity.NormalizeSymbol(symbol))
}

// Refresh はウォッチリストの全銘柄を取得キューに積みます。
// 既に処理待ちの銘柄は重複して積まれないため、Queuedは銘柄数以下になります。
func (u *WatchlistUsecase) Refresh(ctx context.Context, userID, id uint, interval, rng string) (RefreshResult, error) {
	w, err := u.repo.FindByID(ctx, userID, id)
	if err != nil {
		return RefreshResult{}, err
	}

	res := RefreshResult{Symbols: w.Symbols()}
	for _, symbol := range res.Symbols {
		queued, err := u.queue.Enqueue(quoteentity.NewRequest(symbol, interval, rng, "", ""))
		if err != nil {
			return res, fmt.Errorf("enqueue %s: %w", symbol, err)
		}
		if queued {
			res.Queued++
		}
	}
	slog.Info("watchlist refresh queued", "watchlist_id", w.ID, "symbols", len(res.Symbols), "queued", res.Queued)
	return res, nil
}

func nextSortKey(items []entity.WatchlistItem) int {
	next := 0
	for _, it := range items {
		if it.SortKey >= next {
			next = it.SortKey + 1
		}
	}
	return next
}
