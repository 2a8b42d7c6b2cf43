// Package adapters はwatchlistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stock_watchlist/internal/feature/watchlist/domain/entity"
	"stock_watchlist/internal/feature/watchlist/usecase"
	"stock_watchlist/internal/platform/db"
)

// WatchlistGorm はWatchlistRepositoryインターフェースのGORM実装です。
type WatchlistGorm struct {
	db *gorm.DB
}

var _ usecase.WatchlistRepository = (*WatchlistGorm)(nil)

// NewWatchlistRepository は指定されたDB接続でWatchlistGormを生成します。
func NewWatchlistRepository(db *gorm.DB) *WatchlistGorm {
	return &WatchlistGorm{db: db}
}

// Models はマイグレーション対象のモデルを返します。
func Models() []any {
	return []any{&entity.Watchlist{}, &entity.WatchlistItem{}}
}

// preloadItems は銘柄をsort_key順に読み込みます。
func preloadItems(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_key ASC, id ASC")
	})
}

// ListByUser はユーザーのウォッチリストを作成順に返します。
func (r *WatchlistGorm) ListByUser(ctx context.Context, userID uint) ([]entity.Watchlist, error) {
	var lists []entity.Watchlist
	if err := preloadItems(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

// FindByID はユーザーが所有するウォッチリストを返します。
func (r *WatchlistGorm) FindByID(ctx context.Context, userID, id uint) (*entity.Watchlist, error) {
	var w entity.Watchlist
	if err := preloadItems(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrWatchlistNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Create はウォッチリストを追加します。同名の場合はErrDuplicateNameを返します。
func (r *WatchlistGorm) Create(ctx context.Context, w *entity.Watchlist) error {
	if err := r.db.WithContext(ctx).Omit("Items").Create(w).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return usecase.ErrDuplicateName
		}
		return err
	}
	return nil
}

// Delete はウォッチリストと銘柄を1トランザクションで削除します。
func (r *WatchlistGorm) Delete(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&entity.Watchlist{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrWatchlistNotFound
		}
		// SQLiteでは外部キーのCASCADEが既定で無効なため明示的に削除する
		return tx.Where("watchlist_id = ?", id).Delete(&entity.WatchlistItem{}).Error
	})
}

// AddItem は銘柄を追加します。既に存在する場合はErrDuplicateSymbolを返します。
func (r *WatchlistGorm) AddItem(ctx context.Context, item *entity.WatchlistItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return usecase.ErrDuplicateSymbol
		}
		return err
	}
	return nil
}

// UpdateItem はメモと目標株価を保存します。
func (r *WatchlistGorm) UpdateItem(ctx context.Context, item *entity.WatchlistItem) error {
	res := r.db.WithContext(ctx).
		Model(&entity.WatchlistItem{}).
		Where("id = ? AND watchlist_id = ?", item.ID, item.WatchlistID).
		Updates(map[string]any{
			"note":         item.Note,
			"target_price": item.TargetPrice,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrItemNotFound
	}
	return nil
}

// RemoveItem は銘柄をウォッチリストから削除します。
func (r *WatchlistGorm) RemoveItem(ctx context.Context, watchlistID uint, symbol string) error {
	res := r.db.WithContext(ctx).
		Where("watchlist_id = ? AND symbol = ?", watchlistID, symbol).
		Delete(&entity.WatchlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrItemNotFound
	}
	return nil
}
