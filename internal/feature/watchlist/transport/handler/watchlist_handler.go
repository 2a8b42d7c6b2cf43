// Package handler はwatchlistフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock_watchlist/internal/feature/watchlist/domain/entity"
	"stock_watchlist/internal/feature/watchlist/transport/http/dto"
	"stock_watchlist/internal/feature/watchlist/usecase"
	"stock_watchlist/internal/platform/http/middleware"
	jwtmw "stock_watchlist/internal/platform/jwt"
)

// WatchlistUsecase はウォッチリスト操作のユースケースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type WatchlistUsecase interface {
	List(ctx context.Context, userID uint) ([]entity.Watchlist, error)
	Get(ctx context.Context, userID, id uint) (*entity.Watchlist, error)
	Create(ctx context.Context, userID uint, name string) (*entity.Watchlist, error)
	Delete(ctx context.Context, userID, id uint) error
	AddItem(ctx context.Context, userID, id uint, symbol, note string, targetPrice *float64) (*entity.WatchlistItem, error)
	UpdateItem(ctx context.Context, userID, id uint, symbol string, patch usecase.ItemPatch) (*entity.WatchlistItem, error)
	RemoveItem(ctx context.Context, userID, id uint, symbol string) error
	Refresh(ctx context.Context, userID, id uint, interval, rng string) (usecase.RefreshResult, error)
}

// WatchlistHandler はウォッチリストのHTTPリクエストを処理します。
type WatchlistHandler struct {
	uc WatchlistUsecase
}

// NewWatchlistHandler は新しい WatchlistHandler を作成します。
func NewWatchlistHandler(uc WatchlistUsecase) *WatchlistHandler {
	return &WatchlistHandler{uc: uc}
}

// List は GET /watchlists を処理します。
func (h *WatchlistHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lists, err := h.uc.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.WatchlistRes, 0, len(lists))
	for _, w := range lists {
		out = append(out, dto.ToWatchlistRes(w))
	}
	c.JSON(http.StatusOK, out)
}

// Get は GET /watchlists/:id を処理します。
func (h *WatchlistHandler) Get(c *gin.Context) {
	userID, id, ok := requireUserAndID(c)
	if !ok {
		return
	}
	w, err := h.uc.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToWatchlistRes(*w))
}

// Create は POST /watchlists を処理します。
func (h *WatchlistHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateWatchlistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.uc.Create(c.Request.Context(), userID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToWatchlistRes(*w))
}

// Delete は DELETE /watchlists/:id を処理します。
func (h *WatchlistHandler) Delete(c *gin.Context) {
	userID, id, ok := requireUserAndID(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem は POST /watchlists/:id/items を処理します。
func (h *WatchlistHandler) AddItem(c *gin.Context) {
	userID, id, ok := requireUserAndID(c)
	if !ok {
		return
	}
	var req dto.AddItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.uc.AddItem(c.Request.Context(), userID, id, req.Symbol, req.Note, req.TargetPrice)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToItemRes(*item))
}

// UpdateItem は PATCH /watchlists/:id/items/:symbol を処理します。
func (h *WatchlistHandler) UpdateItem(c *gin.Context) {
	userID, id, ok := requireUserAndID(c)
	if !ok {
		return
	}
	var req dto.UpdateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := usecase.ItemPatch{Note: req.Note, TargetPrice: req.TargetPrice, ClearTargetPrice: req.ClearTargetPrice}
	item, err := h.uc.UpdateItem(c.Request.Context(), userID, id, c.Param("symbol"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToItemRes(*item))
}

// RemoveItem は DELETE /watchlists/:id/items/:symbol を処理します。
func (h *WatchlistHandler) RemoveItem(c *gin.Context) {
	userID, id, ok := requireUserAndID(c)
	if !ok {
		return
	}
	if err := h.uc.RemoveItem(c.Request.Context(), userID, id, c.Param("symbol")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Refresh は POST /watchlists/:id/refresh を処理し、全銘柄を取得キューに積みます。
func (h *WatchlistHandler) Refresh(c *gin.Context) {
	userID, id, ok := requireUserAndID(c)
	if !ok {
		return
	}
	res, err := h.uc.Refresh(c.Request.Context(), userID, id, c.Query("interval"), c.Query("range"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.RefreshRes{Symbols: res.Symbols, Queued: res.Queued})
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return userID, ok
}

func requireUserAndID(c *gin.Context) (uint, uint, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return 0, 0, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid watchlist id"})
		return 0, 0, false
	}
	return userID, uint(id), true
}

// writeError はユースケースのエラーをステータスコードに変換します。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrWatchlistNotFound), errors.Is(err, usecase.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrDuplicateName), errors.Is(err, usecase.ErrDuplicateSymbol):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrInvalidName), errors.Is(err, usecase.ErrInvalidSymbol),
		errors.Is(err, usecase.ErrInvalidTargetPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("watchlist request failed", "path", c.FullPath(), "error", err,
			"request_id", middleware.GetRequestIDFromContext(c.Request.Context()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
