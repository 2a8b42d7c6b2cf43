// Package handler はquotesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/feature/quotes/transport/http/dto"
	"stock_watchlist/internal/feature/quotes/usecase"
	"stock_watchlist/internal/platform/http/middleware"
	ticker "stock_watchlist/internal/shared/symbol"
)

const streamBuffer = 16

// QuoteQueue は取得キューの操作を定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type QuoteQueue interface {
	Enqueue(req entity.Request) (bool, error)
	GetResult(ctx context.Context, symbol string, opts ...usecase.RequestOption) (*entity.TimeSeries, bool)
	Outcome(symbol string, opts ...usecase.RequestOption) (entity.Result, bool)
	IsQueued(symbol string, opts ...usecase.RequestOption) bool
	IsFetching() bool
	Len() int
	Quota() usecase.QuotaSnapshot
	Subscribe(buffer int) (<-chan entity.Result, func())
}

// QuoteHandler は株価取得キューのHTTPリクエストを処理します。
type QuoteHandler struct {
	queue QuoteQueue
}

// NewQuoteHandler はQuoteHandlerの新しいインスタンスを生成します。
func NewQuoteHandler(queue QuoteQueue) *QuoteHandler {
	return &QuoteHandler{queue: queue}
}

// requestFromQuery はパスとクエリからリクエストを組み立てます。
//
// 例: /quotes/AAPL?interval=1d&range=1mo&start_date=2024-01-01&end_date=2024-03-31
func requestFromQuery(c *gin.Context) entity.Request {
	return entity.NewRequest(
		c.Param("symbol"),
		c.Query("interval"),
		c.Query("range"),
		c.Query("start_date"),
		c.Query("end_date"),
	)
}

func requestOptions(req entity.Request) []usecase.RequestOption {
	return []usecase.RequestOption{
		usecase.WithInterval(req.Interval),
		usecase.WithRange(req.Range),
		usecase.WithDateRange(req.StartDate, req.EndDate),
	}
}

// Enqueue は取得リクエストをキューに積み、202を返します。
// POST /quotes/:symbol
func (h *QuoteHandler) Enqueue(c *gin.Context) {
	req := requestFromQuery(c)
	queued, err := h.queue.Enqueue(req)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptySymbol) || errors.Is(err, usecase.ErrInvalidSymbol) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to enqueue quote request", "symbol", req.Symbol, "error", err,
			"request_id", middleware.GetRequestIDFromContext(c.Request.Context()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusAccepted, dto.EnqueueResponse{Key: req.Key(), Queued: queued})
}

// Get はTTL内の取得結果を返します。無い場合は404と理由を返します。
// GET /quotes/:symbol
func (h *QuoteHandler) Get(c *gin.Context) {
	req := requestFromQuery(c)
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: usecase.ErrEmptySymbol.Error()})
		return
	}
	if !ticker.Valid(req.Symbol) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: usecase.ErrInvalidSymbol.Error()})
		return
	}
	opts := requestOptions(req)

	if ts, ok := h.queue.GetResult(c.Request.Context(), req.Symbol, opts...); ok {
		c.JSON(http.StatusOK, dto.ToQuoteResponse(req.Key(), ts))
		return
	}

	missing := dto.MissingResponse{Error: "no result", Outcome: "not_requested"}
	if h.queue.IsQueued(req.Symbol, opts...) {
		missing.Outcome = "pending"
	} else if res, ok := h.queue.Outcome(req.Symbol, opts...); ok {
		missing.Outcome = res.Outcome.String()
		if res.HasData() {
			// 取得済みだがTTLが切れている
			missing.Outcome = "expired"
		}
		if res.Err != nil {
			missing.Detail = res.Err.Error()
		}
	}
	c.JSON(http.StatusNotFound, missing)
}

// Status はキューとクォータの状態を返します。
// GET /quotes/status
func (h *QuoteHandler) Status(c *gin.Context) {
	quota := h.queue.Quota()
	c.JSON(http.StatusOK, dto.StatusResponse{
		Fetching:          h.queue.IsFetching(),
		QueueLength:       h.queue.Len(),
		CallsThisMinute:   quota.CallsThisMinute,
		CallsToday:        quota.CallsToday,
		MaxCallsPerMinute: quota.MaxCallsPerMinute,
		MaxCallsPerDay:    quota.MaxCallsPerDay,
	})
}

// Stream は処理結果をServer-Sent Eventsで配信します。
// GET /quotes/stream
func (h *QuoteHandler) Stream(c *gin.Context) {
	results, cancel := h.queue.Subscribe(streamBuffer)
	defer cancel()

	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case res, ok := <-results:
			if !ok {
				return false
			}
			c.SSEvent("result", dto.ToResultEvent(res))
			return true
		}
	})
}
