// Package usecase はクォータ制御付きの株価取得キューを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/shared/ratelimiter"
	ticker "stock_watchlist/internal/shared/symbol"
)

// MarketRepository は外部APIから時系列データを取得するリポジトリのインターフェイスです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MarketRepository interface {
	GetTimeSeries(ctx context.Context, req entity.Request) (*entity.TimeSeries, error)
}

// ResultCache は取得結果のTTLキャッシュを抽象化します。
type ResultCache interface {
	// Get は有効期限内のエントリがあればそれを返します。
	Get(ctx context.Context, key string) (*entity.TimeSeries, bool)
	// Set は取得結果を現在時刻で保存します。
	Set(ctx context.Context, key string, ts *entity.TimeSeries)
}

// Metrics はキューの状態を外部に公開するためのインターフェースです。
type Metrics interface {
	ObserveOutcome(outcome entity.Outcome)
	SetQueueLength(n int)
	SetQuotaUsage(callsThisMinute, callsToday int)
}

// QuotaSnapshot は現在のクォータ使用状況です。
type QuotaSnapshot struct {
	CallsThisMinute   int
	CallsToday        int
	MaxCallsPerMinute int
	MaxCallsPerDay    int
}

// FetchQueue は時系列データ取得リクエストを1件ずつ順番に処理するキューです。
//   - 同一リクエストが処理待ちの間は重複して積まない
//   - 外部API呼び出しは常に最大1件
//   - 分/日単位の呼び出し上限を超えたリクエストは破棄する
//   - TTL内のキャッシュがあれば外部APIを呼ばない
type FetchQueue struct {
	market  MarketRepository
	cache   ResultCache
	budget  *ratelimiter.Budget
	cfg     Config
	now     func() time.Time
	metrics Metrics

	mu       sync.Mutex
	queue    []entity.Request
	fetching bool
	// キーごとの最新結果。cfg.MaxResults を超えると古いものから捨てる
	latest   map[string]*entity.TimeSeries
	outcomes map[string]entity.Result
	subs     map[int]chan entity.Result
	nextSub  int

	wake chan struct{}
}

// Option はFetchQueueの任意設定です。
type Option func(*FetchQueue)

// WithClock は結果のタイムスタンプに使う時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(q *FetchQueue) { q.now = now }
}

// WithMetrics はメトリクスの出力先を設定します。
func WithMetrics(m Metrics) Option {
	return func(q *FetchQueue) {
		if m != nil {
			q.metrics = m
		}
	}
}

// NewFetchQueue は新しいFetchQueueを生成します。cacheはnilであってはいけません。
func NewFetchQueue(market MarketRepository, cache ResultCache, cfg Config, opts ...Option) *FetchQueue {
	q := &FetchQueue{
		market:   market,
		cache:    cache,
		budget:   ratelimiter.NewBudget(cfg.MaxCallsPerMinute, cfg.MinuteWindow, cfg.MaxCallsPerDay, cfg.DayWindow),
		cfg:      cfg,
		now:      time.Now,
		metrics:  noopMetrics{},
		latest:   make(map[string]*entity.TimeSeries),
		outcomes: make(map[string]entity.Result),
		subs:     make(map[int]chan entity.Result),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// RequestOption はリクエストの任意パラメータです。
type RequestOption func(*entity.Request)

// WithInterval はローソク足の時間足を指定します（デフォルト "1d"）。
func WithInterval(interval string) RequestOption {
	return func(r *entity.Request) { r.Interval = interval }
}

// WithRange は取得期間を指定します（デフォルト "1mo"）。
func WithRange(rng string) RequestOption {
	return func(r *entity.Request) { r.Range = rng }
}

// WithDateRange は開始日と終了日を指定します。空文字は未指定を表します。
func WithDateRange(startDate, endDate string) RequestOption {
	return func(r *entity.Request) {
		r.StartDate = startDate
		r.EndDate = endDate
	}
}

func buildRequest(symbol string, opts []RequestOption) entity.Request {
	var r entity.Request
	for _, opt := range opts {
		opt(&r)
	}
	return entity.NewRequest(symbol, r.Interval, r.Range, r.StartDate, r.EndDate)
}

// AddToQueue は銘柄の時系列データ取得をキューに積みます。
// 結果は非同期に Results / GetResult / Subscribe で参照できます。
func (q *FetchQueue) AddToQueue(symbol string, opts ...RequestOption) error {
	_, err := q.Enqueue(buildRequest(symbol, opts))
	return err
}

// Enqueue はリクエストをキューに積み、新たに積まれたかどうかを返します。
// 同じフィールドのリクエストが処理待ち（処理中を含む）であれば何もしません。
func (q *FetchQueue) Enqueue(req entity.Request) (bool, error) {
	req = entity.NewRequest(req.Symbol, req.Interval, req.Range, req.StartDate, req.EndDate)
	if req.Symbol == "" {
		return false, ErrEmptySymbol
	}
	if !ticker.Valid(req.Symbol) {
		return false, fmt.Errorf("%w: %q", ErrInvalidSymbol, req.Symbol)
	}

	q.mu.Lock()
	for _, pending := range q.queue {
		if pending == req {
			q.mu.Unlock()
			return false, nil
		}
	}
	q.queue = append(q.queue, req)
	n := len(q.queue)
	q.mu.Unlock()

	q.metrics.SetQueueLength(n)
	q.signal()
	return true, nil
}

// GetResult はキャッシュから有効期限内の結果を返します。副作用はありません。
func (q *FetchQueue) GetResult(ctx context.Context, symbol string, opts ...RequestOption) (*entity.TimeSeries, bool) {
	req := buildRequest(symbol, opts)
	if req.Symbol == "" {
		return nil, false
	}
	return q.cache.Get(ctx, req.Key())
}

// Outcome は指定リクエストの直近の処理結果を返します。
func (q *FetchQueue) Outcome(symbol string, opts ...RequestOption) (entity.Result, bool) {
	key := buildRequest(symbol, opts).Key()
	q.mu.Lock()
	defer q.mu.Unlock()
	res, ok := q.outcomes[key]
	return res, ok
}

// Results はキャッシュキーごとの最新の取得データのスナップショットを返します。
func (q *FetchQueue) Results() map[string]*entity.TimeSeries {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]*entity.TimeSeries, len(q.latest))
	for k, v := range q.latest {
		out[k] = v
	}
	return out
}

// Subscribe は処理済み結果を受け取るチャネルを返します。
// 受信側が詰まっている場合、その結果は読み捨てられます。
func (q *FetchQueue) Subscribe(buffer int) (<-chan entity.Result, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan entity.Result, buffer)

	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	q.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			close(ch)
			q.mu.Unlock()
		})
	}
	return ch, cancel
}

// IsQueued は同じフィールドのリクエストが処理待ち（処理中を含む）かどうかを返します。
func (q *FetchQueue) IsQueued(symbol string, opts ...RequestOption) bool {
	req := buildRequest(symbol, opts)
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, pending := range q.queue {
		if pending == req {
			return true
		}
	}
	return false
}

// IsFetching は先頭のリクエストを処理中かどうかを返します。
func (q *FetchQueue) IsFetching() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fetching
}

// Len は処理待ち（処理中を含む）のリクエスト数を返します。
func (q *FetchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Quota は現在のクォータ使用状況を返します。
func (q *FetchQueue) Quota() QuotaSnapshot {
	return QuotaSnapshot{
		CallsThisMinute:   q.budget.Minute.Count(),
		CallsToday:        q.budget.Day.Count(),
		MaxCallsPerMinute: q.cfg.MaxCallsPerMinute,
		MaxCallsPerDay:    q.cfg.MaxCallsPerDay,
	}
}

// Run はキューの処理ループとクォータのリセットタイマーを起動します。
// ctxがキャンセルされるまでブロックします。
func (q *FetchQueue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.budget.Run(ctx)
	}()
	defer wg.Wait()

	slog.Info("quote fetch queue started",
		"max_calls_per_minute", q.cfg.MaxCallsPerMinute,
		"max_calls_per_day", q.cfg.MaxCallsPerDay,
		"cache_ttl", q.cfg.TTL)

	for {
		q.Drain(ctx)
		select {
		case <-ctx.Done():
			slog.Info("quote fetch queue stopped", "pending", q.Len())
			return nil
		case <-q.wake:
		}
	}
}

// Drain はキューが空になるまで先頭から1件ずつ処理します。
// 別の呼び出しが処理中の場合は何もせずに戻ります。
func (q *FetchQueue) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		req, ok := q.begin()
		if !ok {
			return
		}
		q.finish(q.fetchOne(ctx, req))
	}
}

// begin は処理中でなければ先頭のリクエストを取り出して処理中にします。
func (q *FetchQueue) begin() (entity.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fetching || len(q.queue) == 0 {
		return entity.Request{}, false
	}
	q.fetching = true
	return q.queue[0], true
}

// finish は結果に関わらず先頭を取り除き、処理中フラグを下ろして結果を通知します。
func (q *FetchQueue) finish(res entity.Result) {
	q.mu.Lock()
	q.queue[0] = entity.Request{}
	q.queue = q.queue[1:]
	q.fetching = false
	q.outcomes[res.Key] = res
	if res.HasData() {
		q.latest[res.Key] = res.Data
	}
	if q.cfg.MaxResults > 0 && len(q.outcomes) > q.cfg.MaxResults {
		q.evictOldestLocked(res.Key)
	}
	for id, ch := range q.subs {
		select {
		case ch <- res:
		default:
			slog.Warn("dropping quote result for slow subscriber", "subscriber", id, "key", res.Key)
		}
	}
	n := len(q.queue)
	q.mu.Unlock()

	quota := q.Quota()
	q.metrics.ObserveOutcome(res.Outcome)
	q.metrics.SetQueueLength(n)
	q.metrics.SetQuotaUsage(quota.CallsThisMinute, quota.CallsToday)
}

// fetchOne は1件のリクエストを処理します。エラーは呼び出し元に返さず結果に記録します。
func (q *FetchQueue) fetchOne(ctx context.Context, req entity.Request) entity.Result {
	key := req.Key()
	res := entity.Result{Key: key, Request: req}

	// 1) キャッシュ確認（クォータは消費しない）
	if data, ok := q.cache.Get(ctx, key); ok {
		res.Outcome = entity.OutcomeCached
		res.Data = data
		res.At = q.now()
		return res
	}

	// 2) クォータ確認
	if q.budget.Exhausted() {
		slog.Warn("quote API quota exhausted, dropping request",
			"key", key,
			"calls_this_minute", q.budget.Minute.Count(),
			"calls_today", q.budget.Day.Count())
		res.Outcome = entity.OutcomeRateLimited
		res.Err = ErrRateLimited
		res.At = q.now()
		return res
	}

	// 3) 外部API呼び出し
	callCtx := ctx
	if q.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, q.cfg.FetchTimeout)
		defer cancel()
	}
	data, err := q.market.GetTimeSeries(callCtx, req)
	res.At = q.now()

	switch {
	case err != nil:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrFetchTimeout, err)
		}
		slog.Error("failed to fetch time series", "key", key, "error", err)
		res.Outcome = entity.OutcomeUpstreamError
		res.Err = err
	case data == nil:
		slog.Error("failed to fetch time series", "key", key, "error", ErrEmptyResponse)
		res.Outcome = entity.OutcomeUpstreamError
		res.Err = ErrEmptyResponse
	case data.IsError():
		err := fmt.Errorf("%w: %s", ErrUpstreamStatus, data.Message)
		slog.Error("failed to fetch time series", "key", key, "status", data.Status, "error", err)
		res.Outcome = entity.OutcomeUpstreamError
		res.Err = err
	default:
		q.cache.Set(ctx, key, data)
		q.budget.Consume()
		res.Outcome = entity.OutcomeOK
		res.Data = data
	}
	return res
}

// evictOldestLocked は最も古い結果を1件捨てます。latest のキーは常に outcomes に含まれます。
// q.mu を保持して呼ぶこと。
func (q *FetchQueue) evictOldestLocked(keep string) {
	var oldest string
	var oldestAt time.Time
	for k, r := range q.outcomes {
		if k == keep {
			continue
		}
		if oldest == "" || r.At.Before(oldestAt) {
			oldest, oldestAt = k, r.At
		}
	}
	if oldest == "" {
		return
	}
	delete(q.outcomes, oldest)
	delete(q.latest, oldest)
}

// signal は処理ループを起こします。既に通知済みなら何もしません。
func (q *FetchQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveOutcome(entity.Outcome) {}
func (noopMetrics) SetQueueLength(int)            {}
func (noopMetrics) SetQuotaUsage(int, int)        {}
