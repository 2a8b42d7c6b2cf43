// Package dto はquotesフィーチャーのHTTPレスポンスDTOを定義します。
package dto

import (
	"time"

	"stock_watchlist/internal/feature/quotes/domain/entity"
)

// CandleResponse はロウソク足データのレスポンスDTOです。
type CandleResponse struct {
	Time   string  `json:"time"`   // 日付（日中足は時刻付き）
	Open   float64 `json:"open"`   // 始値
	High   float64 `json:"high"`   // 高値
	Low    float64 `json:"low"`    // 安値
	Close  float64 `json:"close"`  // 終値
	Volume int64   `json:"volume"` // 出来高
}

// QuoteResponse は取得済みの時系列データです。
type QuoteResponse struct {
	Key      string           `json:"key"`
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Status   string           `json:"status"`
	Values   []CandleResponse `json:"values"`
}

// EnqueueResponse はキュー投入のレスポンスです。
type EnqueueResponse struct {
	Key    string `json:"key"`
	Queued bool   `json:"queued"`
}

// MissingResponse は結果が無い場合のレスポンスです。
// Outcome は pending / rate_limited / upstream_error / not_requested などです。
type MissingResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// StatusResponse はキューとクォータの状態です。
type StatusResponse struct {
	Fetching          bool `json:"fetching"`
	QueueLength       int  `json:"queue_length"`
	CallsThisMinute   int  `json:"calls_this_minute"`
	CallsToday        int  `json:"calls_today"`
	MaxCallsPerMinute int  `json:"max_calls_per_minute"`
	MaxCallsPerDay    int  `json:"max_calls_per_day"`
}

// ResultEvent はSSEで配信する処理結果です。
type ResultEvent struct {
	Key     string    `json:"key"`
	Symbol  string    `json:"symbol"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// ErrorResponse はエラーレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToQuoteResponse は時系列データをレスポンスに変換します。
func ToQuoteResponse(key string, ts *entity.TimeSeries) QuoteResponse {
	out := QuoteResponse{
		Key:      key,
		Symbol:   ts.Symbol,
		Interval: ts.Interval,
		Status:   ts.Status,
		Values:   make([]CandleResponse, 0, len(ts.Values)),
	}
	for _, x := range ts.Values {
		out.Values = append(out.Values, CandleResponse{
			Time:   formatTime(x.Time),
			Open:   x.Open,
			High:   x.High,
			Low:    x.Low,
			Close:  x.Close,
			Volume: x.Volume,
		})
	}
	return out
}

// ToResultEvent は処理結果をSSEイベントに変換します。
func ToResultEvent(res entity.Result) ResultEvent {
	ev := ResultEvent{
		Key:     res.Key,
		Symbol:  res.Request.Symbol,
		Outcome: res.Outcome.String(),
		At:      res.At,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}

func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
