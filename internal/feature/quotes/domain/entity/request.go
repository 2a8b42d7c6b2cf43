// Package entity defines the domain models for the quotes feature.
package entity

import (
	"net/url"
	"strings"

	"stock_watchlist/internal/shared/symbol"
)

const (
	// DefaultInterval is the candle interval used when a request does not name one.
	DefaultInterval = "1d"
	// DefaultRange is the lookback range used when a request does not name one.
	DefaultRange = "1mo"

	// noDate marks an unset start or end date inside a cache key.
	noDate = "-"
)

// Request identifies one time-series fetch. Two requests with equal fields
// are the same request: they share a cache key and are coalesced in the queue.
type Request struct {
	Symbol    string // Stock ticker symbol (e.g., "AAPL")
	Interval  string // Candle interval (e.g., "1d", "1wk")
	Range     string // Lookback range (e.g., "1mo", "1y")
	StartDate string // Optional start date, "2006-01-02"
	EndDate   string // Optional end date, "2006-01-02"
}

// NewRequest builds a Request, normalizing the symbol and filling in the
// default interval and range.
func NewRequest(sym, interval, rng, startDate, endDate string) Request {
	if interval == "" {
		interval = DefaultInterval
	}
	if rng == "" {
		rng = DefaultRange
	}
	return Request{
		Symbol:    symbol.Normalize(sym),
		Interval:  interval,
		Range:     rng,
		StartDate: startDate,
		EndDate:   endDate,
	}
}

// Key derives the cache key for the request. Parts are query-escaped, so
// distinct requests never share a key.
func (r Request) Key() string {
	return strings.Join([]string{
		escape(r.Symbol),
		escape(r.Interval),
		escape(r.Range),
		escapeDate(r.StartDate),
		escapeDate(r.EndDate),
	}, ":")
}

func escape(s string) string {
	return url.QueryEscape(s)
}

// escapeDate は未指定を noDate で表し、日付としての "-" とは区別します。
func escapeDate(s string) string {
	switch s {
	case "":
		return noDate
	case noDate:
		return "%2D"
	}
	return escape(s)
}
