package entity

import (
	"strings"
	"time"
)

// Candle represents OHLCV (Open, High, Low, Close, Volume) data for one period.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TimeSeries is the result returned by the quote provider. The queue only
// looks at Status; everything else is passed through untouched.
type TimeSeries struct {
	Status   string   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Values   []Candle `json:"values"`
}

// IsError reports whether the provider flagged the payload as an error.
func (ts *TimeSeries) IsError() bool {
	return strings.Contains(strings.ToLower(ts.Status), "error")
}
