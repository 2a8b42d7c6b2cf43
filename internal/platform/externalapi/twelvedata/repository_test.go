package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock_watchlist/internal/feature/quotes/domain/entity"
)

func newTestMarket(t *testing.T, handler http.HandlerFunc) *TwelveDataMarket {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		TwelveDataAPIKey: "test-key",
		BaseURL:          server.URL,
	}
	return NewTwelveDataMarket(cfg, server.Client())
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func TestNewTwelveDataMarket(t *testing.T) {
	t.Parallel()

	cfg := Config{
		TwelveDataAPIKey: "test-key",
		BaseURL:          "https://api.test.com",
		Timeout:          10 * time.Second,
	}
	market := NewTwelveDataMarket(cfg, &http.Client{})

	if market == nil {
		t.Fatal("expected non-nil market")
	}
	if market.cfg.TwelveDataAPIKey != cfg.TwelveDataAPIKey {
		t.Errorf("expected API key %q, got %q", cfg.TwelveDataAPIKey, market.cfg.TwelveDataAPIKey)
	}
}

func TestTwelveDataMarket_GetTimeSeries_Success(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", q.Get("symbol"))
		}
		if q.Get("interval") != "1day" {
			t.Errorf("expected interval 1day, got %s", q.Get("interval"))
		}
		if q.Get("outputsize") != "22" {
			t.Errorf("expected outputsize 22, got %s", q.Get("outputsize"))
		}
		if q.Get("apikey") != "test-key" {
			t.Errorf("expected apikey test-key, got %s", q.Get("apikey"))
		}
		writeJSON(`{
			"meta": {"symbol": "AAPL", "interval": "1day", "currency": "USD"},
			"status": "ok",
			"values": [
				{"datetime": "2025-01-15", "open": "150.00", "high": "155.00", "low": "149.00", "close": "154.50", "volume": "1000000"},
				{"datetime": "2025-01-14 09:30:00", "open": "148.00", "high": "151.00", "low": "147.50", "close": "150.00", "volume": "900000"}
			]
		}`)(w, r)
	})

	ts, err := market.GetTimeSeries(context.Background(), entity.NewRequest("AAPL", "1d", "1mo", "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ts.Status != "ok" || ts.Symbol != "AAPL" || ts.Interval != "1d" {
		t.Errorf("unexpected series header: %+v", ts)
	}
	if len(ts.Values) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(ts.Values))
	}
	if ts.Values[0].Open != 150.00 {
		t.Errorf("expected open 150.00, got %f", ts.Values[0].Open)
	}
	if ts.Values[0].Close != 154.50 {
		t.Errorf("expected close 154.50, got %f", ts.Values[0].Close)
	}
	if ts.Values[0].Volume != 1000000 {
		t.Errorf("expected volume 1000000, got %d", ts.Values[0].Volume)
	}
	if !ts.Values[1].Time.Equal(time.Date(2025, 1, 14, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected time for second candle: %v", ts.Values[1].Time)
	}
}

func TestTwelveDataMarket_GetTimeSeries_DateRange(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start_date") != "2024-01-01" || q.Get("end_date") != "2024-03-31" {
			t.Errorf("unexpected date range: %s - %s", q.Get("start_date"), q.Get("end_date"))
		}
		if q.Has("outputsize") {
			t.Errorf("outputsize should be omitted when both dates are set, got %s", q.Get("outputsize"))
		}
		if q.Get("interval") != "1week" {
			t.Errorf("expected interval 1week, got %s", q.Get("interval"))
		}
		writeJSON(`{"status": "ok", "values": []}`)(w, r)
	})

	ts, err := market.GetTimeSeries(context.Background(), entity.NewRequest("MSFT", "1wk", "1y", "2024-01-01", "2024-03-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Symbol != "MSFT" {
		t.Errorf("expected symbol to fall back to request symbol, got %q", ts.Symbol)
	}
}

func TestTwelveDataMarket_GetTimeSeries_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
	}{
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"too many requests", http.StatusTooManyRequests},
		{"internal server error", http.StatusInternalServerError},
		{"service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			_, err := market.GetTimeSeries(context.Background(), entity.NewRequest("AAPL", "", "", "", ""))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), "twelvedata http") {
				t.Errorf("expected HTTP error message, got %v", err)
			}
		})
	}
}

func TestTwelveDataMarket_GetTimeSeries_APIErrorStatusIsReturned(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, writeJSON(`{
		"code": 401,
		"status": "error",
		"message": "Invalid API key"
	}`))

	ts, err := market.GetTimeSeries(context.Background(), entity.NewRequest("AAPL", "", "", "", ""))
	if err != nil {
		t.Fatalf("error status should be returned as data, got error %v", err)
	}
	if !ts.IsError() {
		t.Errorf("expected error status, got %q", ts.Status)
	}
	if ts.Message != "Invalid API key" {
		t.Errorf("expected API error message, got %q", ts.Message)
	}
}

func TestTwelveDataMarket_GetTimeSeries_InvalidJSON(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, writeJSON(`{invalid json`))

	_, err := market.GetTimeSeries(context.Background(), entity.NewRequest("AAPL", "", "", "", ""))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestTwelveDataMarket_GetTimeSeries_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		errField string
	}{
		{"invalid datetime", `{"datetime": "invalid-date", "open": "1", "high": "1", "low": "1", "close": "1", "volume": "1"}`, "parse time"},
		{"invalid open", `{"datetime": "2025-01-15", "open": "abc", "high": "1", "low": "1", "close": "1", "volume": "1"}`, "parse open"},
		{"invalid high", `{"datetime": "2025-01-15", "open": "1", "high": "xyz", "low": "1", "close": "1", "volume": "1"}`, "parse high"},
		{"invalid low", `{"datetime": "2025-01-15", "open": "1", "high": "1", "low": "bad", "close": "1", "volume": "1"}`, "parse low"},
		{"invalid close", `{"datetime": "2025-01-15", "open": "1", "high": "1", "low": "1", "close": "bad", "volume": "1"}`, "parse close"},
		{"invalid volume", `{"datetime": "2025-01-15", "open": "1", "high": "1", "low": "1", "close": "1", "volume": "not-a-number"}`, "parse volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, writeJSON(`{"status": "ok", "values": [`+tt.value+`]}`))

			_, err := market.GetTimeSeries(context.Background(), entity.NewRequest("AAPL", "", "", "", ""))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errField) {
				t.Errorf("expected error containing %q, got %v", tt.errField, err)
			}
		})
	}
}

func TestTwelveDataMarket_GetTimeSeries_MissingVolume(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, writeJSON(`{
		"status": "ok",
		"values": [{"datetime": "2025-01-15", "open": "1.08", "high": "1.09", "low": "1.07", "close": "1.085"}]
	}`))

	ts, err := market.GetTimeSeries(context.Background(), entity.NewRequest("EUR/USD", "", "", "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts.Values) != 1 || ts.Values[0].Volume != 0 {
		t.Errorf("expected one candle with zero volume, got %+v", ts.Values)
	}
}

func TestTwelveDataMarket_GetTimeSeries_ContextCancellation(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := market.GetTimeSeries(ctx, entity.NewRequest("AAPL", "", "", "", ""))
	if err == nil {
		t.Fatal("expected error due to context cancellation, got nil")
	}
}

func TestToInterval(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1d":    "1day",
		"1wk":   "1week",
		"1mo":   "1month",
		"5m":    "5min",
		"1h":    "1h",
		"1D":    "1day",
		"1day":  "1day",
		"weird": "weird",
	}
	for in, expected := range tests {
		if got := toInterval(in); got != expected {
			t.Errorf("toInterval(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestOutputSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		interval string
		rng      string
		expected int
	}{
		{"1day", "1mo", 22},
		{"1day", "1y", 252},
		{"1day", "unknown", 22},
		{"1week", "1y", 50},
		{"1month", "5y", 60},
		{"1month", "1mo", 1},
		{"1h", "5d", 35},
		{"1min", "1d", 390},
		{"1day", "max", 5000},
		{"1min", "10y", 5000},
	}

	for _, tt := range tests {
		t.Run(tt.interval+"/"+tt.rng, func(t *testing.T) {
			t.Parallel()

			if got := outputSize(tt.interval, tt.rng); got != tt.expected {
				t.Errorf("outputSize(%q, %q) = %d, expected %d", tt.interval, tt.rng, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TWELVE_DATA_BASE_URL", "")
	t.Setenv("TWELVE_DATA_API_KEY", "env-key")

	cfg := LoadConfig()

	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
	if cfg.TwelveDataAPIKey != "env-key" {
		t.Errorf("expected API key from env, got %q", cfg.TwelveDataAPIKey)
	}
}
